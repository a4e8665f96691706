// Package collab holds development defaults for the external
// collaborators the core consumes (notifier, payment processor, wallet
// ledger, unsubscribe preferences). Production deployments replace these
// with real integrations at wiring time in cmd/claimsd.
package collab

import (
	"context"
	"encoding/json"
	"log"

	"github.com/shopspring/decimal"

	"github.com/itwhiprentals/claims-service/internal/domain"
)

// LogNotifier writes the structured payload to the log instead of
// rendering and sending a message.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Send(_ context.Context, recipient string, kind domain.TemplateKind, payload json.RawMessage) error {
	n.logger().Printf("notify recipient=%s kind=%s payload=%s", recipient, kind, payload)
	return nil
}

func (n LogNotifier) logger() *log.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return log.Default()
}

// AllowAllPreferences treats every recipient as subscribed.
type AllowAllPreferences struct{}

func (AllowAllPreferences) IsUnsubscribed(context.Context, string, domain.TemplateKind) (bool, error) {
	return false, nil
}

// LogPaymentProcessor records refund instructions without executing them.
type LogPaymentProcessor struct {
	Logger *log.Logger
}

func (p LogPaymentProcessor) Refund(_ context.Context, paymentRef string, amount decimal.Decimal) error {
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("refund ref=%s amount=%s", paymentRef, amount.StringFixed(2))
	return nil
}

// LogWalletLedger records wallet credits without executing them.
type LogWalletLedger struct {
	Logger *log.Logger
}

func (l LogWalletLedger) Credit(_ context.Context, accountID string, amount decimal.Decimal) error {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("wallet credit account=%s amount=%s", accountID, amount.StringFixed(2))
	return nil
}
