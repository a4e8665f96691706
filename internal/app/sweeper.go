package app

import (
	"context"
	"log"
	"time"

	"github.com/itwhiprentals/claims-service/internal/clock"
)

// ExpiryDriver is what the sweeper needs from the claim lifecycle.
type ExpiryDriver interface {
	DueClaimIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
	ExpireClaim(ctx context.Context, claimID string) (bool, error)
}

const defaultSweepBatch = 100

// DeadlineSweeper periodically finds claims whose response window has
// elapsed and drives the expiry transition. Deadlines are absolute
// timestamps evaluated by comparison, so the sweep is restart-safe, and
// the version check inside ExpireClaim makes each expiry apply at most
// once even when sweeps overlap.
type DeadlineSweeper struct {
	driver ExpiryDriver
	clock  clock.Clock
	logger *log.Logger
	batch  int
}

func NewDeadlineSweeper(driver ExpiryDriver, clk clock.Clock, logger *log.Logger) *DeadlineSweeper {
	if logger == nil {
		logger = log.Default()
	}
	return &DeadlineSweeper{
		driver: driver,
		clock:  clk,
		logger: logger,
		batch:  defaultSweepBatch,
	}
}

// SweepOnce expires every due claim it can win the transition for and
// returns how many transitions it applied. Losing a race to a concurrent
// response or sweep is not an error.
func (s *DeadlineSweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()
	ids, err := s.driver.DueClaimIDs(ctx, now, s.batch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		changed, err := s.driver.ExpireClaim(ctx, id)
		if err != nil {
			s.logger.Printf("WARN: expire claim %s: %v", id, err)
			continue
		}
		if changed {
			expired++
		}
	}
	return expired, nil
}

// Run sweeps on the given interval until the context is cancelled.
func (s *DeadlineSweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Printf("WARN: deadline sweep: %v", err)
				continue
			}
			if expired > 0 {
				s.logger.Printf("deadline sweep expired %d claim(s)", expired)
			}
		}
	}
}
