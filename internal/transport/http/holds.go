package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// RestrictionChecker is the minimal interface for the account guard.
type RestrictionChecker interface {
	IsRestricted(ctx context.Context, accountID string) (bool, error)
}

// HandleAccountRestricted returns the guard endpoint consulted before
// booking and listing mutations: GET /accounts/{id}/restricted.
func HandleAccountRestricted(svc RestrictionChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		accountID, ok := parseRestrictedPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		restricted, err := svc.IsRestricted(r.Context(), accountID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(restrictedResponse{
			AccountID:  accountID,
			Restricted: restricted,
		})
	}
}

func parseRestrictedPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "accounts" || parts[2] != "restricted" {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type restrictedResponse struct {
	AccountID  string `json:"account_id"`
	Restricted bool   `json:"restricted"`
}
