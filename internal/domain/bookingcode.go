package domain

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Booking codes are human-readable identifiers of the form
// PREFIX[A-Z]{1,6}-\d{6}-[A-Z]{2}\d{2}: a fixed prefix, up to six letters
// derived from the vehicle make and model, a random six-digit number, the
// two-letter state code and the two-digit year.

const bookingCodeLetters = 6

// NewBookingCode generates a single booking code.
func NewBookingCode(prefix, vehicleMake, vehicleModel, state string, at time.Time) (string, error) {
	letters := vehicleLetters(vehicleMake, vehicleModel)
	if letters == "" {
		letters = "X"
	}
	digits, err := randomDigits(6)
	if err != nil {
		return "", err
	}
	st := strings.ToUpper(strings.TrimSpace(state))
	if len(st) != 2 || !isAlpha(st) {
		return "", ErrInvalidID
	}
	return fmt.Sprintf("%s%s-%s-%s%02d", prefix, letters, digits, st, at.Year()%100), nil
}

// NewBookingCodeBatch generates n codes that are unique within the batch.
// Collisions on the random digits are regenerated rather than erroring.
func NewBookingCodeBatch(n int, prefix, vehicleMake, vehicleModel, state string, at time.Time) ([]string, error) {
	seen := make(map[string]struct{}, n)
	codes := make([]string, 0, n)
	for len(codes) < n {
		code, err := NewBookingCode(prefix, vehicleMake, vehicleModel, state, at)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

func vehicleLetters(vehicleMake, vehicleModel string) string {
	var b strings.Builder
	for _, src := range []string{vehicleMake, vehicleModel} {
		for _, r := range strings.ToUpper(src) {
			if b.Len() >= bookingCodeLetters {
				break
			}
			if r >= 'A' && r <= 'Z' {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func randomDigits(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, v := range buf {
		out[i] = '0' + v%10
	}
	return string(out), nil
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
