package app

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

func newID() string {
	return uuid.NewString()
}

// newOutboxID returns a ULID stamped with the transition time so pending
// notifications dispatch in creation order.
func newOutboxID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}
