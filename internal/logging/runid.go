// Package logging provides the helper's diagnostic surface: slog bootstrap,
// run identification, and the single fatal exit path.
package logging

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// GenerateRunID generates a new ULID for run identification
func GenerateRunID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
