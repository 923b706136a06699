// Package uuid wraps github.com/google/uuid and makes UUIDv7 (time-ordered)
// the default. Upload and request identifiers are time-ordered so that log
// output and database listings sort naturally by creation time.
package uuid

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// UUID is aliased from github.com/google/uuid.UUID.
type UUID = uuid.UUID

// Nil is the zero UUID value.
var Nil = uuid.Nil

// New returns a new UUIDv7. Panics if generation fails.
func New() UUID {
	u, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return u
}

// NewRandom returns a new UUIDv7 and any error encountered during generation.
func NewRandom() (UUID, error) {
	return uuid.NewV7()
}

// Parse parses a UUID string. Returns an error if the string is not a valid UUID.
func Parse(s string) (UUID, error) {
	return uuid.Parse(s)
}

// MustParse parses a UUID string and panics if it is invalid.
func MustParse(s string) UUID {
	return uuid.MustParse(s)
}

// IsUUIDv7 reports whether the given UUID is a UUIDv7.
func IsUUIDv7(id UUID) bool {
	return id.Version() == uuid.Version(7)
}

// Timestamp extracts the creation time encoded in the top 48 bits of a UUIDv7.
func Timestamp(u UUID) time.Time {
	tsMillis := binary.BigEndian.Uint64(u[0:8]) >> 16
	if tsMillis > uint64(1<<63-1) {
		return time.UnixMilli(1<<63 - 1)
	}
	return time.UnixMilli(int64(tsMillis))
}
