package dbmanager

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
)

// Db hands out connections from the underlying pool.
type Db interface {
	// Conn returns a new connection to the database.
	Conn(ctx context.Context) (Conn, error)
	// Stats returns the number of connection requests and returns.
	Stats() (requests, returns uint64)
}

// Conn is a single database connection. One connection is checked out per
// request and must be used from a single goroutine.
type Conn interface {
	// Conn returns the underlying *sql.Conn. Do not close this directly.
	// Use Conn.Close(ctx) to return it to the pool.
	Conn() *sql.Conn
	// Close returns the connection back to the pool.
	Close(ctx context.Context)
}

// NewDb returns a pooled database for the given backend type. Only
// "postgresql" is supported.
func NewDb(ctx context.Context, dbtype string) Db {
	switch dbtype {
	case "postgresql":
		db, err := NewPostgresqlDb(ctx)
		if err != nil || db == nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to create PostgreSQL DB")
			return nil
		}
		return db
	}
	return nil
}
