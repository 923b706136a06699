// Package dbmanager manages the PostgreSQL connection pool. Each checked-out
// connection carries conservative session timeouts so a stuck statement
// cannot hold the pool hostage.
package dbmanager

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v4"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lib/pq"

	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/config"
)

// postgresConn is a single checked-out PostgreSQL connection.
type postgresConn struct {
	conn   *sql.Conn
	cancel context.CancelFunc
	pool   *postgresPool
}

// postgresPool is the PostgreSQL connection pool.
type postgresPool struct {
	connRequests uint64
	connReturns  uint64
	db           *sql.DB
}

// validParamNameRegex ensures session parameter names are valid PostgreSQL identifiers.
var validParamNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z_][a-zA-Z0-9_]*)*$`)

// formatSQLIdentifier formats a parameter name using proper identifier quoting.
func formatSQLIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// sessionParams are applied to every checked-out connection. The statement
// timeout must accommodate the commit transaction, which moves an entire
// staged upload in one statement sequence.
var sessionParams = map[string]string{
	"lock_timeout":                        "10s",
	"statement_timeout":                   "60s",
	"idle_in_transaction_session_timeout": "60s",
}

// NewPostgresqlDb creates the PostgreSQL connection pool. The initial ping is
// retried with backoff so the server can start before its database during
// orchestrated deployments.
func NewPostgresqlDb(ctx context.Context) (Db, error) {
	dsn := config.SkyModelDsn()

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to open db")
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	err = retry.Do(
		func() error {
			return sqlDB.PingContext(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().Err(err).Uint("attempt", n+1).Msg("database ping failed, retrying")
		}),
	)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to ping db")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &postgresPool{
		db: sqlDB,
	}, nil
}

// Conn returns a new connection from the pool with session parameters applied.
func (p *postgresPool) Conn(ctx context.Context) (Conn, error) {
	ctx, cancel := context.WithCancel(ctx)

	conn, err := p.db.Conn(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to obtain connection")
		cancel()
		return nil, fmt.Errorf("failed to obtain database connection: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			cancel()
			conn.Close()
			log.Ctx(ctx).Error().Interface("panic", r).Msg("recovered from panic while setting up connection")
		}
	}()

	for param, value := range sessionParams {
		if !validParamNameRegex.MatchString(param) {
			cancel()
			conn.Close()
			return nil, fmt.Errorf("invalid session parameter name: %s", param)
		}
		query := fmt.Sprintf("SET %s = %s", formatSQLIdentifier(param), pq.QuoteLiteral(value))
		_, err = conn.ExecContext(ctx, query)
		if err != nil {
			cancel()
			conn.Close()
			return nil, fmt.Errorf("failed to set %s: %w", param, err)
		}
	}

	atomic.AddUint64(&p.connRequests, 1)
	return &postgresConn{
		cancel: cancel,
		pool:   p,
		conn:   conn,
	}, nil
}

// Stats returns the number of connection requests and returns.
func (p *postgresPool) Stats() (requests, returns uint64) {
	return atomic.LoadUint64(&p.connRequests), atomic.LoadUint64(&p.connReturns)
}

// OpenConns returns the number of open connections in the pool.
func (p *postgresPool) OpenConns() int {
	return p.db.Stats().OpenConnections
}

// Close returns the connection back to the pool.
func (h *postgresConn) Close(ctx context.Context) {
	if h.conn == nil {
		return
	}
	h.conn.Close()
	if h.cancel != nil {
		h.cancel()
	}
	atomic.AddUint64(&h.pool.connReturns, 1)
}

// Conn returns the underlying connection.
func (h *postgresConn) Conn() *sql.Conn {
	return h.conn
}
