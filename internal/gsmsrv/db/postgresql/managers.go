package postgresql

import (
	"context"
	"database/sql"

	"github.com/skymodel/skymodel/internal/gsmsrv/db/dbmanager"
)

// PixelFunc computes the fine-resolution healpix index for a coordinate in
// radians. Commit recomputes the index for every staged row through this
// callback so the store never owns the pixelization parameters.
type PixelFunc func(raRad, decRad float64) int64

// Source Manager
type sourceManager struct {
	c dbmanager.Conn
}

func (sm *sourceManager) conn() *sql.Conn {
	return sm.c.Conn()
}

func newSourceManager(c dbmanager.Conn) *sourceManager {
	return &sourceManager{c: c}
}

// Metadata Manager
type metadataManager struct {
	c dbmanager.Conn
}

func (mm *metadataManager) conn() *sql.Conn {
	return mm.c.Conn()
}

func newMetadataManager(c dbmanager.Conn) *metadataManager {
	return &metadataManager{c: c}
}

// Connection Manager
type connectionManager struct {
	c dbmanager.Conn
}

func newConnectionManager(c dbmanager.Conn) *connectionManager {
	return &connectionManager{c: c}
}

func (cm *connectionManager) Close(ctx context.Context) {
	cm.c.Close(ctx)
}
