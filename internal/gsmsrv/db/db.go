// Package db provides database interfaces and implementations for the sky
// model service. It defines three main interfaces:
// - SourceManager: staged and committed sky components
// - MetadataManager: catalogue version metadata
// - ConnectionManager: database connection lifecycle
package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/common/apperrors"
	"github.com/skymodel/skymodel/internal/common/uuid"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/dbmanager"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/models"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/postgresql"
)

// PixelFunc computes the spatial index for a component position in radians.
// The db layer stays ignorant of the pixelization scheme; callers pass the
// configured one in at commit time.
type PixelFunc = postgresql.PixelFunc

// SourceManager handles sky component operations, both the staging area an
// upload writes into and the committed catalogue that queries read from.
// All operations require a valid context and may return apperrors.Error for
// various failure cases.
type SourceManager interface {
	// Staging
	InsertStagingComponents(ctx context.Context, uploadID uuid.UUID, comps []*models.SkyComponentStaging) apperrors.Error
	CountStaging(ctx context.Context, uploadID uuid.UUID) (int64, apperrors.Error)
	SampleStaging(ctx context.Context, uploadID uuid.UUID, n int) ([]*models.SkyComponentStaging, apperrors.Error)
	DeleteStaging(ctx context.Context, uploadID uuid.UUID) (int64, apperrors.Error)

	// Committed catalogue
	CommitUpload(ctx context.Context, meta *models.CatalogueMetadata, pixelFn PixelFunc) (int64, apperrors.Error)
	GetComponentsByPixelRanges(ctx context.Context, ranges []models.PixelRange, refs []models.VersionRef) ([]*models.SkyComponent, apperrors.Error)
	CountComponents(ctx context.Context, ref models.VersionRef) (int64, apperrors.Error)
}

// MetadataManager handles catalogue metadata operations. One row exists per
// committed catalogue version.
type MetadataManager interface {
	ListMetadata(ctx context.Context, catalogueName, version string) ([]*models.CatalogueMetadata, apperrors.Error)
	ListCatalogueVersions(ctx context.Context, catalogueName string) ([]string, apperrors.Error)
	GetMetadataByVersion(ctx context.Context, catalogueName, version string) (*models.CatalogueMetadata, apperrors.Error)
}

// ConnectionManager handles database connection lifecycle.
type ConnectionManager interface {
	// Close the connection to the database.
	Close(ctx context.Context)
}

// Database interface combines all three managers into a single interface.
// This allows for a unified database access layer while maintaining
// separation of concerns.
type Database interface {
	SourceManager
	MetadataManager
	ConnectionManager
}

var pool dbmanager.Db

// Init initializes the database connection pool.
// It attempts to create a new database connection pool and panics on failure.
func Init() {
	ctx := log.Logger.WithContext(context.Background())
	pg := dbmanager.NewDb(ctx, "postgresql")
	if pg == nil {
		panic("unable to create db pool")
	}
	pool = pg
}

// Conn returns a new database connection from the pool.
// Returns an error if the connection cannot be established.
func Conn(ctx context.Context) (dbmanager.Conn, error) {
	if pool != nil {
		conn, err := pool.Conn(ctx)
		if err == nil {
			return conn, nil
		}
		log.Ctx(ctx).Error().Err(err).Msg("unable to get db connection")
		return nil, err
	}
	return nil, fmt.Errorf("database pool not initialized")
}

type ctxDbKeyType string

const ctxDbKey ctxDbKeyType = "SkyModelDb"

// ConnCtx adds a database connection to the context.
// Returns an error if the connection cannot be established.
func ConnCtx(ctx context.Context) (context.Context, error) {
	conn, err := Conn(ctx)
	if err != nil {
		return nil, err
	}
	return context.WithValue(ctx, ctxDbKey, conn), nil
}

type skyModelDb struct {
	SourceManager
	MetadataManager
	ConnectionManager
}

// DB returns a new database instance from the context.
// It expects a valid database connection in the context.
// Returns nil if no connection is found in the context.
func DB(ctx context.Context) Database {
	if conn, ok := ctx.Value(ctxDbKey).(dbmanager.Conn); ok {
		sm, mm, cm := postgresql.NewSkyModelDb(conn)
		return &skyModelDb{
			SourceManager:     sm,
			MetadataManager:   mm,
			ConnectionManager: cm,
		}
	}
	log.Ctx(ctx).Error().Msg("unable to get db connection from context")
	return nil
}
