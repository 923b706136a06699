// Package catalogmanager implements the catalogue service semantics on top
// of the db layer: the staged upload workflow (upload, status, review,
// commit, reject), catalogue version resolution, and the cone-search query
// engine.
package catalogmanager

import (
	"context"

	"github.com/skymodel/skymodel/internal/common/apperrors"
	"github.com/skymodel/skymodel/internal/common/uuid"
	"github.com/skymodel/skymodel/internal/gsmsrv/cache"
	"github.com/skymodel/skymodel/internal/gsmsrv/config"
	"github.com/skymodel/skymodel/internal/gsmsrv/db"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/models"
	"github.com/skymodel/skymodel/internal/gsmsrv/healpix"
	"github.com/skymodel/skymodel/internal/gsmsrv/uploadmanager"
)

// Store is the slice of the db layer the manager depends on. It exists so
// tests can substitute a failing store and verify that the workflow keeps
// its atomicity guarantees.
type Store interface {
	CountStaging(ctx context.Context, uploadID uuid.UUID) (int64, apperrors.Error)
	SampleStaging(ctx context.Context, uploadID uuid.UUID, n int) ([]*models.SkyComponentStaging, apperrors.Error)
	DeleteStaging(ctx context.Context, uploadID uuid.UUID) (int64, apperrors.Error)
	CommitUpload(ctx context.Context, meta *models.CatalogueMetadata, pixelFn db.PixelFunc) (int64, apperrors.Error)
	GetComponentsByPixelRanges(ctx context.Context, ranges []models.PixelRange, refs []models.VersionRef) ([]*models.SkyComponent, apperrors.Error)
	ListMetadata(ctx context.Context, catalogueName, version string) ([]*models.CatalogueMetadata, apperrors.Error)
	ListCatalogueVersions(ctx context.Context, catalogueName string) ([]string, apperrors.Error)
	GetMetadataByVersion(ctx context.Context, catalogueName, version string) (*models.CatalogueMetadata, apperrors.Error)
}

// dbStore is the production Store, backed by the connection in the request
// context.
type dbStore struct{}

func (dbStore) CountStaging(ctx context.Context, uploadID uuid.UUID) (int64, apperrors.Error) {
	return db.DB(ctx).CountStaging(ctx, uploadID)
}

func (dbStore) SampleStaging(ctx context.Context, uploadID uuid.UUID, n int) ([]*models.SkyComponentStaging, apperrors.Error) {
	return db.DB(ctx).SampleStaging(ctx, uploadID, n)
}

func (dbStore) DeleteStaging(ctx context.Context, uploadID uuid.UUID) (int64, apperrors.Error) {
	return db.DB(ctx).DeleteStaging(ctx, uploadID)
}

func (dbStore) CommitUpload(ctx context.Context, meta *models.CatalogueMetadata, pixelFn db.PixelFunc) (int64, apperrors.Error) {
	return db.DB(ctx).CommitUpload(ctx, meta, pixelFn)
}

func (dbStore) GetComponentsByPixelRanges(ctx context.Context, ranges []models.PixelRange, refs []models.VersionRef) ([]*models.SkyComponent, apperrors.Error) {
	return db.DB(ctx).GetComponentsByPixelRanges(ctx, ranges, refs)
}

func (dbStore) ListMetadata(ctx context.Context, catalogueName, version string) ([]*models.CatalogueMetadata, apperrors.Error) {
	return db.DB(ctx).ListMetadata(ctx, catalogueName, version)
}

func (dbStore) ListCatalogueVersions(ctx context.Context, catalogueName string) ([]string, apperrors.Error) {
	return db.DB(ctx).ListCatalogueVersions(ctx, catalogueName)
}

func (dbStore) GetMetadataByVersion(ctx context.Context, catalogueName, version string) (*models.CatalogueMetadata, apperrors.Error) {
	return db.DB(ctx).GetMetadataByVersion(ctx, catalogueName, version)
}

// Manager is the catalogue service facade used by the HTTP handlers.
type Manager struct {
	store    Store
	uploads  *uploadmanager.Manager
	versions *cache.VersionCache

	coarseNside int
	fineNside   int
	sampleSize  int
}

// NewManager returns a manager wired to the real db layer. versions may be
// nil when the cache is disabled.
func NewManager(uploads *uploadmanager.Manager, versions *cache.VersionCache) *Manager {
	cfg := config.Config()
	return &Manager{
		store:       dbStore{},
		uploads:     uploads,
		versions:    versions,
		coarseNside: cfg.Healpix.CoarseNside,
		fineNside:   cfg.Healpix.FineNside,
		sampleSize:  cfg.Upload.ReviewSampleSize,
	}
}

func newManagerWithStore(store Store, uploads *uploadmanager.Manager) *Manager {
	cfg := config.Config()
	return &Manager{
		store:       store,
		uploads:     uploads,
		versions:    nil,
		coarseNside: cfg.Healpix.CoarseNside,
		fineNside:   cfg.Healpix.FineNside,
		sampleSize:  cfg.Upload.ReviewSampleSize,
	}
}

// pixelFn returns the fine-resolution pixelization used for committed rows.
func (m *Manager) pixelFn() db.PixelFunc {
	nside := m.fineNside
	return func(ra, dec float64) int64 {
		return healpix.PixelIndex(ra, dec, nside)
	}
}
