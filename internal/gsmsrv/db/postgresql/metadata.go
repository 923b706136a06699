package postgresql

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/common/apperrors"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/dberror"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/models"
)

const metadataColumns = `id, version, catalogue_name, description, ref_freq, epoch,
	author, reference, notes, upload_id, uploaded_at`

func scanMetadataRow(rows *sql.Rows) (*models.CatalogueMetadata, error) {
	var m models.CatalogueMetadata
	err := rows.Scan(&m.ID, &m.Version, &m.CatalogueName, &m.Description, &m.RefFreq,
		&m.Epoch, &m.Author, &m.Reference, &m.Notes, &m.UploadID, &m.UploadedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMetadata returns committed catalogue metadata, optionally filtered by
// catalogue name and version. Empty filters match everything. Results are
// ordered by name then commit time.
func (mm *metadataManager) ListMetadata(ctx context.Context, catalogueName, version string) ([]*models.CatalogueMetadata, apperrors.Error) {
	query := `
		SELECT ` + metadataColumns + `
		FROM gsm_metadata
		WHERE ($1 = '' OR catalogue_name = $1)
		AND ($2 = '' OR version = $2)
		ORDER BY catalogue_name ASC, uploaded_at ASC;
	`
	rows, errdb := mm.conn().QueryContext(ctx, query, catalogueName, version)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to list catalogue metadata")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	defer rows.Close()

	var metas []*models.CatalogueMetadata
	for rows.Next() {
		m, errdb := scanMetadataRow(rows)
		if errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Msg("failed to scan catalogue metadata")
			return nil, dberror.ErrDatabase.Err(errdb)
		}
		metas = append(metas, m)
	}
	if errdb := rows.Err(); errdb != nil {
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return metas, nil
}

// ListCatalogueVersions returns all committed versions for a catalogue name,
// in commit order. An unknown catalogue yields an empty list, not an error.
func (mm *metadataManager) ListCatalogueVersions(ctx context.Context, catalogueName string) ([]string, apperrors.Error) {
	if catalogueName == "" {
		return nil, dberror.ErrInvalidInput.Msg("catalogue name is required")
	}

	query := `
		SELECT version FROM gsm_metadata
		WHERE catalogue_name = $1
		ORDER BY uploaded_at ASC;
	`
	rows, errdb := mm.conn().QueryContext(ctx, query, catalogueName)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Str("catalogue_name", catalogueName).Msg("failed to list catalogue versions")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if errdb := rows.Scan(&v); errdb != nil {
			return nil, dberror.ErrDatabase.Err(errdb)
		}
		versions = append(versions, v)
	}
	if errdb := rows.Err(); errdb != nil {
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return versions, nil
}

// GetMetadataByVersion returns the metadata row for one catalogue version.
func (mm *metadataManager) GetMetadataByVersion(ctx context.Context, catalogueName, version string) (*models.CatalogueMetadata, apperrors.Error) {
	if catalogueName == "" || version == "" {
		return nil, dberror.ErrInvalidInput.Msg("catalogue name and version are required")
	}

	query := `
		SELECT ` + metadataColumns + `
		FROM gsm_metadata
		WHERE catalogue_name = $1 AND version = $2;
	`
	rows, errdb := mm.conn().QueryContext(ctx, query, catalogueName, version)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to get catalogue metadata")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	defer rows.Close()

	if !rows.Next() {
		if errdb := rows.Err(); errdb != nil {
			return nil, dberror.ErrDatabase.Err(errdb)
		}
		log.Ctx(ctx).Info().Str("catalogue_name", catalogueName).Str("version", version).Msg("catalogue metadata not found")
		return nil, dberror.ErrNotFound.Msg("catalogue metadata not found")
	}
	m, errdb := scanMetadataRow(rows)
	if errdb != nil {
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return m, nil
}
