package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/common/apperrors"
	"github.com/skymodel/skymodel/internal/common/uuid"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/dberror"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/models"
)

// CommitUpload promotes all staged components of an upload into the main
// catalogue under the version named in meta, writes the metadata row, and
// removes the staging rows, all in one transaction. The healpix index of
// every component is recomputed through pixelFn before insertion.
//
// Commits for the same catalogue name are serialized with a transaction-level
// advisory lock, so the version monotonicity check cannot race. Any failure
// rolls back the entire transaction and leaves the staged rows intact.
//
// Returns the number of components committed.
func (sm *sourceManager) CommitUpload(ctx context.Context, meta *models.CatalogueMetadata, pixelFn PixelFunc) (count int64, err apperrors.Error) {
	if meta == nil || meta.UploadID == uuid.Nil {
		return 0, dberror.ErrInvalidInput.Msg("upload ID is required")
	}
	if meta.CatalogueName == "" {
		return 0, dberror.ErrInvalidInput.Msg("catalogue name is required")
	}
	newVersion, errv := semver.StrictNewVersion(meta.Version)
	if errv != nil {
		return 0, dberror.ErrInvalidInput.Msg("invalid version: " + meta.Version)
	}
	if pixelFn == nil {
		return 0, dberror.ErrInvalidInput.Msg("pixel function is required")
	}

	tx, errdb := sm.conn().BeginTx(ctx, &sql.TxOptions{})
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to start transaction")
		return 0, dberror.ErrDatabase.Err(errdb)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				log.Ctx(ctx).Error().Err(rollbackErr).Msg("failed to rollback transaction")
			}
		}
	}()

	// serialize commits per catalogue name; released at commit or rollback
	if _, errdb := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1));`, meta.CatalogueName); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Str("catalogue_name", meta.CatalogueName).Msg("failed to acquire commit lock")
		return 0, dberror.ErrDatabase.Err(errdb)
	}

	if err := checkVersionIncrement(ctx, tx, meta.CatalogueName, newVersion); err != nil {
		return 0, err
	}

	staged, err := readStagedForCommit(ctx, tx, meta)
	if err != nil {
		return 0, err
	}
	if len(staged) == 0 {
		return 0, dberror.ErrNotFound.Msg("no staged components for upload " + meta.UploadID.String())
	}

	insertQuery := `
		INSERT INTO sky_component
			(component_id, ra, dec, healpix_index, i_pol, q_pol, u_pol, v_pol,
			 major_ax, minor_ax, pos_ang, pol_frac, pol_ang, rot_meas,
			 spec_idx, log_spec_idx, catalogue_name, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
	`
	stmt, errdb := tx.PrepareContext(ctx, insertQuery)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to prepare component insert")
		return 0, dberror.ErrDatabase.Err(errdb)
	}
	defer stmt.Close()

	for _, c := range staged {
		pixel := pixelFn(c.RA, c.Dec)
		_, errdb := stmt.ExecContext(ctx, c.ComponentID, c.RA, c.Dec, pixel, c.IPol,
			c.QPol, c.UPol, c.VPol, c.MajorAx, c.MinorAx, c.PosAng,
			c.PolFrac, c.PolAng, c.RotMeas, c.SpecIdx, c.LogSpecIdx, meta.CatalogueName, meta.Version)
		if errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Str("component_id", c.ComponentID).Msg("failed to insert component")
			return 0, dberror.ErrDatabase.Err(errdb)
		}
	}

	metaQuery := `
		INSERT INTO gsm_metadata
			(version, catalogue_name, description, ref_freq, epoch, author, reference, notes, upload_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, uploaded_at;
	`
	errdb = tx.QueryRowContext(ctx, metaQuery, meta.Version, meta.CatalogueName, meta.Description,
		meta.RefFreq, meta.Epoch, meta.Author, meta.Reference, meta.Notes, meta.UploadID).
		Scan(&meta.ID, &meta.UploadedAt)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Str("catalogue_name", meta.CatalogueName).Msg("failed to insert catalogue metadata")
		return 0, dberror.ErrDatabase.Err(errdb)
	}

	if _, errdb := tx.ExecContext(ctx, `DELETE FROM sky_component_staging WHERE upload_id = $1;`, meta.UploadID); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to clear staging")
		return 0, dberror.ErrDatabase.Err(errdb)
	}

	if errdb := tx.Commit(); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to commit transaction")
		return 0, dberror.ErrDatabase.Err(errdb)
	}

	log.Ctx(ctx).Info().
		Str("catalogue_name", meta.CatalogueName).
		Str("version", meta.Version).
		Int("components", len(staged)).
		Msg("upload committed")
	return int64(len(staged)), nil
}

// checkVersionIncrement enforces that the new version is strictly greater
// than every committed version of the catalogue. Runs under the advisory
// lock so concurrent commits observe each other.
func checkVersionIncrement(ctx context.Context, tx *sql.Tx, catalogueName string, newVersion *semver.Version) apperrors.Error {
	rows, errdb := tx.QueryContext(ctx, `SELECT version FROM gsm_metadata WHERE catalogue_name = $1;`, catalogueName)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to read committed versions")
		return dberror.ErrDatabase.Err(errdb)
	}
	defer rows.Close()

	for rows.Next() {
		var v string
		if errdb := rows.Scan(&v); errdb != nil {
			return dberror.ErrDatabase.Err(errdb)
		}
		existing, errv := semver.NewVersion(v)
		if errv != nil {
			// committed versions are validated on the way in; treat a bad one as fatal
			return dberror.ErrDatabase.Err(fmt.Errorf("stored version %q is not a semantic version: %w", v, errv))
		}
		if newVersion.Equal(existing) {
			return dberror.ErrVersionConflict.Msg(fmt.Sprintf(
				"version %s already exists for catalogue %s", newVersion, catalogueName))
		}
		if newVersion.LessThan(existing) {
			return dberror.ErrVersionConflict.Msg(fmt.Sprintf(
				"version %s must be greater than existing version %s for catalogue %s", newVersion, existing, catalogueName))
		}
	}
	if errdb := rows.Err(); errdb != nil {
		return dberror.ErrDatabase.Err(errdb)
	}
	return nil
}

// readStagedForCommit loads the staged rows for the upload inside the commit
// transaction. All rows must be read before further statements run on the
// connection, so the batch is materialized.
func readStagedForCommit(ctx context.Context, tx *sql.Tx, meta *models.CatalogueMetadata) ([]*models.SkyComponentStaging, apperrors.Error) {
	query := `
		SELECT ` + stagingColumns + `
		FROM sky_component_staging
		WHERE upload_id = $1
		ORDER BY id ASC;
	`
	rows, errdb := tx.QueryContext(ctx, query, meta.UploadID)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to read staged components")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	defer rows.Close()

	var staged []*models.SkyComponentStaging
	for rows.Next() {
		c, errdb := scanStagingRow(rows)
		if errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Msg("failed to scan staged component")
			return nil, dberror.ErrDatabase.Err(errdb)
		}
		staged = append(staged, c)
	}
	if errdb := rows.Err(); errdb != nil {
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return staged, nil
}
