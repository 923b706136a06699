package postgresql

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/common/apperrors"
	"github.com/skymodel/skymodel/internal/common/uuid"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/dberror"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/models"
)

// InsertStagingComponents stages the given components for an upload in a
// single transaction. Either all rows of the batch become visible to review
// or none do. A duplicate (component_id, upload_id) pair fails the batch.
func (sm *sourceManager) InsertStagingComponents(ctx context.Context, uploadID uuid.UUID, comps []*models.SkyComponentStaging) (err apperrors.Error) {
	if uploadID == uuid.Nil {
		return dberror.ErrInvalidInput.Msg("upload ID is required")
	}
	if len(comps) == 0 {
		return nil
	}

	tx, errdb := sm.conn().BeginTx(ctx, &sql.TxOptions{})
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to start transaction")
		return dberror.ErrDatabase.Err(errdb)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				log.Ctx(ctx).Error().Err(rollbackErr).Msg("failed to rollback transaction")
			}
		}
	}()

	query := `
		INSERT INTO sky_component_staging
			(upload_id, component_id, ra, dec, i_pol, q_pol, u_pol, v_pol,
			 major_ax, minor_ax, pos_ang, pol_frac, pol_ang, rot_meas,
			 spec_idx, log_spec_idx)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (component_id, upload_id) DO NOTHING
		RETURNING id;
	`

	stmt, errdb := tx.PrepareContext(ctx, query)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to prepare staging insert")
		return dberror.ErrDatabase.Err(errdb)
	}
	defer stmt.Close()

	for _, c := range comps {
		var insertedID int64
		errdb := stmt.QueryRowContext(ctx, uploadID, c.ComponentID, c.RA, c.Dec, c.IPol,
			c.QPol, c.UPol, c.VPol, c.MajorAx, c.MinorAx, c.PosAng,
			c.PolFrac, c.PolAng, c.RotMeas, c.SpecIdx, c.LogSpecIdx).Scan(&insertedID)
		if errdb != nil {
			if errdb == sql.ErrNoRows {
				log.Ctx(ctx).Info().Str("component_id", c.ComponentID).Str("upload_id", uploadID.String()).Msg("component already staged")
				return dberror.ErrAlreadyExists.Msg("component already staged: " + c.ComponentID)
			}
			log.Ctx(ctx).Error().Err(errdb).Str("component_id", c.ComponentID).Msg("failed to stage component")
			return dberror.ErrDatabase.Err(errdb)
		}
		c.ID = insertedID
		c.UploadID = uploadID
	}

	if errdb := tx.Commit(); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to commit transaction")
		return dberror.ErrDatabase.Err(errdb)
	}

	return nil
}

// CountStaging returns the number of staged components for an upload.
func (sm *sourceManager) CountStaging(ctx context.Context, uploadID uuid.UUID) (int64, apperrors.Error) {
	if uploadID == uuid.Nil {
		return 0, dberror.ErrInvalidInput.Msg("upload ID is required")
	}

	query := `
		SELECT COUNT(*) FROM sky_component_staging
		WHERE upload_id = $1;
	`
	var count int64
	errdb := sm.conn().QueryRowContext(ctx, query, uploadID).Scan(&count)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Str("upload_id", uploadID.String()).Msg("failed to count staged components")
		return 0, dberror.ErrDatabase.Err(errdb)
	}
	return count, nil
}

const stagingColumns = `id, upload_id, component_id, ra, dec, i_pol, q_pol, u_pol, v_pol,
	major_ax, minor_ax, pos_ang, pol_frac, pol_ang, rot_meas, spec_idx, log_spec_idx`

func scanStagingRow(rows *sql.Rows) (*models.SkyComponentStaging, error) {
	var c models.SkyComponentStaging
	err := rows.Scan(&c.ID, &c.UploadID, &c.ComponentID, &c.RA, &c.Dec, &c.IPol,
		&c.QPol, &c.UPol, &c.VPol, &c.MajorAx, &c.MinorAx, &c.PosAng,
		&c.PolFrac, &c.PolAng, &c.RotMeas, &c.SpecIdx, &c.LogSpecIdx)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SampleStaging returns the most recently staged n components for an upload.
// Used by the review operation.
func (sm *sourceManager) SampleStaging(ctx context.Context, uploadID uuid.UUID, n int) ([]*models.SkyComponentStaging, apperrors.Error) {
	if uploadID == uuid.Nil {
		return nil, dberror.ErrInvalidInput.Msg("upload ID is required")
	}
	if n <= 0 {
		return nil, dberror.ErrInvalidInput.Msg("sample size must be positive")
	}

	query := `
		SELECT ` + stagingColumns + `
		FROM sky_component_staging
		WHERE upload_id = $1
		ORDER BY id DESC
		LIMIT $2;
	`
	rows, errdb := sm.conn().QueryContext(ctx, query, uploadID, n)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Str("upload_id", uploadID.String()).Msg("failed to sample staged components")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	defer rows.Close()

	var comps []*models.SkyComponentStaging
	for rows.Next() {
		c, errdb := scanStagingRow(rows)
		if errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Msg("failed to scan staged component")
			return nil, dberror.ErrDatabase.Err(errdb)
		}
		comps = append(comps, c)
	}
	if errdb := rows.Err(); errdb != nil {
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return comps, nil
}

// DeleteStaging removes all staged components for an upload and returns the
// number of rows removed. Deleting an upload with no staged rows is not an
// error at this layer; callers decide whether zero is a conflict.
func (sm *sourceManager) DeleteStaging(ctx context.Context, uploadID uuid.UUID) (int64, apperrors.Error) {
	if uploadID == uuid.Nil {
		return 0, dberror.ErrInvalidInput.Msg("upload ID is required")
	}

	query := `
		DELETE FROM sky_component_staging
		WHERE upload_id = $1;
	`
	res, errdb := sm.conn().ExecContext(ctx, query, uploadID)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Str("upload_id", uploadID.String()).Msg("failed to delete staged components")
		return 0, dberror.ErrDatabase.Err(errdb)
	}
	deleted, errdb := res.RowsAffected()
	if errdb != nil {
		return 0, dberror.ErrDatabase.Err(errdb)
	}
	return deleted, nil
}
