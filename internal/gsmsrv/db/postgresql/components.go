package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/common/apperrors"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/dberror"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/models"
)

const componentColumns = `id, component_id, ra, dec, healpix_index, i_pol, q_pol, u_pol, v_pol,
	major_ax, minor_ax, pos_ang, pol_frac, pol_ang, rot_meas, spec_idx, log_spec_idx,
	catalogue_name, version`

func scanComponentRow(rows *sql.Rows) (*models.SkyComponent, error) {
	var c models.SkyComponent
	err := rows.Scan(&c.ID, &c.ComponentID, &c.RA, &c.Dec, &c.HealpixIndex, &c.IPol,
		&c.QPol, &c.UPol, &c.VPol, &c.MajorAx, &c.MinorAx, &c.PosAng,
		&c.PolFrac, &c.PolAng, &c.RotMeas, &c.SpecIdx, &c.LogSpecIdx,
		&c.CatalogueName, &c.Version)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetComponentsByPixelRanges returns the committed components whose
// healpix_index falls in any of the given ranges and that belong to one of
// the given catalogue versions. The ranges come from a disc cover, so the
// result is a candidate superset; callers apply the exact angular filter.
func (sm *sourceManager) GetComponentsByPixelRanges(ctx context.Context, ranges []models.PixelRange, refs []models.VersionRef) ([]*models.SkyComponent, apperrors.Error) {
	if len(ranges) == 0 || len(refs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, 2*len(refs)+2*len(ranges))
	ph := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	refPh := make([]string, 0, len(refs))
	for _, ref := range refs {
		name := ph(ref.CatalogueName)
		version := ph(ref.Version)
		refPh = append(refPh, fmt.Sprintf("(%s, %s)", name, version))
	}

	rangePreds := make([]string, 0, len(ranges))
	for _, r := range ranges {
		lo := ph(r.Lo)
		hi := ph(r.Hi)
		rangePreds = append(rangePreds, fmt.Sprintf("(healpix_index >= %s AND healpix_index < %s)", lo, hi))
	}

	query := `
		SELECT ` + componentColumns + `
		FROM sky_component
		WHERE (catalogue_name, version) IN (` + strings.Join(refPh, ", ") + `)
		AND (` + strings.Join(rangePreds, " OR ") + `);
	`

	rows, errdb := sm.conn().QueryContext(ctx, query, args...)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Int("ranges", len(ranges)).Msg("failed to query components by pixel ranges")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	defer rows.Close()

	var comps []*models.SkyComponent
	for rows.Next() {
		c, errdb := scanComponentRow(rows)
		if errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Msg("failed to scan component")
			return nil, dberror.ErrDatabase.Err(errdb)
		}
		comps = append(comps, c)
	}
	if errdb := rows.Err(); errdb != nil {
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return comps, nil
}

// CountComponents returns the number of committed components in one
// catalogue version.
func (sm *sourceManager) CountComponents(ctx context.Context, ref models.VersionRef) (int64, apperrors.Error) {
	if ref.CatalogueName == "" || ref.Version == "" {
		return 0, dberror.ErrInvalidInput.Msg("catalogue name and version are required")
	}
	query := `
		SELECT COUNT(*) FROM sky_component
		WHERE catalogue_name = $1 AND version = $2;
	`
	var count int64
	errdb := sm.conn().QueryRowContext(ctx, query, ref.CatalogueName, ref.Version).Scan(&count)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Str("catalogue_name", ref.CatalogueName).Str("version", ref.Version).Msg("failed to count components")
		return 0, dberror.ErrDatabase.Err(errdb)
	}
	return count, nil
}
