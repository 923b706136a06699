package models

import (
	"github.com/jackc/pgtype"
	"github.com/skymodel/skymodel/internal/common/uuid"
)

/*
     Column     |          Type          | Collation | Nullable |      Default
----------------+------------------------+-----------+----------+--------------------
 id             | bigint                 |           | not null | generated always as identity
 component_id   | character varying(64)  |           | not null |
 ra             | double precision       |           | not null |
 dec            | double precision       |           | not null |
 healpix_index  | bigint                 |           | not null |
 i_pol          | double precision       |           | not null |
 q_pol          | double precision       |           |          |
 u_pol          | double precision       |           |          |
 v_pol          | double precision       |           |          |
 major_ax       | double precision       |           |          |
 minor_ax       | double precision       |           |          |
 pos_ang        | double precision       |           |          |
 pol_frac       | double precision       |           |          |
 pol_ang        | double precision       |           |          |
 rot_meas       | double precision       |           |          |
 spec_idx       | jsonb                  |           |          |
 log_spec_idx   | boolean                |           |          |
 catalogue_name | character varying(128) |           | not null |
 version        | character varying(64)  |           | not null |

 UNIQUE (component_id, catalogue_name, version)
*/

// SkyComponent is a committed catalogue source. Coordinates are stored in
// radians; healpix_index is the nested-scheme pixel at the configured fine
// resolution, computed at commit time.
type SkyComponent struct {
	ID            int64        `db:"id"`
	ComponentID   string       `db:"component_id"`
	RA            float64      `db:"ra"`
	Dec           float64      `db:"dec"`
	HealpixIndex  int64        `db:"healpix_index"`
	IPol          float64      `db:"i_pol"`
	QPol          *float64     `db:"q_pol"`
	UPol          *float64     `db:"u_pol"`
	VPol          *float64     `db:"v_pol"`
	MajorAx       *float64     `db:"major_ax"`
	MinorAx       *float64     `db:"minor_ax"`
	PosAng        *float64     `db:"pos_ang"`
	PolFrac       *float64     `db:"pol_frac"`
	PolAng        *float64     `db:"pol_ang"`
	RotMeas       *float64     `db:"rot_meas"`
	SpecIdx       pgtype.JSONB `db:"spec_idx"`
	LogSpecIdx    *bool        `db:"log_spec_idx"`
	CatalogueName string       `db:"catalogue_name"`
	Version       string       `db:"version"`
}

// SetSpecIdx stores the spectral index coefficients in the JSONB column value.
func (c *SkyComponent) SetSpecIdx(coeffs []float64) error {
	if coeffs == nil {
		c.SpecIdx = pgtype.JSONB{Status: pgtype.Null}
		return nil
	}
	return c.SpecIdx.Set(coeffs)
}

// SpecIdxCoefficients decodes the spectral index coefficients from the JSONB
// column value. Returns nil for a null column.
func (c *SkyComponent) SpecIdxCoefficients() ([]float64, error) {
	if c.SpecIdx.Status != pgtype.Present {
		return nil, nil
	}
	var coeffs []float64
	if err := c.SpecIdx.AssignTo(&coeffs); err != nil {
		return nil, err
	}
	return coeffs, nil
}

/*
 sky_component_staging mirrors sky_component, with upload_id in place of
 version and healpix_index. Rows are keyed by (component_id, upload_id) and
 are invisible to cone searches until committed.
*/

// SkyComponentStaging is a staged source awaiting commit or reject.
type SkyComponentStaging struct {
	ID          int64        `db:"id"`
	UploadID    uuid.UUID    `db:"upload_id"`
	ComponentID string       `db:"component_id"`
	RA          float64      `db:"ra"`
	Dec         float64      `db:"dec"`
	IPol        float64      `db:"i_pol"`
	QPol        *float64     `db:"q_pol"`
	UPol        *float64     `db:"u_pol"`
	VPol        *float64     `db:"v_pol"`
	MajorAx     *float64     `db:"major_ax"`
	MinorAx     *float64     `db:"minor_ax"`
	PosAng      *float64     `db:"pos_ang"`
	PolFrac     *float64     `db:"pol_frac"`
	PolAng      *float64     `db:"pol_ang"`
	RotMeas     *float64     `db:"rot_meas"`
	SpecIdx     pgtype.JSONB `db:"spec_idx"`
	LogSpecIdx  *bool        `db:"log_spec_idx"`
}

// SetSpecIdx stores the spectral index coefficients in the JSONB column value.
func (c *SkyComponentStaging) SetSpecIdx(coeffs []float64) error {
	if coeffs == nil {
		c.SpecIdx = pgtype.JSONB{Status: pgtype.Null}
		return nil
	}
	return c.SpecIdx.Set(coeffs)
}

// SpecIdxCoefficients decodes the spectral index coefficients from the JSONB
// column value. Returns nil for a null column.
func (c *SkyComponentStaging) SpecIdxCoefficients() ([]float64, error) {
	if c.SpecIdx.Status != pgtype.Present {
		return nil, nil
	}
	var coeffs []float64
	if err := c.SpecIdx.AssignTo(&coeffs); err != nil {
		return nil, err
	}
	return coeffs, nil
}

// VersionRef identifies one committed catalogue version. Version strings are
// only unique within a catalogue name, so committed rows are always addressed
// by the pair.
type VersionRef struct {
	CatalogueName string `json:"catalogue_name"`
	Version       string `json:"version"`
}

// PixelRange is a half-open range [Lo, Hi) of fine healpix indices. Cone
// searches restrict component scans to a set of these ranges.
type PixelRange struct {
	Lo int64
	Hi int64
}
