package catalogmanager

import (
	"github.com/skymodel/skymodel/internal/common/apperrors"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/models"
	"github.com/skymodel/skymodel/internal/gsmsrv/gsmcommon"
)

// SourceView is the client-facing shape of one sky component. Positions are
// in degrees; storage uses radians.
type SourceView struct {
	ComponentID   string    `json:"component_id"`
	RA            float64   `json:"ra"`
	Dec           float64   `json:"dec"`
	IPol          float64   `json:"i_pol"`
	QPol          *float64  `json:"q_pol,omitempty"`
	UPol          *float64  `json:"u_pol,omitempty"`
	VPol          *float64  `json:"v_pol,omitempty"`
	MajorAx       *float64  `json:"major_ax,omitempty"`
	MinorAx       *float64  `json:"minor_ax,omitempty"`
	PosAng        *float64  `json:"pos_ang,omitempty"`
	PolFrac       *float64  `json:"pol_frac,omitempty"`
	PolAng        *float64  `json:"pol_ang,omitempty"`
	RotMeas       *float64  `json:"rot_meas,omitempty"`
	SpecIdx       []float64 `json:"spec_idx"`
	LogSpecIdx    *bool     `json:"log_spec_idx,omitempty"`
	CatalogueName string    `json:"catalogue_name,omitempty"`
	Version       string    `json:"version,omitempty"`
}

func viewFromComponent(c *models.SkyComponent) (SourceView, apperrors.Error) {
	coeffs, err := c.SpecIdxCoefficients()
	if err != nil {
		return SourceView{}, apperrors.New("failed to decode spectral index for " + c.ComponentID).Err(err)
	}
	return SourceView{
		ComponentID:   c.ComponentID,
		RA:            gsmcommon.RadToDeg(c.RA),
		Dec:           gsmcommon.RadToDeg(c.Dec),
		IPol:          c.IPol,
		QPol:          c.QPol,
		UPol:          c.UPol,
		VPol:          c.VPol,
		MajorAx:       c.MajorAx,
		MinorAx:       c.MinorAx,
		PosAng:        c.PosAng,
		PolFrac:       c.PolFrac,
		PolAng:        c.PolAng,
		RotMeas:       c.RotMeas,
		SpecIdx:       coeffs,
		LogSpecIdx:    c.LogSpecIdx,
		CatalogueName: c.CatalogueName,
		Version:       c.Version,
	}, nil
}

func viewFromStaging(c *models.SkyComponentStaging) (SourceView, apperrors.Error) {
	coeffs, err := c.SpecIdxCoefficients()
	if err != nil {
		return SourceView{}, apperrors.New("failed to decode spectral index for " + c.ComponentID).Err(err)
	}
	return SourceView{
		ComponentID: c.ComponentID,
		RA:          gsmcommon.RadToDeg(c.RA),
		Dec:         gsmcommon.RadToDeg(c.Dec),
		IPol:        c.IPol,
		QPol:        c.QPol,
		UPol:        c.UPol,
		VPol:        c.VPol,
		MajorAx:     c.MajorAx,
		MinorAx:     c.MinorAx,
		PosAng:      c.PosAng,
		PolFrac:     c.PolFrac,
		PolAng:      c.PolAng,
		RotMeas:     c.RotMeas,
		SpecIdx:     coeffs,
		LogSpecIdx:  c.LogSpecIdx,
	}, nil
}
