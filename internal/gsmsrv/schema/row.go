// Package schema declares the sky component row schema and the validation
// engine applied to uploaded source files. The schema is fixed: source files
// are flat CSV tables with one component per row, and every row must satisfy
// the same field constraints regardless of catalogue.
package schema

import (
	"strconv"
	"strings"
)

// MaxSpecIdxCoefficients is the maximum number of spectral index polynomial
// coefficients a component may carry.
const MaxSpecIdxCoefficients = 5

// DefaultSpecIdx is the spectral index assumed when a source file omits the
// spec_idx column.
var DefaultSpecIdx = []float64{-0.7}

// Row is one sky component as parsed from a source file. Coordinates are in
// degrees as uploaded; conversion to radians happens when rows are staged.
type Row struct {
	Line        int    // 1-based data row number within the source file
	ComponentID string `json:"component_id"`
	RA          float64 `json:"ra"`
	Dec         float64 `json:"dec"`
	IPol        float64 `json:"i_pol"`

	QPol    *float64 `json:"q_pol,omitempty"`
	UPol    *float64 `json:"u_pol,omitempty"`
	VPol    *float64 `json:"v_pol,omitempty"`
	MajorAx *float64 `json:"major_ax,omitempty"`
	MinorAx *float64 `json:"minor_ax,omitempty"`
	PosAng  *float64 `json:"pos_ang,omitempty"`
	PolFrac *float64 `json:"pol_frac,omitempty"`
	PolAng  *float64 `json:"pol_ang,omitempty"`
	RotMeas *float64 `json:"rot_meas,omitempty"`

	SpecIdx    []float64 `json:"spec_idx"`
	LogSpecIdx *bool     `json:"log_spec_idx,omitempty"`
}

// requiredFields are the columns every source file must provide per row.
var requiredFields = []string{"component_id", "ra", "dec", "i_pol"}

// optionalNumericFields maps optional column names to their Row destination.
func optionalNumericFields(row *Row) map[string]**float64 {
	return map[string]**float64{
		"q_pol":    &row.QPol,
		"u_pol":    &row.UPol,
		"v_pol":    &row.VPol,
		"major_ax": &row.MajorAx,
		"minor_ax": &row.MinorAx,
		"pos_ang":  &row.PosAng,
		"pol_frac": &row.PolFrac,
		"pol_ang":  &row.PolAng,
		"rot_meas": &row.RotMeas,
	}
}

// ParseRow converts one record of raw cell values into a Row, collecting one
// ValidationError per bad field rather than failing fast. The returned row is
// nil when any error was found.
func ParseRow(cells map[string]string, line int) (*Row, ValidationErrors) {
	var errs ValidationErrors
	row := &Row{Line: line}

	row.ComponentID = strings.TrimSpace(cells["component_id"])
	if row.ComponentID == "" {
		errs = append(errs, ValidationError{Line: line, Field: "component_id", ErrStr: "required field is missing"})
	}

	addErr := func(field, msg string) {
		errs = append(errs, ValidationError{Line: line, ComponentID: row.ComponentID, Field: field, ErrStr: msg})
	}

	parseRequired := func(field string, dst *float64) {
		raw := strings.TrimSpace(cells[field])
		if raw == "" {
			addErr(field, "required field is missing")
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			addErr(field, "not a number: "+raw)
			return
		}
		*dst = v
	}

	parseRequired("ra", &row.RA)
	parseRequired("dec", &row.Dec)
	parseRequired("i_pol", &row.IPol)

	for field, dst := range optionalNumericFields(row) {
		raw := strings.TrimSpace(cells[field])
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			addErr(field, "not a number: "+raw)
			continue
		}
		*dst = &v
	}

	specIdx, specErr := ParseSpecIdx(cells["spec_idx"])
	if specErr != "" {
		addErr("spec_idx", specErr)
	} else {
		row.SpecIdx = specIdx
	}

	if raw := strings.TrimSpace(cells["log_spec_idx"]); raw != "" {
		switch strings.ToLower(raw) {
		case "true":
			v := true
			row.LogSpecIdx = &v
		case "false":
			v := false
			row.LogSpecIdx = &v
		default:
			addErr("log_spec_idx", "must be true or false: "+raw)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return row, nil
}

// ParseSpecIdx parses a bracketed list of spectral index coefficients, e.g.
// "[-0.7,0.01]". An empty value yields the default spectral index. Returns a
// non-empty error string when the value is malformed.
func ParseSpecIdx(raw string) ([]float64, string) {
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		out := make([]float64, len(DefaultSpecIdx))
		copy(out, DefaultSpecIdx)
		return out, ""
	}
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return nil, "must be a bracketed list of numbers"
	}
	inner := strings.TrimSpace(raw[1 : len(raw)-1])
	if inner == "" {
		out := make([]float64, len(DefaultSpecIdx))
		copy(out, DefaultSpecIdx)
		return out, ""
	}
	parts := strings.Split(inner, ",")
	if len(parts) > MaxSpecIdxCoefficients {
		return nil, "at most 5 coefficients are allowed"
	}
	coeffs := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, "not a number: " + strings.TrimSpace(p)
		}
		coeffs = append(coeffs, v)
	}
	return coeffs, ""
}

// FormatSpecIdx renders coefficients in the bracketed list form used by
// source files and local sky model exports.
func FormatSpecIdx(coeffs []float64) string {
	parts := make([]string, 0, len(coeffs))
	for _, c := range coeffs {
		parts = append(parts, strconv.FormatFloat(c, 'g', -1, 64))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
