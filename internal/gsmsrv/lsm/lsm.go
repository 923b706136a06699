// Package lsm writes local sky models to shared file locations. A local sky
// model is the result of one cone search, exported as a CSV text file plus a
// YAML data product descriptor that downstream calibration pipelines read to
// locate and interpret the export.
package lsm

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/skymodel/skymodel/internal/gsmsrv/catalogmanager"
	"github.com/skymodel/skymodel/internal/gsmsrv/gsmcommon"
	"github.com/skymodel/skymodel/internal/gsmsrv/schema"
)

// csvColumns is the column order of exported rows, declared in the leading
// format line. It matches the upload schema column set.
var csvColumns = []string{
	"component_id", "ra", "dec", "i_pol", "q_pol", "u_pol", "v_pol",
	"major_ax", "minor_ax", "pos_ang", "pol_frac", "pol_ang", "rot_meas",
	"spec_idx", "log_spec_idx",
}

// WriteCSV writes a cone-search result as an LSM file: a format line
// declaring the column order, '#' key-value lines describing the query, then
// one component per row. Positions are in degrees. There is no plain header
// row; readers take the column order from the format line.
func WriteCSV(w io.Writer, result *catalogmanager.ConeSearchResult, createdAt time.Time) error {
	if _, err := fmt.Fprintf(w, "# (%s) = format\n", strings.Join(csvColumns, ",")); err != nil {
		return err
	}
	header := fmt.Sprintf(
		"# GENERATOR = gsmsrv %s\n# CREATED = %s\n# RA = %.6f\n# DEC = %.6f\n# FOV = %.6f\n",
		gsmcommon.ServerVersion,
		createdAt.UTC().Format(time.RFC3339),
		result.RA, result.Dec, result.FOVArcmin,
	)
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	for _, ref := range result.Versions {
		if _, err := fmt.Fprintf(w, "# CATALOGUE = %s %s\n", ref.CatalogueName, ref.Version); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "# NUMBER_OF_COMPONENTS = %d\n", len(result.Sources)); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	for i := range result.Sources {
		if err := cw.Write(csvRecord(&result.Sources[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRecord(s *catalogmanager.SourceView) []string {
	return []string{
		s.ComponentID,
		formatFloat(s.RA),
		formatFloat(s.Dec),
		formatFloat(s.IPol),
		formatOptFloat(s.QPol),
		formatOptFloat(s.UPol),
		formatOptFloat(s.VPol),
		formatOptFloat(s.MajorAx),
		formatOptFloat(s.MinorAx),
		formatOptFloat(s.PosAng),
		formatOptFloat(s.PolFrac),
		formatOptFloat(s.PolAng),
		formatOptFloat(s.RotMeas),
		schema.FormatSpecIdx(s.SpecIdx),
		formatOptBool(s.LogSpecIdx),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
