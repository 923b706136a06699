// Package ingest reads uploaded source files and turns validated rows into
// staged components. It understands the flat CSV layout of sky model source
// files: an optional block of '#' comment lines, one header line naming the
// columns, and one component per data line. Cells holding spectral index
// coefficient lists are quoted, for example "[-0.7,0.01]".
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/common/apperrors"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/models"
	"github.com/skymodel/skymodel/internal/gsmsrv/gsmcommon"
	"github.com/skymodel/skymodel/internal/gsmsrv/schema"
)

// requiredColumns must all appear in the header line.
var requiredColumns = []string{"component_id", "ra", "dec", "i_pol"}

// CheckSourceFilename verifies that the uploaded filename names a CSV file.
// The check is on the extension; content problems surface during parsing.
func CheckSourceFilename(name string) apperrors.Error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".csv" {
		return ErrUnsupportedFileType.Msg(fmt.Sprintf("unsupported source file type %q, expected .csv", ext))
	}
	return nil
}

// SourceFile is one parsed upload file: the column order from the header and
// the data rows as raw cell maps, in file order.
type SourceFile struct {
	Name    string
	Columns []string
	Records []map[string]string
}

// ReadSourceFile parses a CSV source file into raw records. Column names are
// case-insensitive and surrounding whitespace is ignored. Lines starting with
// '#' are comments. Returns an error for structural problems; per-cell value
// problems are left to validation.
func ReadSourceFile(ctx context.Context, name string, r io.Reader) (*SourceFile, apperrors.Error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptySourceFile.Msg("source file is empty")
	}
	if err != nil {
		log.Ctx(ctx).Info().Err(err).Str("file", name).Msg("failed to read source file header")
		return nil, ErrMalformedSourceFile.Msg("unable to read header: " + err.Error())
	}

	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(col))
		if col == "" {
			return nil, ErrMalformedSourceFile.Msg(fmt.Sprintf("header column %d is empty", i+1))
		}
		if seen[col] {
			return nil, ErrMalformedSourceFile.Msg("duplicate header column: " + col)
		}
		seen[col] = true
		columns[i] = col
	}
	var missing []string
	for _, col := range requiredColumns {
		if !seen[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, ErrMissingColumns.Msg("missing required columns: " + strings.Join(missing, ", "))
	}

	var records []map[string]string
	for {
		cells, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Ctx(ctx).Info().Err(err).Str("file", name).Msg("failed to read source file record")
			return nil, ErrMalformedSourceFile.Msg(err.Error())
		}
		record := make(map[string]string, len(columns))
		for i, col := range columns {
			record[col] = cells[i]
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, ErrEmptySourceFile.Msg("source file " + name + " has no data rows")
	}

	return &SourceFile{Name: name, Columns: columns, Records: records}, nil
}

// Validate runs batch validation over the file's records. All-or-nothing: a
// file with any invalid row yields no rows.
func (f *SourceFile) Validate(maxErrors int) ([]*schema.Row, schema.ValidationErrors) {
	return schema.ValidateBatch(f.Records, maxErrors)
}

// ToStaging converts validated rows to staging models, converting positions
// from degrees to radians for storage.
func ToStaging(rows []*schema.Row) ([]*models.SkyComponentStaging, apperrors.Error) {
	comps := make([]*models.SkyComponentStaging, 0, len(rows))
	for _, row := range rows {
		c := &models.SkyComponentStaging{
			ComponentID: row.ComponentID,
			RA:          gsmcommon.DegToRad(row.RA),
			Dec:         gsmcommon.DegToRad(row.Dec),
			IPol:        row.IPol,
			QPol:        row.QPol,
			UPol:        row.UPol,
			VPol:        row.VPol,
			MajorAx:     row.MajorAx,
			MinorAx:     row.MinorAx,
			PosAng:      row.PosAng,
			PolFrac:     row.PolFrac,
			PolAng:      row.PolAng,
			RotMeas:     row.RotMeas,
			LogSpecIdx:  row.LogSpecIdx,
		}
		if err := c.SetSpecIdx(row.SpecIdx); err != nil {
			return nil, apperrors.New("failed to encode spectral index for " + row.ComponentID).Err(err)
		}
		comps = append(comps, c)
	}
	return comps, nil
}
