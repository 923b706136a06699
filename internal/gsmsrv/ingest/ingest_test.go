package ingest

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `# Test source list
# generated for unit tests
component_id,ra,dec,i_pol,q_pol,spec_idx
J0001+0001,10.5,-26.7,1.2,0.01,"[-0.7,0.01]"
J0002+0002,200.0,45.0,0.8,,"[-0.83]"
J0003+0003,359.9,89.5,2.4,,
`

func TestCheckSourceFilename(t *testing.T) {
	assert.NoError(t, CheckSourceFilename("gleam.csv"))
	assert.NoError(t, CheckSourceFilename("GLEAM.CSV"))
	assert.Error(t, CheckSourceFilename("gleam.fits"))
	assert.Error(t, CheckSourceFilename("gleam"))
	assert.Error(t, CheckSourceFilename("gleam.csv.gz"))
}

func TestReadSourceFile(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())

	f, err := ReadSourceFile(ctx, "sample.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, []string{"component_id", "ra", "dec", "i_pol", "q_pol", "spec_idx"}, f.Columns)
	require.Len(t, f.Records, 3)

	assert.Equal(t, "J0001+0001", f.Records[0]["component_id"])
	assert.Equal(t, "[-0.7,0.01]", f.Records[0]["spec_idx"])
	assert.Equal(t, "", f.Records[1]["q_pol"])
	assert.Equal(t, "", f.Records[2]["spec_idx"])
}

func TestReadSourceFileHeaderCaseInsensitive(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())

	csv := "Component_ID,RA,Dec,I_Pol\nJ1,10.0,20.0,1.0\n"
	f, err := ReadSourceFile(ctx, "sample.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, "J1", f.Records[0]["component_id"])
	assert.Equal(t, "10.0", f.Records[0]["ra"])
}

func TestReadSourceFileStructuralErrors(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())

	tests := []struct {
		name string
		csv  string
		want error
	}{
		{"empty file", "", ErrEmptySourceFile},
		{"only comments", "# nothing here\n", ErrEmptySourceFile},
		{"header only", "component_id,ra,dec,i_pol\n", ErrEmptySourceFile},
		{"missing required column", "component_id,ra,dec\nJ1,10,20\n", ErrMissingColumns},
		{"duplicate column", "component_id,ra,ra,dec,i_pol\nJ1,10,10,20,1\n", ErrMalformedSourceFile},
		{"ragged row", "component_id,ra,dec,i_pol\nJ1,10,20\n", ErrMalformedSourceFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSourceFile(ctx, "bad.csv", strings.NewReader(tt.csv))
			assert.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateAndStage(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())

	f, err := ReadSourceFile(ctx, "sample.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	rows, verrs := f.Validate(0)
	require.Nil(t, verrs)
	require.Len(t, rows, 3)

	comps, err := ToStaging(rows)
	require.NoError(t, err)
	require.Len(t, comps, 3)

	// positions are stored in radians
	assert.InDelta(t, 10.5*math.Pi/180.0, comps[0].RA, 1e-12)
	assert.InDelta(t, -26.7*math.Pi/180.0, comps[0].Dec, 1e-12)
	assert.Equal(t, 1.2, comps[0].IPol)
	require.NotNil(t, comps[0].QPol)
	assert.Equal(t, 0.01, *comps[0].QPol)

	coeffs, errSI := comps[0].SpecIdxCoefficients()
	require.NoError(t, errSI)
	assert.Equal(t, []float64{-0.7, 0.01}, coeffs)

	// omitted spec_idx falls back to the default
	coeffs, errSI = comps[2].SpecIdxCoefficients()
	require.NoError(t, errSI)
	assert.Equal(t, []float64{-0.7}, coeffs)
}

func TestValidateRejectsBadRows(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())

	bad := "component_id,ra,dec,i_pol\nJ1,10.0,20.0,1.0\nJ2,400.0,20.0,1.0\n"
	f, err := ReadSourceFile(ctx, "bad.csv", strings.NewReader(bad))
	require.NoError(t, err)

	rows, verrs := f.Validate(0)
	assert.Nil(t, rows)
	require.Len(t, verrs, 1)
	assert.Equal(t, 2, verrs[0].Line)
	assert.Equal(t, "ra", verrs[0].Field)
}
