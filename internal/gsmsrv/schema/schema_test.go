package schema

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id string, ra, dec, ipol string) map[string]string {
	return map[string]string{
		"component_id": id,
		"ra":           ra,
		"dec":          dec,
		"i_pol":        ipol,
	}
}

func TestParseRowRequiredFields(t *testing.T) {
	row, errs := ParseRow(record("J0001", "10.5", "-20.25", "1.5"), 1)
	require.Nil(t, errs)
	assert.Equal(t, "J0001", row.ComponentID)
	assert.Equal(t, 10.5, row.RA)
	assert.Equal(t, -20.25, row.Dec)
	assert.Equal(t, 1.5, row.IPol)
	assert.Equal(t, DefaultSpecIdx, row.SpecIdx)
	assert.Nil(t, row.LogSpecIdx)

	// missing component_id
	_, errs = ParseRow(record("", "10", "-20", "1"), 3)
	require.Len(t, errs, 1)
	assert.Equal(t, "component_id", errs[0].Field)
	assert.Equal(t, 3, errs[0].Line)

	// non-numeric i_pol names the field and the row
	_, errs = ParseRow(record("J0002", "10", "-20", "bright"), 4)
	require.Len(t, errs, 1)
	assert.Equal(t, "i_pol", errs[0].Field)
	assert.Equal(t, "J0002", errs[0].ComponentID)
	assert.Contains(t, errs[0].Error(), "i_pol")
}

func TestParseRowOptionalFields(t *testing.T) {
	cells := record("J0003", "1", "2", "3")
	cells["q_pol"] = "0.1"
	cells["rot_meas"] = "12.5"
	cells["log_spec_idx"] = "True"
	cells["spec_idx"] = `"[-0.7,0.01,0.123]"`

	row, errs := ParseRow(cells, 1)
	require.Nil(t, errs)
	require.NotNil(t, row.QPol)
	assert.Equal(t, 0.1, *row.QPol)
	require.NotNil(t, row.RotMeas)
	assert.Equal(t, 12.5, *row.RotMeas)
	require.NotNil(t, row.LogSpecIdx)
	assert.True(t, *row.LogSpecIdx)
	assert.Equal(t, []float64{-0.7, 0.01, 0.123}, row.SpecIdx)
	assert.Nil(t, row.UPol)

	cells["log_spec_idx"] = "yes"
	_, errs = ParseRow(cells, 2)
	require.Len(t, errs, 1)
	assert.Equal(t, "log_spec_idx", errs[0].Field)
}

func TestParseSpecIdx(t *testing.T) {
	coeffs, errStr := ParseSpecIdx("[-0.7]")
	assert.Empty(t, errStr)
	assert.Equal(t, []float64{-0.7}, coeffs)

	coeffs, errStr = ParseSpecIdx(`"[ -0.7, 0.01 ]"`)
	assert.Empty(t, errStr)
	assert.Equal(t, []float64{-0.7, 0.01}, coeffs)

	coeffs, errStr = ParseSpecIdx("")
	assert.Empty(t, errStr)
	assert.Equal(t, DefaultSpecIdx, coeffs)

	_, errStr = ParseSpecIdx("[1,2,3,4,5,6]")
	assert.NotEmpty(t, errStr)

	_, errStr = ParseSpecIdx("-0.7")
	assert.NotEmpty(t, errStr)

	_, errStr = ParseSpecIdx("[a,b]")
	assert.NotEmpty(t, errStr)
}

func TestFormatSpecIdxRoundTrip(t *testing.T) {
	for _, coeffs := range [][]float64{
		{-0.7},
		{-0.7, 0.01, 0.123},
		{0, 1.5, -2.25, 3, 4},
	} {
		parsed, errStr := ParseSpecIdx(FormatSpecIdx(coeffs))
		require.Empty(t, errStr)
		assert.Equal(t, coeffs, parsed)
	}
}

func TestValidateRowRanges(t *testing.T) {
	row, errs := ParseRow(record("J1", "360", "0", "1"), 1)
	require.Nil(t, errs)
	rangeErrs := ValidateRow(row)
	require.Len(t, rangeErrs, 1)
	assert.Equal(t, "ra", rangeErrs[0].Field)

	row, _ = ParseRow(record("J2", "359.999", "-90", "0"), 1)
	assert.Nil(t, ValidateRow(row))

	row, _ = ParseRow(record("J3", "10", "95", "1"), 1)
	rangeErrs = ValidateRow(row)
	require.Len(t, rangeErrs, 1)
	assert.Equal(t, "dec", rangeErrs[0].Field)

	row, _ = ParseRow(record("J4", "10", "0", "-1"), 1)
	rangeErrs = ValidateRow(row)
	require.Len(t, rangeErrs, 1)
	assert.Equal(t, "i_pol", rangeErrs[0].Field)
}

func TestValidateBatchAllOrNothing(t *testing.T) {
	records := make([]map[string]string, 0, 10)
	for i := 0; i < 10; i++ {
		dec := "45"
		if i == 6 {
			dec = "95" // row 7 carries an out-of-range declination
		}
		records = append(records, record(fmt.Sprintf("J%04d", i), "120", dec, "1"))
	}

	rows, errs := ValidateBatch(records, 0)
	assert.Nil(t, rows)
	require.Len(t, errs, 1)
	assert.Equal(t, 7, errs[0].Line)
	assert.Equal(t, "dec", errs[0].Field)
	assert.Equal(t, "J0006", errs[0].ComponentID)

	// the same batch with the bad row fixed passes in full
	records[6]["dec"] = "45"
	rows, errs = ValidateBatch(records, 0)
	assert.Nil(t, errs)
	assert.Len(t, rows, 10)
}

func TestValidateBatchDuplicateComponentID(t *testing.T) {
	records := []map[string]string{
		record("J0001", "10", "20", "1"),
		record("J0002", "11", "21", "1"),
		record("J0001", "12", "22", "1"),
	}
	rows, errs := ValidateBatch(records, 0)
	assert.Nil(t, rows)
	require.Len(t, errs, 1)
	assert.Equal(t, 3, errs[0].Line)
	assert.Equal(t, "component_id", errs[0].Field)
	assert.Contains(t, errs[0].ErrStr, "line 1")
}

func TestValidateBatchErrorCeiling(t *testing.T) {
	records := make([]map[string]string, 0, 100)
	for i := 0; i < 100; i++ {
		records = append(records, record("", "10", "20", "1"))
	}
	rows, errs := ValidateBatch(records, 10)
	assert.Nil(t, rows)
	// ceiling plus the summary entry
	assert.Len(t, errs, 11)
	assert.Equal(t, "batch", errs[len(errs)-1].Field)
}

func TestCatalogueDescriptorValidate(t *testing.T) {
	d := &CatalogueDescriptor{
		Version:       "1.0.0",
		CatalogueName: "GLEAM",
		Description:   "GaLactic and Extragalactic All-sky MWA survey",
		RefFreq:       200e6,
		Epoch:         "J2000",
	}
	assert.Nil(t, d.Validate())

	d.Version = "not-a-version"
	errs := d.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "version", errs[0].Field)

	d.Version = "1.0"
	errs = d.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "version", errs[0].Field)

	d.Version = "1.0.0"
	d.CatalogueName = ""
	d.RefFreq = 0
	errs = d.Validate()
	require.Len(t, errs, 2)
	fields := []string{errs[0].Field, errs[1].Field}
	assert.Contains(t, fields, "catalogue_name")
	assert.Contains(t, fields, "ref_freq")
}

func TestParseCatalogueDescriptor(t *testing.T) {
	doc := []byte(`{"version":"2.1.0","catalogue_name":"RACS","description":"Rapid ASKAP Continuum Survey","ref_freq":887.5e6,"epoch":"J2000","author":"survey team"}`)
	d, errs := ParseCatalogueDescriptor(doc)
	require.Nil(t, errs)
	assert.Equal(t, "RACS", d.CatalogueName)
	assert.Equal(t, "2.1.0", d.Version)

	_, errs = ParseCatalogueDescriptor([]byte(`{not json`))
	require.Len(t, errs, 1)
	assert.Equal(t, "metadata", errs[0].Field)
}
