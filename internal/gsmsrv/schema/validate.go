package schema

import (
	"fmt"
)

// ValidateRow applies the range constraints to a parsed row. Parsing errors
// are reported by ParseRow; this covers values that parsed but are out of
// bounds.
func ValidateRow(row *Row) ValidationErrors {
	var errs ValidationErrors
	addErr := func(field, msg string) {
		errs = append(errs, ValidationError{Line: row.Line, ComponentID: row.ComponentID, Field: field, ErrStr: msg})
	}

	if row.RA < 0 || row.RA >= 360 {
		addErr("ra", fmt.Sprintf("must be in [0, 360): %g", row.RA))
	}
	if row.Dec < -90 || row.Dec > 90 {
		addErr("dec", fmt.Sprintf("must be in [-90, 90]: %g", row.Dec))
	}
	if row.IPol < 0 {
		addErr("i_pol", fmt.Sprintf("must not be negative: %g", row.IPol))
	}
	if len(row.SpecIdx) > MaxSpecIdxCoefficients {
		addErr("spec_idx", "at most 5 coefficients are allowed")
	}
	return errs
}

// ValidateBatch parses and validates all records of one source file. Records
// is a slice of raw cell maps in file order, with the first data line at line
// number 1. Validation is exhaustive rather than fail-fast, but a batch with
// any error stages nothing: the returned rows are nil whenever errs is
// non-empty.
//
// maxErrors caps the number of collected errors; once exceeded, validation
// stops and a summary error is appended. A maxErrors of zero means no cap.
func ValidateBatch(records []map[string]string, maxErrors int) ([]*Row, ValidationErrors) {
	var errs ValidationErrors
	rows := make([]*Row, 0, len(records))
	seen := make(map[string]int, len(records))

	ceilingHit := func() bool {
		return maxErrors > 0 && len(errs) >= maxErrors
	}

	for i, record := range records {
		line := i + 1
		row, rowErrs := ParseRow(record, line)
		if rowErrs != nil {
			errs = append(errs, rowErrs...)
		} else {
			if rangeErrs := ValidateRow(row); rangeErrs != nil {
				errs = append(errs, rangeErrs...)
			} else {
				if prev, dup := seen[row.ComponentID]; dup {
					errs = append(errs, ValidationError{
						Line:        line,
						ComponentID: row.ComponentID,
						Field:       "component_id",
						ErrStr:      fmt.Sprintf("duplicate of line %d", prev),
					})
				} else {
					seen[row.ComponentID] = line
					rows = append(rows, row)
				}
			}
		}
		if ceilingHit() {
			errs = append(errs, ValidationError{
				Line:   line,
				Field:  "batch",
				ErrStr: fmt.Sprintf("too many validation errors, stopped after %d", len(errs)),
			})
			return nil, errs
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return rows, nil
}
