package ingest

import (
	"net/http"

	"github.com/skymodel/skymodel/internal/common/apperrors"
)

var (
	// ErrUnsupportedFileType: the uploaded file is not a CSV source file.
	ErrUnsupportedFileType apperrors.Error = apperrors.New("unsupported source file type").SetStatusCode(http.StatusBadRequest)
	// ErrMalformedSourceFile: the file could not be parsed as CSV at all.
	ErrMalformedSourceFile apperrors.Error = apperrors.New("malformed source file").SetStatusCode(http.StatusBadRequest)
	// ErrMissingColumns: the header lacks one or more required columns.
	ErrMissingColumns apperrors.Error = apperrors.New("source file is missing required columns").SetStatusCode(http.StatusBadRequest)
	// ErrEmptySourceFile: the file has a header but no data rows.
	ErrEmptySourceFile apperrors.Error = apperrors.New("source file has no data rows").SetStatusCode(http.StatusBadRequest)
)
