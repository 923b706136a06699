package catalogmanager

import (
	"net/http"

	"github.com/skymodel/skymodel/internal/common/apperrors"
)

var (
	// ErrInvalidQuery: a cone search parameter is out of range.
	ErrInvalidQuery apperrors.Error = apperrors.New("invalid query").SetStatusCode(http.StatusBadRequest)
	// ErrNoSourceFiles: an upload request carried no source files.
	ErrNoSourceFiles apperrors.Error = apperrors.New("no source files in upload").SetStatusCode(http.StatusBadRequest)
)
