package uploadmanager

import (
	"net/http"
	"time"

	"github.com/skymodel/skymodel/internal/common/apperrors"
	"github.com/skymodel/skymodel/internal/common/uuid"
	"github.com/skymodel/skymodel/internal/gsmsrv/schema"
)

// UploadState is the lifecycle state of one staged upload.
type UploadState string

const (
	// StateUploading: the upload was accepted; source files are being parsed,
	// validated and staged.
	StateUploading UploadState = "uploading"
	// StateCompleted: all files staged successfully, awaiting commit or reject.
	StateCompleted UploadState = "completed"
	// StateFailed: validation or staging failed, nothing was staged.
	StateFailed UploadState = "failed"
	// StateCommitted: the staged components were promoted to a catalogue version.
	StateCommitted UploadState = "committed"
	// StateRejected: the staged components were discarded.
	StateRejected UploadState = "rejected"
)

var (
	// ErrUploadNotFound: no upload is known under the given ID.
	ErrUploadNotFound apperrors.Error = apperrors.New("upload not found").SetStatusCode(http.StatusNotFound)
	// ErrUploadNotReady: the upload is not in a state that permits the operation.
	ErrUploadNotReady apperrors.Error = apperrors.New("upload is not in a valid state for this operation").SetStatusCode(http.StatusConflict)
)

// UploadStatus is the tracked progress of one upload. Values returned from
// the tracker are copies; mutating them has no effect on tracked state.
type UploadStatus struct {
	UploadID       uuid.UUID   `json:"upload_id"`
	State          UploadState `json:"state"`
	CatalogueName  string      `json:"catalogue_name"`
	Version        string      `json:"version"`
	TotalFiles     int         `json:"total_files"`
	UploadedFiles  int         `json:"uploaded_files"`
	RemainingFiles int         `json:"remaining_files"`
	Components     int64       `json:"components"`
	Errors         []string    `json:"errors,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	// Descriptor is the metadata submitted with the upload. Commit uses it
	// when the request carries no corrected descriptor.
	Descriptor *schema.CatalogueDescriptor `json:"-"`
}

// Terminal reports whether the state admits no further transitions.
func (s UploadState) Terminal() bool {
	return s == StateFailed || s == StateCommitted || s == StateRejected
}
