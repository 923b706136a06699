package catalogmanager

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/common/apperrors"
	"github.com/skymodel/skymodel/internal/common/uuid"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/models"
	"github.com/skymodel/skymodel/internal/gsmsrv/schema"
	"github.com/skymodel/skymodel/internal/gsmsrv/uploadmanager"
)

// ReviewResult is the read-only inspection of a staged upload.
type ReviewResult struct {
	UploadID     uuid.UUID    `json:"upload_id"`
	TotalRecords int64        `json:"total_records"`
	Sample       []SourceView `json:"sample"`
}

// CommitResult reports a successful commit.
type CommitResult struct {
	UploadID         uuid.UUID `json:"upload_id"`
	CatalogueName    string    `json:"catalogue_name"`
	Version          string    `json:"version"`
	RecordsCommitted int64     `json:"records_committed"`
}

// RejectResult reports a successful reject.
type RejectResult struct {
	UploadID       uuid.UUID `json:"upload_id"`
	RecordsDeleted int64     `json:"records_deleted"`
}

// CreateUpload registers a new upload under the given metadata descriptor and
// starts staging its files in the background. The returned status echoes the
// descriptor's catalogue name and version; callers poll the status operation
// for progress.
func (m *Manager) CreateUpload(ctx context.Context, files []uploadmanager.File, desc *schema.CatalogueDescriptor) (uploadmanager.UploadStatus, apperrors.Error) {
	if len(files) == 0 {
		return uploadmanager.UploadStatus{}, ErrNoSourceFiles
	}
	if err := validDescriptor(desc); err != nil {
		return uploadmanager.UploadStatus{}, err
	}
	status := m.uploads.Begin(len(files), desc)
	m.uploads.IngestAsync(ctx, status.UploadID, files)
	log.Ctx(ctx).Info().
		Str("upload_id", status.UploadID.String()).
		Str("catalogue_name", desc.CatalogueName).
		Str("version", desc.Version).
		Int("files", len(files)).
		Msg("upload accepted")
	return status, nil
}

// validDescriptor folds the descriptor's field errors into one error.
func validDescriptor(desc *schema.CatalogueDescriptor) apperrors.Error {
	if desc == nil {
		return schema.ErrInvalidDescriptor.Msg("missing catalogue descriptor")
	}
	verrs := desc.Validate()
	if verrs == nil {
		return nil
	}
	err := schema.ErrInvalidDescriptor
	for _, ve := range verrs {
		err = err.Msg(ve.Error())
	}
	return err
}

// Status returns the tracked state of an upload.
func (m *Manager) Status(ctx context.Context, uploadID uuid.UUID) (uploadmanager.UploadStatus, apperrors.Error) {
	return m.uploads.Status(uploadID)
}

// Review returns the total staged record count and a bounded sample of the
// most recently staged rows. Only a completed upload can be reviewed.
func (m *Manager) Review(ctx context.Context, uploadID uuid.UUID) (*ReviewResult, apperrors.Error) {
	status, err := m.uploads.Status(uploadID)
	if err != nil {
		return nil, err
	}
	if status.State != uploadmanager.StateCompleted {
		return nil, uploadmanager.ErrUploadNotReady.Msg("upload is " + string(status.State) + ", review requires " + string(uploadmanager.StateCompleted))
	}

	total, err := m.store.CountStaging(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	staged, err := m.store.SampleStaging(ctx, uploadID, m.sampleSize)
	if err != nil {
		return nil, err
	}
	sample := make([]SourceView, 0, len(staged))
	for _, c := range staged {
		view, err := viewFromStaging(c)
		if err != nil {
			return nil, err
		}
		sample = append(sample, view)
	}
	return &ReviewResult{UploadID: uploadID, TotalRecords: total, Sample: sample}, nil
}

// Commit promotes a completed upload into the committed catalogue under the
// version in the descriptor. A nil descriptor commits under the descriptor
// submitted with the upload; a non-nil one replaces it, so a caller can fix a
// bad descriptor without re-uploading. The promotion is atomic; on any
// failure the staged rows remain and the upload stays completed.
func (m *Manager) Commit(ctx context.Context, uploadID uuid.UUID, desc *schema.CatalogueDescriptor) (*CommitResult, apperrors.Error) {
	status, err := m.uploads.Status(uploadID)
	if err != nil {
		return nil, err
	}
	if status.State != uploadmanager.StateCompleted {
		return nil, uploadmanager.ErrUploadNotReady.Msg("upload is " + string(status.State) + ", commit requires " + string(uploadmanager.StateCompleted))
	}
	if desc == nil {
		desc = status.Descriptor
	}
	if err := validDescriptor(desc); err != nil {
		return nil, err
	}

	meta := &models.CatalogueMetadata{
		Version:       desc.Version,
		CatalogueName: desc.CatalogueName,
		Description:   desc.Description,
		RefFreq:       desc.RefFreq,
		Epoch:         desc.Epoch,
		Author:        optString(desc.Author),
		Reference:     optString(desc.Reference),
		Notes:         optString(desc.Notes),
		UploadID:      uploadID,
	}
	count, err := m.store.CommitUpload(ctx, meta, m.pixelFn())
	if err != nil {
		return nil, err
	}
	if err := m.uploads.Transition(uploadID, uploadmanager.StateCommitted); err != nil {
		// the db commit already happened; the tracker is advisory here
		log.Ctx(ctx).Warn().Err(err).Str("upload_id", uploadID.String()).Msg("upload committed but tracker transition failed")
	}
	m.versions.Invalidate(ctx, desc.CatalogueName)

	log.Ctx(ctx).Info().
		Str("upload_id", uploadID.String()).
		Str("catalogue_name", desc.CatalogueName).
		Str("version", desc.Version).
		Int64("records", count).
		Msg("catalogue version committed")
	return &CommitResult{
		UploadID:         uploadID,
		CatalogueName:    desc.CatalogueName,
		Version:          desc.Version,
		RecordsCommitted: count,
	}, nil
}

// Reject discards a completed upload: its staging rows are deleted and the
// upload is marked rejected. Rejecting an unknown or already rejected upload
// yields a not-found error. The staged rows are deleted before the upload is
// marked rejected; a failed delete leaves the upload completed so the caller
// can retry.
func (m *Manager) Reject(ctx context.Context, uploadID uuid.UUID) (*RejectResult, apperrors.Error) {
	status, err := m.uploads.Status(uploadID)
	if err != nil {
		return nil, err
	}
	if status.State == uploadmanager.StateRejected {
		return nil, uploadmanager.ErrUploadNotFound.Msg("upload already rejected: " + uploadID.String())
	}
	if status.State != uploadmanager.StateCompleted {
		return nil, uploadmanager.ErrUploadNotReady.Msg("upload is " + string(status.State) + ", reject requires " + string(uploadmanager.StateCompleted))
	}
	deleted, err := m.store.DeleteStaging(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if err := m.uploads.Transition(uploadID, uploadmanager.StateRejected); err != nil {
		// the rows are already gone; the tracker is advisory here
		log.Ctx(ctx).Warn().Err(err).Str("upload_id", uploadID.String()).Msg("upload rejected but tracker transition failed")
	}
	log.Ctx(ctx).Info().Str("upload_id", uploadID.String()).Int64("records", deleted).Msg("upload rejected")
	return &RejectResult{UploadID: uploadID, RecordsDeleted: deleted}, nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
