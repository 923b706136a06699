package uploadmanager

import (
	"sync"
	"time"

	"github.com/skymodel/skymodel/internal/common/apperrors"
	"github.com/skymodel/skymodel/internal/common/uuid"
	"github.com/skymodel/skymodel/internal/gsmsrv/schema"
)

// Tracker holds the state of in-flight and recently finished uploads. State
// lives in memory: an upload that has not been committed does not survive a
// server restart, and its staged rows are orphaned until swept.
type Tracker struct {
	mu      sync.Mutex
	uploads map[uuid.UUID]*UploadStatus
}

func NewTracker() *Tracker {
	return &Tracker{uploads: make(map[uuid.UUID]*UploadStatus)}
}

// Begin registers a new upload with the given number of source files and its
// metadata descriptor. The upload starts in the uploading state.
func (t *Tracker) Begin(totalFiles int, desc *schema.CatalogueDescriptor) UploadStatus {
	now := time.Now().UTC()
	status := &UploadStatus{
		UploadID:       uuid.New(),
		State:          StateUploading,
		CatalogueName:  desc.CatalogueName,
		Version:        desc.Version,
		TotalFiles:     totalFiles,
		RemainingFiles: totalFiles,
		CreatedAt:      now,
		UpdatedAt:      now,
		Descriptor:     desc,
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.uploads[status.UploadID] = status
	return *status
}

// Get returns a copy of the status for an upload.
func (t *Tracker) Get(uploadID uuid.UUID) (UploadStatus, apperrors.Error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	status, ok := t.uploads[uploadID]
	if !ok {
		return UploadStatus{}, ErrUploadNotFound.Msg("upload not found: " + uploadID.String())
	}
	return *status, nil
}

// update applies fn to the tracked status under the lock.
func (t *Tracker) update(uploadID uuid.UUID, fn func(*UploadStatus)) apperrors.Error {
	t.mu.Lock()
	defer t.mu.Unlock()
	status, ok := t.uploads[uploadID]
	if !ok {
		return ErrUploadNotFound.Msg("upload not found: " + uploadID.String())
	}
	fn(status)
	status.UpdatedAt = time.Now().UTC()
	return nil
}

// FileDone records one successfully staged source file.
func (t *Tracker) FileDone(uploadID uuid.UUID, components int64) apperrors.Error {
	return t.update(uploadID, func(s *UploadStatus) {
		s.UploadedFiles++
		if s.RemainingFiles > 0 {
			s.RemainingFiles--
		}
		s.Components += components
	})
}

// Complete transitions an upload to completed once all files are staged.
func (t *Tracker) Complete(uploadID uuid.UUID) apperrors.Error {
	return t.update(uploadID, func(s *UploadStatus) {
		if !s.State.Terminal() {
			s.State = StateCompleted
		}
	})
}

// Fail transitions an upload to failed and records the errors.
func (t *Tracker) Fail(uploadID uuid.UUID, errs []string) apperrors.Error {
	return t.update(uploadID, func(s *UploadStatus) {
		if !s.State.Terminal() {
			s.State = StateFailed
			s.Errors = errs
		}
	})
}

// Transition moves a completed upload to committed or rejected. Any other
// current state is a conflict; the caller reports it to the client.
func (t *Tracker) Transition(uploadID uuid.UUID, to UploadState) apperrors.Error {
	var stateErr apperrors.Error
	err := t.update(uploadID, func(s *UploadStatus) {
		if s.State != StateCompleted {
			stateErr = ErrUploadNotReady.Msg("upload is " + string(s.State) + ", expected " + string(StateCompleted))
			return
		}
		s.State = to
	})
	if err != nil {
		return err
	}
	return stateErr
}
