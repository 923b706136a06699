// Package uploadmanager runs the staged upload workflow: it tracks upload
// lifecycle state and ingests uploaded source files into the staging area,
// bounded by a configurable concurrency limit.
package uploadmanager

import (
	"bytes"
	"context"

	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/common/apperrors"
	"github.com/skymodel/skymodel/internal/common/uuid"
	"github.com/skymodel/skymodel/internal/gsmsrv/config"
	"github.com/skymodel/skymodel/internal/gsmsrv/db"
	"github.com/skymodel/skymodel/internal/gsmsrv/ingest"
	"github.com/skymodel/skymodel/internal/gsmsrv/schema"
	"golang.org/x/sync/semaphore"
)

// File is one uploaded source file, held in memory until staged.
type File struct {
	Name string
	Data []byte
}

// Manager coordinates upload ingestion. One instance is shared by all
// requests; ingestion concurrency across uploads is bounded by a weighted
// semaphore.
type Manager struct {
	tracker             *Tracker
	sem                 *semaphore.Weighted
	maxValidationErrors int
}

func NewManager() *Manager {
	cfg := config.Config()
	return &Manager{
		tracker:             NewTracker(),
		sem:                 semaphore.NewWeighted(int64(cfg.Upload.MaxConcurrentIngests)),
		maxValidationErrors: cfg.Upload.MaxValidationErrors,
	}
}

// Begin registers a new upload with its metadata descriptor and returns the
// initial status.
func (m *Manager) Begin(totalFiles int, desc *schema.CatalogueDescriptor) UploadStatus {
	return m.tracker.Begin(totalFiles, desc)
}

// Tracker exposes the underlying tracker for callers that drive upload
// state directly.
func (m *Manager) Tracker() *Tracker {
	return m.tracker
}

// Status returns the current status of an upload.
func (m *Manager) Status(uploadID uuid.UUID) (UploadStatus, apperrors.Error) {
	return m.tracker.Get(uploadID)
}

// Transition moves a completed upload to committed or rejected.
func (m *Manager) Transition(uploadID uuid.UUID, to UploadState) apperrors.Error {
	return m.tracker.Transition(uploadID, to)
}

// IngestAsync stages the files of an upload in the background. The request
// context is only used for its logger; ingestion continues after the upload
// response is sent.
func (m *Manager) IngestAsync(ctx context.Context, uploadID uuid.UUID, files []File) {
	bgCtx := log.Ctx(ctx).WithContext(context.Background())
	go m.ingest(bgCtx, uploadID, files)
}

// Ingest stages the files of an upload synchronously. Exposed for tests and
// for callers that want to wait for staging to finish.
func (m *Manager) Ingest(ctx context.Context, uploadID uuid.UUID, files []File) {
	m.ingest(ctx, uploadID, files)
}

func (m *Manager) ingest(ctx context.Context, uploadID uuid.UUID, files []File) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.tracker.Fail(uploadID, []string{"ingestion canceled: " + err.Error()})
		return
	}
	defer m.sem.Release(1)

	ctx, err := db.ConnCtx(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to get db connection for ingestion")
		m.tracker.Fail(uploadID, []string{"internal error: unable to stage upload"})
		return
	}
	defer db.DB(ctx).Close(context.Background())

	fail := func(errs []string) {
		// all-or-nothing across the whole upload: drop rows staged by
		// earlier files too
		if _, derr := db.DB(ctx).DeleteStaging(ctx, uploadID); derr != nil {
			log.Ctx(ctx).Error().Err(derr).Str("upload_id", uploadID.String()).Msg("failed to clear staging after failed upload")
		}
		m.tracker.Fail(uploadID, errs)
	}

	for _, file := range files {
		if err := ingest.CheckSourceFilename(file.Name); err != nil {
			fail([]string{file.Name + ": " + err.Error()})
			return
		}
		src, err := ingest.ReadSourceFile(ctx, file.Name, bytes.NewReader(file.Data))
		if err != nil {
			fail([]string{file.Name + ": " + err.Error()})
			return
		}
		rows, verrs := src.Validate(m.maxValidationErrors)
		if verrs != nil {
			log.Ctx(ctx).Info().
				Str("upload_id", uploadID.String()).
				Str("file", file.Name).
				Int("errors", len(verrs)).
				Msg("source file failed validation")
			fail(prefixErrors(file.Name, verrs.Strings()))
			return
		}
		comps, err := ingest.ToStaging(rows)
		if err != nil {
			fail([]string{file.Name + ": " + err.Error()})
			return
		}
		if err := db.DB(ctx).InsertStagingComponents(ctx, uploadID, comps); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("upload_id", uploadID.String()).Msg("failed to stage components")
			fail([]string{file.Name + ": " + err.Error()})
			return
		}
		m.tracker.FileDone(uploadID, int64(len(comps)))
	}

	m.tracker.Complete(uploadID)
	log.Ctx(ctx).Info().Str("upload_id", uploadID.String()).Int("files", len(files)).Msg("upload staged")
}

func prefixErrors(name string, errs []string) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = name + ": " + e
	}
	return out
}
