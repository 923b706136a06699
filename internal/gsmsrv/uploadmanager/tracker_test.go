package uploadmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/skymodel/skymodel/internal/common/uuid"
)

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker()

	status := tr.Begin(2, testDescriptor("GLEAM"))
	assert.Equal(t, StateUploading, status.State)
	assert.Equal(t, "GLEAM", status.CatalogueName)
	assert.Equal(t, "1.0.0", status.Version)
	assert.Equal(t, 2, status.TotalFiles)
	assert.Equal(t, 2, status.RemainingFiles)
	assert.Equal(t, 0, status.UploadedFiles)
	assert.True(t, uuid.IsUUIDv7(status.UploadID))

	got, err := tr.Get(status.UploadID)
	require.NoError(t, err)
	assert.Equal(t, StateUploading, got.State)
	require.NotNil(t, got.Descriptor)
	assert.Equal(t, "GLEAM", got.Descriptor.CatalogueName)

	require.NoError(t, tr.FileDone(status.UploadID, 100))
	require.NoError(t, tr.FileDone(status.UploadID, 50))
	got, err = tr.Get(status.UploadID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UploadedFiles)
	assert.Equal(t, 0, got.RemainingFiles)
	assert.Equal(t, int64(150), got.Components)

	require.NoError(t, tr.Complete(status.UploadID))
	got, _ = tr.Get(status.UploadID)
	assert.Equal(t, StateCompleted, got.State)

	require.NoError(t, tr.Transition(status.UploadID, StateCommitted))
	got, _ = tr.Get(status.UploadID)
	assert.Equal(t, StateCommitted, got.State)
	assert.True(t, got.State.Terminal())
}

func TestTrackerUnknownUpload(t *testing.T) {
	tr := NewTracker()
	_, err := tr.Get(uuid.New())
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadNotFound)
}

func TestTrackerFailIsTerminal(t *testing.T) {
	tr := NewTracker()
	status := tr.Begin(1, testDescriptor("GLEAM"))

	require.NoError(t, tr.Fail(status.UploadID, []string{"bad.csv: line 2: ra: must be in [0, 360): 400"}))
	got, err := tr.Get(status.UploadID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.State)
	assert.Len(t, got.Errors, 1)

	// a failed upload cannot be completed or committed
	require.NoError(t, tr.Complete(status.UploadID))
	got, _ = tr.Get(status.UploadID)
	assert.Equal(t, StateFailed, got.State)

	err = tr.Transition(status.UploadID, StateCommitted)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadNotReady)
}

func TestTrackerTransitionRequiresCompleted(t *testing.T) {
	tr := NewTracker()
	status := tr.Begin(1, testDescriptor("GLEAM"))

	err := tr.Transition(status.UploadID, StateRejected)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadNotReady)

	require.NoError(t, tr.Complete(status.UploadID))
	require.NoError(t, tr.Transition(status.UploadID, StateRejected))

	// terminal states admit no further transitions
	err = tr.Transition(status.UploadID, StateCommitted)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadNotReady)
}
