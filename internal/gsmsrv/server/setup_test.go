package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	commonmiddleware "github.com/skymodel/skymodel/internal/common/middleware"
	"github.com/skymodel/skymodel/internal/gsmsrv/config"
	"github.com/skymodel/skymodel/internal/gsmsrv/db"
	"github.com/skymodel/skymodel/internal/gsmsrv/uploadmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a fully mounted server backed by the test database.
// Uploads are tracked in memory, so workflow tests reuse one server across
// requests.
func newTestServer(t *testing.T) *SkyModelServer {
	t.Helper()
	config.TestInit()
	db.Init()
	s, err := CreateNewServer()
	require.NoError(t, err, "create new server")
	s.MountHandlers()
	t.Cleanup(s.Close)
	return s
}

func executeTestRequest(t *testing.T, s *SkyModelServer, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func checkHeader(t *testing.T, h http.Header) {
	t.Helper()
	expected := "application/json"
	got := h.Get("Content-Type")
	assert.Equal(t, expected, got, "Content-Type expected %s, got %s", expected, got)
	assert.NotEmpty(t, h.Get(commonmiddleware.RequestIDHeader), "No Request Id")
}

func compareJson(t *testing.T, expected any, actual string) {
	t.Helper()
	j, err := json.Marshal(expected)
	assert.NoError(t, err, "json marshal")
	assert.JSONEq(t, string(j), actual, "Expected: %v\nGot: %v\n", expected, actual)
}

func setRequestBodyAndHeader(t *testing.T, req *http.Request, data any) {
	t.Helper()
	var jsonData []byte
	if s, ok := data.(string); ok && json.Valid([]byte(s)) {
		jsonData = []byte(s)
	} else {
		var err error
		jsonData, err = json.Marshal(data)
		assert.NoError(t, err, "Failed to marshal data into JSON")
	}
	req.Body = io.NopCloser(bytes.NewReader(jsonData))
	req.ContentLength = int64(len(jsonData))
	req.Header.Set("Content-Type", "application/json")
}

// newUploadRequest builds a multipart POST /catalogues/upload carrying the
// given named CSV files and a metadata descriptor part. An empty metadata
// string omits the part.
func newUploadRequest(t *testing.T, metadata string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if metadata != "" {
		require.NoError(t, mw.WriteField("metadata", metadata))
	}
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest("POST", "/catalogues/upload", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// pollUploadState polls the status route until the upload reaches a settled
// ingestion state or the deadline passes.
func pollUploadState(t *testing.T, s *SkyModelServer, uploadID string) uploadmanager.UploadStatus {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		req, _ := http.NewRequest("GET", fmt.Sprintf("/catalogues/upload/%s/status", uploadID), nil)
		rr := executeTestRequest(t, s, req)
		require.Equal(t, http.StatusOK, rr.Code, "status poll failed: %s", rr.Body.String())

		var status uploadmanager.UploadStatus
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
		if status.State != uploadmanager.StateUploading {
			return status
		}
		if time.Now().After(deadline) {
			t.Fatalf("upload %s did not settle, last state %s", uploadID, status.State)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// cleanupCatalogue removes committed rows so tests can rerun against the
// same database.
func cleanupCatalogue(t *testing.T, name string) {
	t.Helper()
	ctx := log.Logger.WithContext(context.Background())
	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close(ctx)
	_, err = conn.Conn().ExecContext(ctx, `DELETE FROM sky_component WHERE catalogue_name = $1;`, name)
	assert.NoError(t, err)
	_, err = conn.Conn().ExecContext(ctx, `DELETE FROM gsm_metadata WHERE catalogue_name = $1;`, name)
	assert.NoError(t, err)
}
