package apis

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skymodel/skymodel/internal/common/httpx"
	"github.com/skymodel/skymodel/internal/common/uuid"
	"github.com/skymodel/skymodel/internal/gsmsrv/schema"
	"github.com/skymodel/skymodel/internal/gsmsrv/uploadmanager"
)

// multipartMemoryLimit is the in-memory buffer for multipart parsing; larger
// file parts spill to temporary files.
const multipartMemoryLimit = 32 << 20

// createUpload accepts a multipart upload: one or more source files under
// the "files" field plus a catalogue descriptor JSON document under the
// "metadata" field. It registers the upload and starts background ingestion;
// the response echoes the descriptor's catalogue name and version, and
// clients poll the status route for progress.
func (h *handler) createUpload(r *http.Request) (*httpx.Response, error) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return nil, httpx.ErrInvalidRequest("expected a multipart upload: " + err.Error())
	}
	defer r.MultipartForm.RemoveAll()

	metaValues := r.MultipartForm.Value["metadata"]
	if len(metaValues) == 0 {
		return nil, httpx.ErrInvalidRequest("no catalogue descriptor in upload; send it under the 'metadata' field")
	}
	desc, verrs := schema.ParseCatalogueDescriptor([]byte(metaValues[0]))
	if verrs != nil {
		err := schema.ErrInvalidDescriptor
		for _, ve := range verrs {
			err = err.Msg(ve.Error())
		}
		return nil, err
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, httpx.ErrInvalidRequest("no source files in upload; send files under the 'files' field")
	}

	files := make([]uploadmanager.File, 0, len(headers))
	for _, hdr := range headers {
		if hdr.Size > h.maxFileSize {
			return nil, httpx.ErrRequestTooLarge(h.maxFileSize)
		}
		f, err := hdr.Open()
		if err != nil {
			return nil, httpx.ErrUnableToReadRequest()
		}
		data, err := io.ReadAll(io.LimitReader(f, h.maxFileSize+1))
		f.Close()
		if err != nil {
			return nil, httpx.ErrUnableToReadRequest()
		}
		if int64(len(data)) > h.maxFileSize {
			return nil, httpx.ErrRequestTooLarge(h.maxFileSize)
		}
		files = append(files, uploadmanager.File{Name: hdr.Filename, Data: data})
	}

	status, err := h.manager.CreateUpload(r.Context(), files, desc)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusAccepted,
		Location:   fmt.Sprintf("/catalogues/upload/%s/status", status.UploadID),
		Response:   status,
	}, nil
}

// getUploadStatus returns the tracked state of an upload.
func (h *handler) getUploadStatus(r *http.Request) (*httpx.Response, error) {
	uploadID, err := uploadIDParam(r)
	if err != nil {
		return nil, err
	}
	status, appErr := h.manager.Status(r.Context(), uploadID)
	if appErr != nil {
		return nil, appErr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   status,
	}, nil
}

// reviewUpload returns the staged record count and a sample of staged rows
// for a completed upload.
func (h *handler) reviewUpload(r *http.Request) (*httpx.Response, error) {
	uploadID, err := uploadIDParam(r)
	if err != nil {
		return nil, err
	}
	review, appErr := h.manager.Review(r.Context(), uploadID)
	if appErr != nil {
		return nil, appErr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   review,
	}, nil
}

// commitUpload promotes a completed upload into the committed catalogue. An
// empty body commits under the descriptor submitted with the upload; a
// descriptor body replaces it.
func (h *handler) commitUpload(r *http.Request) (*httpx.Response, error) {
	uploadID, err := uploadIDParam(r)
	if err != nil {
		return nil, err
	}
	var desc *schema.CatalogueDescriptor
	if r.ContentLength != 0 {
		var d schema.CatalogueDescriptor
		if err := httpx.GetRequestData(r, &d); err != nil {
			return nil, err
		}
		desc = &d
	}
	result, appErr := h.manager.Commit(r.Context(), uploadID, desc)
	if appErr != nil {
		return nil, appErr
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   fmt.Sprintf("/catalogues?catalogue_name=%s&version=%s", result.CatalogueName, result.Version),
		Response:   result,
	}, nil
}

// rejectUpload discards a completed upload and deletes its staged rows.
func (h *handler) rejectUpload(r *http.Request) (*httpx.Response, error) {
	uploadID, err := uploadIDParam(r)
	if err != nil {
		return nil, err
	}
	result, appErr := h.manager.Reject(r.Context(), uploadID)
	if appErr != nil {
		return nil, appErr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   result,
	}, nil
}

func uploadIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "uploadID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, httpx.ErrInvalidRequest("invalid upload id: " + raw)
	}
	return id, nil
}
