// Package httpx provides HTTP request/response handling utilities. It includes
// JSON responders, error responses carrying HTTP status codes, and support for
// chunked transfer of large result sets. Handlers return a *Response or an
// error; WrapHttpRsp turns them into http.HandlerFunc with uniform error
// handling.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/common/apperrors"
)

// GetRequestData parses a JSON request body into the provided data structure.
// Only POST and PUT are supported.
func GetRequestData(r *http.Request, data any) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil {
		log.Ctx(r.Context()).Error().Msg("empty request body")
		return ErrUnableToParseReqData()
	}
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		return ErrUnableToParseReqData()
	}
	return nil
}

// WriteChunksFunc writes chunked response data to the given writer.
type WriteChunksFunc func(w http.ResponseWriter) error

// Response represents an HTTP response with configurable status code,
// content type, and optional chunked transfer encoding.
type Response struct {
	StatusCode  int
	Location    string
	Response    any
	ContentType string
	Chunked     bool
	WriteChunks WriteChunksFunc
}

// RequestHandler handles an HTTP request and returns a response or an error.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp wraps a RequestHandler into an http.HandlerFunc with
// standardized error handling and content type management.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			sendHandlerError(w, err)
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		if rsp.Chunked {
			if rsp.WriteChunks == nil {
				ErrApplicationError("unable to write chunks").Send(w)
				return
			}
			w.Header().Set("Content-Type", rsp.ContentType)
			w.Header().Set("Transfer-Encoding", "chunked")
			w.WriteHeader(rsp.StatusCode)
			if err := rsp.WriteChunks(w); err != nil {
				log.Ctx(r.Context()).Error().Err(err).Msg("error writing chunk")
			}
			return
		}

		if rsp.ContentType == "" {
			rsp.ContentType = "application/json"
		}
		var location []string
		if rsp.Location != "" {
			location = append(location, rsp.Location)
		}
		switch rsp.ContentType {
		case "application/json":
			SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response, location...)
		case "text/plain":
			w.Header().Set("Content-Type", "text/plain")
			if rsp.StatusCode == http.StatusCreated && len(location) > 0 {
				w.Header().Set("Location", location[0])
			}
			w.WriteHeader(rsp.StatusCode)
			w.Write([]byte(rsp.Response.(string)))
		default:
			ErrApplicationError("unsupported response type").Send(w)
		}
	})
}

func sendHandlerError(w http.ResponseWriter, err error) {
	if httperror, ok := err.(*Error); ok {
		httperror.Send(w)
		return
	}
	if appErr, ok := err.(apperrors.Error); ok {
		statusCode := appErr.StatusCode()
		if statusCode == 0 {
			statusCode = http.StatusInternalServerError
		}
		httperror := &Error{
			StatusCode:  statusCode,
			Description: appErr.ErrorAll(),
		}
		httperror.Send(w)
		return
	}
	ErrApplicationError(err.Error()).Send(w)
}
