// Package apis maps the catalogue service operations to HTTP routes. The
// handlers are thin: they parse the request, call the catalogue manager, and
// shape the response. All semantics live in the manager layers.
package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skymodel/skymodel/internal/common/httpx"
	"github.com/skymodel/skymodel/internal/gsmsrv/catalogmanager"
	"github.com/skymodel/skymodel/internal/gsmsrv/config"
	"github.com/skymodel/skymodel/internal/gsmsrv/lsm"
)

type responseHandlerParam struct {
	Method  string
	Path    string
	Handler httpx.RequestHandler
}

type handler struct {
	manager     *catalogmanager.Manager
	exporter    *lsm.Exporter
	maxFileSize int64
}

// Router registers the catalogue service API endpoints on the given router.
func Router(r chi.Router, manager *catalogmanager.Manager, exporter *lsm.Exporter) chi.Router {
	h := &handler{
		manager:     manager,
		exporter:    exporter,
		maxFileSize: config.Config().Upload.MaxFileSize,
	}

	routes := []responseHandlerParam{
		{
			Method:  http.MethodPost,
			Path:    "/catalogues/upload",
			Handler: h.createUpload,
		},
		{
			Method:  http.MethodGet,
			Path:    "/catalogues/upload/{uploadID}/status",
			Handler: h.getUploadStatus,
		},
		{
			Method:  http.MethodGet,
			Path:    "/catalogues/upload/{uploadID}/review",
			Handler: h.reviewUpload,
		},
		{
			Method:  http.MethodPost,
			Path:    "/catalogues/upload/{uploadID}/commit",
			Handler: h.commitUpload,
		},
		{
			Method:  http.MethodPost,
			Path:    "/catalogues/upload/{uploadID}/reject",
			Handler: h.rejectUpload,
		},
		{
			Method:  http.MethodGet,
			Path:    "/catalogues",
			Handler: h.listCatalogues,
		},
		{
			Method:  http.MethodGet,
			Path:    "/local_sky_model",
			Handler: h.getLocalSkyModel,
		},
		{
			Method:  http.MethodGet,
			Path:    "/local_sky_model.csv",
			Handler: h.getLocalSkyModelCSV,
		},
		{
			Method:  http.MethodPost,
			Path:    "/local_sky_model/export",
			Handler: h.exportLocalSkyModel,
		},
	}
	for _, route := range routes {
		r.Method(route.Method, route.Path, httpx.WrapHttpRsp(route.Handler))
	}
	return r
}
