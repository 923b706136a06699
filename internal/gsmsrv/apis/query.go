package apis

import (
	"net/http"
	"strconv"
	"time"

	"github.com/skymodel/skymodel/internal/common/httpx"
	"github.com/skymodel/skymodel/internal/gsmsrv/catalogmanager"
	"github.com/skymodel/skymodel/internal/gsmsrv/lsm"
)

// listCatalogues returns the committed catalogue versions, optionally
// filtered with the catalogue_name and version query parameters.
func (h *handler) listCatalogues(r *http.Request) (*httpx.Response, error) {
	q := r.URL.Query()
	metas, err := h.manager.ListCatalogues(r.Context(), q.Get("catalogue_name"), q.Get("version"))
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   metas,
	}, nil
}

// getLocalSkyModel runs a cone search and returns the local sky model as
// JSON.
func (h *handler) getLocalSkyModel(r *http.Request) (*httpx.Response, error) {
	params, err := coneSearchParams(r)
	if err != nil {
		return nil, err
	}
	result, appErr := h.manager.ConeSearch(r.Context(), params)
	if appErr != nil {
		return nil, appErr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   result,
	}, nil
}

// getLocalSkyModelCSV runs a cone search and streams the local sky model as
// a CSV source file.
func (h *handler) getLocalSkyModelCSV(r *http.Request) (*httpx.Response, error) {
	params, err := coneSearchParams(r)
	if err != nil {
		return nil, err
	}
	result, appErr := h.manager.ConeSearch(r.Context(), params)
	if appErr != nil {
		return nil, appErr
	}
	return &httpx.Response{
		StatusCode:  http.StatusOK,
		ContentType: "text/csv",
		Chunked:     true,
		WriteChunks: func(w http.ResponseWriter) error {
			return lsm.WriteCSV(w, result, time.Now())
		},
	}, nil
}

// exportLocalSkyModel runs a cone search and writes the local sky model to
// the shared export directory as a CSV file plus a YAML data product
// descriptor.
func (h *handler) exportLocalSkyModel(r *http.Request) (*httpx.Response, error) {
	params, err := coneSearchParams(r)
	if err != nil {
		return nil, err
	}
	result, appErr := h.manager.ConeSearch(r.Context(), params)
	if appErr != nil {
		return nil, appErr
	}
	export, appErr := h.exporter.Export(r.Context(), result)
	if appErr != nil {
		return nil, appErr
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Response:   export,
	}, nil
}

// coneSearchParams parses the ra, dec, and fov query parameters (degrees,
// degrees, arcminutes) plus the optional catalogue_name and version filters.
func coneSearchParams(r *http.Request) (catalogmanager.ConeSearchParams, error) {
	q := r.URL.Query()
	ra, err := requiredFloat(q.Get("ra"), "ra")
	if err != nil {
		return catalogmanager.ConeSearchParams{}, err
	}
	dec, err := requiredFloat(q.Get("dec"), "dec")
	if err != nil {
		return catalogmanager.ConeSearchParams{}, err
	}
	fov, err := requiredFloat(q.Get("fov"), "fov")
	if err != nil {
		return catalogmanager.ConeSearchParams{}, err
	}
	return catalogmanager.ConeSearchParams{
		RA:            ra,
		Dec:           dec,
		FOVArcmin:     fov,
		CatalogueName: q.Get("catalogue_name"),
		Version:       q.Get("version"),
	}, nil
}

func requiredFloat(raw, name string) (float64, error) {
	if raw == "" {
		return 0, httpx.ErrInvalidRequest(name + " is a required query parameter")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, httpx.ErrInvalidRequest(name + " must be a number")
	}
	return v, nil
}
