// Package server assembles the sky model HTTP server: routing, middleware,
// and the health surface.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/common/httpx"
	"github.com/skymodel/skymodel/internal/common/logtrace"
	commonmiddleware "github.com/skymodel/skymodel/internal/common/middleware"
	"github.com/skymodel/skymodel/internal/gsmsrv/apis"
	"github.com/skymodel/skymodel/internal/gsmsrv/cache"
	"github.com/skymodel/skymodel/internal/gsmsrv/catalogmanager"
	"github.com/skymodel/skymodel/internal/gsmsrv/config"
	"github.com/skymodel/skymodel/internal/gsmsrv/db"
	"github.com/skymodel/skymodel/internal/gsmsrv/gsmcommon"
	"github.com/skymodel/skymodel/internal/gsmsrv/lsm"
	"github.com/skymodel/skymodel/internal/gsmsrv/uploadmanager"
)

// requestTimeout bounds request handling. Uploads are accepted and ingested
// in the background, so no route needs longer than this.
const requestTimeout = 2 * time.Minute

type SkyModelServer struct {
	Router   *chi.Mux
	manager  *catalogmanager.Manager
	exporter *lsm.Exporter
	versions *cache.VersionCache
}

// CreateNewServer wires the upload manager, version cache, catalogue
// manager, and exporter into a server with an unmounted router.
func CreateNewServer() (*SkyModelServer, error) {
	versions := cache.NewVersionCache()
	s := &SkyModelServer{
		Router:   chi.NewRouter(),
		versions: versions,
		manager:  catalogmanager.NewManager(uploadmanager.NewManager(), versions),
		exporter: lsm.NewExporter(),
	}
	return s, nil
}

func (s *SkyModelServer) MountHandlers() {
	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	s.Router.Use(commonmiddleware.SetTimeout(requestTimeout))
	s.Router.Use(limitRequestBody(config.Config().MaxRequestBodySize))
	s.Router.Use(db.LoadDBMiddleware)
	if config.Config().HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.mountResourceHandlers(s.Router)
	if logtrace.IsTraceEnabled() {
		fmt.Println("Routes in sky model router")
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			fmt.Printf("Logging err: %s\n", err.Error())
		}
	}
}

func (s *SkyModelServer) mountResourceHandlers(r chi.Router) {
	apis.Router(r, s.manager, s.exporter)
	r.Get("/version", s.getVersion)
	r.Get("/ready", s.getReadiness)
}

// Close releases resources held outside the request path.
func (s *SkyModelServer) Close() {
	s.versions.Close()
}

type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *SkyModelServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &GetVersionRsp{
		ServerVersion: "Global Sky Model Server: " + gsmcommon.ServerVersion,
		ApiVersion:    gsmcommon.ApiVersion,
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

func (s *SkyModelServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("Readiness check")

	ctx, err := db.ConnCtx(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Database connection failed during readiness check")
		httpx.SendJsonRsp(r.Context(), w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "database connection failed",
		})
		return
	}
	defer db.DB(ctx).Close(ctx)

	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (s *SkyModelServer) HandleCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding")

		if r.Method == "OPTIONS" {
			log.Ctx(r.Context()).Debug().Msg("OPTIONS request")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitRequestBody caps the readable request body so a runaway upload fails
// with a clear error instead of exhausting the server.
func limitRequestBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
