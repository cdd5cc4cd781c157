// Package server assembles the partner service HTTP server: middleware,
// routes and the readiness/version endpoints.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/coverlane/coverlane/internal/common/httpx"
	commonmiddleware "github.com/coverlane/coverlane/internal/common/middleware"
	"github.com/coverlane/coverlane/internal/partnersrv/apis"
	"github.com/coverlane/coverlane/internal/partnersrv/config"
	"github.com/coverlane/coverlane/internal/partnersrv/db"
	"github.com/coverlane/coverlane/internal/partnersrv/partnercommon"
	"github.com/coverlane/coverlane/internal/partnersrv/processor"
)

type PartnerServer struct {
	Router *chi.Mux
}

func CreateNewServer() (*PartnerServer, error) {
	s := &PartnerServer{}
	s.Router = chi.NewRouter()
	return s, nil
}

// MountHandlers registers middleware and the API routes. gen is the package
// generator behind the run endpoints.
func (s *PartnerServer) MountHandlers(gen processor.Generator) {
	apis.Init(gen)

	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	s.Router.Use(limitRequestBody)
	s.Router.Use(db.LoadDBMiddleware)
	if config.Config().HandleCORS {
		s.Router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	apis.Router(s.Router)
	s.Router.Get("/version", s.getVersion)
	s.Router.Get("/ready", s.getReadiness)
}

// limitRequestBody caps request bodies at the configured maximum. Reads past
// the limit surface as *http.MaxBytesError in the handlers.
func limitRequestBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil && config.Config().MaxRequestBodySize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, config.Config().MaxRequestBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *PartnerServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &GetVersionRsp{
		ServerVersion: "Coverlane Partner Server: " + partnercommon.ServerVersion,
		ApiVersion:    partnercommon.ApiVersion,
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

func (s *PartnerServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("Readiness check")

	ctx, err := db.ConnCtx(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("database connection failed during readiness check")
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
