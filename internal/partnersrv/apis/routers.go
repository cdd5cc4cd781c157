// Package apis implements the HTTP handlers of the partner service: partner
// onboarding, product ingestion, processing runs and the package approval
// workflow.
package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coverlane/coverlane/internal/common/httpx"
	"github.com/coverlane/coverlane/internal/partnersrv/auth"
	"github.com/coverlane/coverlane/internal/partnersrv/processor"
)

var (
	runRegistry *processor.Registry
	runWorker   *processor.Worker
)

// Init wires the processing worker behind the run endpoints. Must be called
// before mounting the router.
func Init(gen processor.Generator) {
	runRegistry = processor.NewRegistry()
	runWorker = processor.NewWorker(gen, runRegistry)
}

type handlerParam struct {
	Method  string
	Path    string
	Handler httpx.RequestHandler
}

// readHandlers require no authentication.
var readHandlers = []handlerParam{
	{http.MethodGet, "/partners", listPartners},
	{http.MethodGet, "/partners/{partnerID}", getPartner},
	{http.MethodGet, "/partners/{partnerID}/products", listPartnerProducts},
	{http.MethodGet, "/partners/{partnerID}/stats", getPartnerStats},
	{http.MethodGet, "/partners/{partnerID}/packages", listPartnerPackages},
	{http.MethodGet, "/runs", listRuns},
	{http.MethodGet, "/runs/{runID}", getRun},
}

// mutatingHandlers require a valid bearer token.
var mutatingHandlers = []handlerParam{
	{http.MethodPost, "/partners", createPartner},
	{http.MethodDelete, "/partners/{partnerID}", deletePartner},
	{http.MethodPost, "/partners/{partnerID}/products", ingestProducts},
	{http.MethodPost, "/packages/{packageID}/approve", approvePackage},
	{http.MethodPost, "/runs", createRun},
	{http.MethodPost, "/runs/{runID}/stop", stopRun},
}

// Router registers the API handlers on r.
func Router(r chi.Router) chi.Router {
	r.Group(func(r chi.Router) {
		for _, h := range readHandlers {
			r.Method(h.Method, h.Path, httpx.WrapHttpRsp(h.Handler))
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.UserAuthMiddleware)
		for _, h := range mutatingHandlers {
			r.Method(h.Method, h.Path, httpx.WrapHttpRsp(h.Handler))
		}
	})

	return r
}
