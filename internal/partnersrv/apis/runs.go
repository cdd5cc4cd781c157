package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/coverlane/coverlane/internal/common/httpx"
	"github.com/coverlane/coverlane/internal/common/uuid"
	"github.com/coverlane/coverlane/internal/partnersrv/db"
)

type createRunReq struct {
	PartnerID string `json:"partner_id" validate:"required,uuid"`
}

// createRun starts a background processing run over the partner's pending
// products. The response carries the run ID for polling.
func createRun(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	if runWorker == nil {
		return nil, httpx.ErrApplicationError("processing worker not initialized")
	}

	var req createRunReq
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}

	partnerID, err := uuid.Parse(req.PartnerID)
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid partner id")
	}

	if _, dberr := db.DB(ctx).GetPartner(ctx, partnerID); dberr != nil {
		return nil, dberr
	}

	runID := runWorker.StartRun(ctx, partnerID)
	log.Ctx(ctx).Info().Str("run_id", runID.String()).Str("partner_id", partnerID.String()).Msg("processing run started")

	run, _ := runRegistry.GetRun(runID)
	return &httpx.Response{
		StatusCode: http.StatusAccepted,
		Location:   "/runs/" + runID.String(),
		Response:   run,
	}, nil
}

func listRuns(r *http.Request) (*httpx.Response, error) {
	if runRegistry == nil {
		return nil, httpx.ErrApplicationError("processing worker not initialized")
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   runRegistry.ListRuns(),
	}, nil
}

func getRun(r *http.Request) (*httpx.Response, error) {
	if runRegistry == nil {
		return nil, httpx.ErrApplicationError("processing worker not initialized")
	}

	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid run id")
	}

	run, ok := runRegistry.GetRun(runID)
	if !ok {
		return nil, httpx.ErrNotFound("run not found")
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   run,
	}, nil
}

func stopRun(r *http.Request) (*httpx.Response, error) {
	if runRegistry == nil {
		return nil, httpx.ErrApplicationError("processing worker not initialized")
	}

	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid run id")
	}

	if !runRegistry.RequestStop(runID) {
		return nil, httpx.ErrNotFound("run not found")
	}

	log.Ctx(r.Context()).Info().Str("run_id", runID.String()).Msg("run stop requested")

	run, _ := runRegistry.GetRun(runID)
	return &httpx.Response{
		StatusCode: http.StatusAccepted,
		Response:   run,
	}, nil
}
