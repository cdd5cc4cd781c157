package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/coverlane/coverlane/internal/common/httpx"
	"github.com/coverlane/coverlane/internal/common/uuid"
	"github.com/coverlane/coverlane/internal/partnersrv/db"
	"github.com/coverlane/coverlane/internal/partnersrv/db/models"
)

var validate = validator.New()

type createPartnerReq struct {
	CompanyName string `json:"company_name" validate:"required,max=255"`
	WebsiteURL  string `json:"website_url" validate:"required,url,max=500"`
	Country     string `json:"country" validate:"required,len=2"`
}

type partnerRsp struct {
	PartnerID   string `json:"partner_id"`
	CompanyName string `json:"company_name"`
	WebsiteURL  string `json:"website_url"`
	Country     string `json:"country"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func toPartnerRsp(p *models.Partner) *partnerRsp {
	return &partnerRsp{
		PartnerID:   p.PartnerID.String(),
		CompanyName: p.CompanyName,
		WebsiteURL:  p.WebsiteURL,
		Country:     p.Country,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func partnerIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "partnerID"))
	if err != nil {
		return uuid.Nil, httpx.ErrInvalidRequest("invalid partner id")
	}
	return id, nil
}

func createPartner(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	var req createPartnerReq
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}

	partner := &models.Partner{
		CompanyName: req.CompanyName,
		WebsiteURL:  req.WebsiteURL,
		Country:     req.Country,
	}
	if err := db.DB(ctx).CreatePartner(ctx, partner); err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("partner_id", partner.PartnerID.String()).Msg("partner created")

	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/partners/" + partner.PartnerID.String(),
		Response:   toPartnerRsp(partner),
	}, nil
}

func getPartner(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	partnerID, err := partnerIDParam(r)
	if err != nil {
		return nil, err
	}

	partner, dberr := db.DB(ctx).GetPartner(ctx, partnerID)
	if dberr != nil {
		return nil, dberr
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   toPartnerRsp(partner),
	}, nil
}

func listPartners(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	partners, err := db.DB(ctx).ListPartners(ctx)
	if err != nil {
		return nil, err
	}

	rsp := make([]*partnerRsp, 0, len(partners))
	for _, p := range partners {
		rsp = append(rsp, toPartnerRsp(p))
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   rsp,
	}, nil
}

func deletePartner(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	partnerID, err := partnerIDParam(r)
	if err != nil {
		return nil, err
	}

	if dberr := db.DB(ctx).DeletePartner(ctx, partnerID); dberr != nil {
		return nil, dberr
	}

	log.Ctx(ctx).Info().Str("partner_id", partnerID.String()).Msg("partner deleted")

	return &httpx.Response{
		StatusCode: http.StatusNoContent,
	}, nil
}
