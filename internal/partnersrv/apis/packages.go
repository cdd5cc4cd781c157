package apis

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/coverlane/coverlane/internal/common/httpx"
	"github.com/coverlane/coverlane/internal/common/uuid"
	"github.com/coverlane/coverlane/internal/partnersrv/db"
	"github.com/coverlane/coverlane/internal/partnersrv/db/models"
	"github.com/coverlane/coverlane/internal/partnersrv/partnercommon"
)

type packageRsp struct {
	PackageID      string          `json:"package_id"`
	PartnerID      string          `json:"partner_id"`
	ProductID      string          `json:"product_id,omitempty"`
	PackageName    string          `json:"package_name,omitempty"`
	Guarantees     json.RawMessage `json:"guarantees"`
	MonthlyPremium *float64        `json:"monthly_premium,omitempty"`
	Status         string          `json:"status"`
	AIConfidence   *float64        `json:"ai_confidence,omitempty"`
	CreatedBy      string          `json:"created_by,omitempty"`
	ApprovedBy     string          `json:"approved_by,omitempty"`
	ApprovedAt     string          `json:"approved_at,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

func toPackageRsp(p *models.InsurancePackage) *packageRsp {
	rsp := &packageRsp{
		PackageID:   p.PackageID.String(),
		PartnerID:   p.PartnerID.String(),
		PackageName: p.PackageName.String,
		Guarantees:  json.RawMessage(p.Guarantees.Bytes),
		Status:      p.Status,
		CreatedBy:   p.CreatedBy.String,
		CreatedAt:   p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if p.ProductID.Valid {
		rsp.ProductID = p.ProductID.UUID.String()
	}
	if p.MonthlyPremium.Valid {
		v := p.MonthlyPremium.Float64
		rsp.MonthlyPremium = &v
	}
	if p.AIConfidence.Valid {
		v := p.AIConfidence.Float64
		rsp.AIConfidence = &v
	}
	if p.ApprovedBy.Valid {
		rsp.ApprovedBy = p.ApprovedBy.UUID.String()
	}
	if p.ApprovedAt.Valid {
		rsp.ApprovedAt = p.ApprovedAt.Time.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return rsp
}

var validPackageStatuses = map[string]bool{
	string(partnercommon.PackageStatusDraft):       true,
	string(partnercommon.PackageStatusEligible):    true,
	string(partnercommon.PackageStatusNotEligible): true,
	string(partnercommon.PackageStatusApproved):    true,
	string(partnercommon.PackageStatusRejected):    true,
}

func listPartnerPackages(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	partnerID, err := partnerIDParam(r)
	if err != nil {
		return nil, err
	}

	status := r.URL.Query().Get("status")
	if status != "" && !validPackageStatuses[status] {
		return nil, httpx.ErrInvalidRequest("invalid package status")
	}

	packages, dberr := db.DB(ctx).ListPackages(ctx, partnerID, status)
	if dberr != nil {
		return nil, dberr
	}

	rsp := make([]*packageRsp, 0, len(packages))
	for _, p := range packages {
		rsp = append(rsp, toPackageRsp(p))
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   rsp,
	}, nil
}

// approvePackage marks an eligible package approved. The approver identity is
// the authenticated actor from the bearer token.
func approvePackage(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	packageID, err := uuid.Parse(chi.URLParam(r, "packageID"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid package id")
	}

	actor := partnercommon.GetActor(ctx)
	if actor == nil {
		return nil, httpx.ErrUnAuthorized("no authenticated actor")
	}

	if dberr := db.DB(ctx).ApprovePackage(ctx, packageID, actor.ActorID); dberr != nil {
		return nil, dberr
	}

	log.Ctx(ctx).Info().
		Str("package_id", packageID.String()).
		Str("approved_by", actor.ActorID.String()).
		Msg("package approved")

	pkg, dberr := db.DB(ctx).GetPackage(ctx, packageID)
	if dberr != nil {
		return nil, dberr
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   toPackageRsp(pkg),
	}, nil
}
