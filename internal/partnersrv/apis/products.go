package apis

import (
	"net/http"
	"strconv"

	"github.com/coverlane/coverlane/internal/common/httpx"
	"github.com/coverlane/coverlane/internal/partnersrv/db"
	"github.com/coverlane/coverlane/internal/partnersrv/db/models"
	"github.com/coverlane/coverlane/internal/partnersrv/ingest"
	"github.com/coverlane/coverlane/internal/partnersrv/partnercommon"
)

type productRsp struct {
	ProductID        string  `json:"product_id"`
	PartnerID        string  `json:"partner_id"`
	ProductName      string  `json:"product_name"`
	Description      string  `json:"description,omitempty"`
	Category         string  `json:"category,omitempty"`
	Brand            string  `json:"brand,omitempty"`
	Price            float64 `json:"price"`
	Currency         string  `json:"currency"`
	ProductURL       string  `json:"product_url,omitempty"`
	InStock          bool    `json:"in_stock"`
	ScrapedAt        string  `json:"scraped_at"`
	Processed        bool    `json:"processed"`
	ProcessingStatus string  `json:"processing_status"`
	ProcessingError  string  `json:"processing_error,omitempty"`
}

func toProductRsp(p *models.Product) *productRsp {
	return &productRsp{
		ProductID:        p.ProductID.String(),
		PartnerID:        p.PartnerID.String(),
		ProductName:      p.ProductName,
		Description:      p.Description.String,
		Category:         p.Category.String,
		Brand:            p.Brand.String,
		Price:            p.Price,
		Currency:         p.Currency,
		ProductURL:       p.ProductURL.String,
		InStock:          p.InStock,
		ScrapedAt:        p.ScrapedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Processed:        p.Processed,
		ProcessingStatus: p.ProcessingStatus,
		ProcessingError:  p.ProcessingError.String,
	}
}

// ingestProducts loads a scraper batch for the partner in the URL. The batch
// body carries the source domain and raw records; cleaning and deduplication
// happen in the ingest package.
func ingestProducts(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	partnerID, err := partnerIDParam(r)
	if err != nil {
		return nil, err
	}

	partner, dberr := db.DB(ctx).GetPartner(ctx, partnerID)
	if dberr != nil {
		return nil, dberr
	}

	var batch ingest.Batch
	if err := httpx.GetRequestData(r, &batch); err != nil {
		return nil, err
	}

	summary, dberr := ingest.LoadBatchForPartner(ctx, partner, &batch)
	if dberr != nil {
		return nil, dberr
	}

	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Response:   summary,
	}, nil
}

func listPartnerProducts(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	partnerID, err := partnerIDParam(r)
	if err != nil {
		return nil, err
	}

	status := r.URL.Query().Get("status")
	if status != "" && !partnercommon.IsValidProcessingStatus(status) {
		return nil, httpx.ErrInvalidRequest("invalid processing status")
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 0 {
			return nil, httpx.ErrInvalidRequest("invalid limit")
		}
		limit = parsed
	}

	products, dberr := db.DB(ctx).ListProducts(ctx, partnerID, status, limit)
	if dberr != nil {
		return nil, dberr
	}

	rsp := make([]*productRsp, 0, len(products))
	for _, p := range products {
		rsp = append(rsp, toProductRsp(p))
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   rsp,
	}, nil
}

func getPartnerStats(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	partnerID, err := partnerIDParam(r)
	if err != nil {
		return nil, err
	}

	// Ensure the partner exists so a typo'd ID is a 404, not empty stats.
	if _, dberr := db.DB(ctx).GetPartner(ctx, partnerID); dberr != nil {
		return nil, dberr
	}

	stats, dberr := db.DB(ctx).GetProcessingStats(ctx, partnerID)
	if dberr != nil {
		return nil, dberr
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   stats,
	}, nil
}
