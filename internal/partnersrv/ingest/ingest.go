package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/coverlane/coverlane/internal/common/apperrors"
	"github.com/coverlane/coverlane/internal/partnersrv/db"
	"github.com/coverlane/coverlane/internal/partnersrv/db/models"
)

var (
	ErrInvalidBatch = apperrors.New("invalid ingest batch").SetStatusCode(400)
)

var validate = validator.New()

// FlexString accepts both JSON strings and numbers. Scrapers are not
// consistent about quoting prices.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Record is one scraped product as emitted by the scrapers, before cleaning.
type Record struct {
	ProductName string     `json:"product_name"`
	Description string     `json:"description"`
	Brand       string     `json:"brand"`
	Category    string     `json:"category"`
	Price       FlexString `json:"price"`
	Currency    string     `json:"currency"`
	ProductURL  string     `json:"product_url"`
	ImageURL    string     `json:"image_url"`
	InStock     *bool      `json:"in_stock"`
}

// Batch is one scraper output file: metadata plus the raw records.
type Batch struct {
	Domain   string            `json:"domain" validate:"required"`
	StartURL string            `json:"start_url"`
	Products []json.RawMessage `json:"products" validate:"required,min=1"`
}

// Summary reports what happened to each record in a batch.
type Summary struct {
	PartnerID  string `json:"partner_id"`
	Partner    string `json:"partner"`
	Country    string `json:"country"`
	Added      int    `json:"added"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	Total      int    `json:"total"`
}

// cleanRecord is the validated shape a record must reach to be stored.
type cleanRecord struct {
	ProductName string  `validate:"required"`
	ProductURL  string  `validate:"required,url"`
	Price       float64 `validate:"required,gt=0"`
	Currency    string  `validate:"required,oneof=AED TND"`
}

// Clean normalizes one raw record into a storable product. Returns false when
// the record cannot be salvaged: no name, placeholder URL, free or unpriced,
// or a currency outside the supported set.
func Clean(raw json.RawMessage, domain string) (*models.Product, bool) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}

	productURL, ok := NormalizeURL(rec.ProductURL)
	if !ok {
		return nil, false
	}
	price, ok := ParsePrice(string(rec.Price))
	if !ok {
		return nil, false
	}
	currency, ok := NormalizeCurrency(rec.Currency)
	if !ok {
		return nil, false
	}

	clean := cleanRecord{
		ProductName: strings.TrimSpace(rec.ProductName),
		ProductURL:  productURL,
		Price:       price,
		Currency:    currency,
	}
	if err := validate.Struct(clean); err != nil {
		return nil, false
	}

	brand := strings.TrimSpace(rec.Brand)
	if brand == "" {
		brand = "Unknown"
	}
	inStock := true
	if rec.InStock != nil {
		inStock = *rec.InStock
	}

	product := &models.Product{
		ProductName:   clean.ProductName,
		Price:         clean.Price,
		Currency:      clean.Currency,
		ProductURL:    sql.NullString{String: clean.ProductURL, Valid: true},
		SourceWebsite: sql.NullString{String: domain, Valid: true},
		InStock:       inStock,
		ScrapedAt:     time.Now().UTC(),
		RawData:       raw,
	}
	if desc := strings.TrimSpace(rec.Description); desc != "" {
		product.Description = sql.NullString{String: desc, Valid: true}
	}
	if rec.Category != "" {
		product.Category = sql.NullString{String: rec.Category, Valid: true}
	}
	product.Brand = sql.NullString{String: brand, Valid: true}
	if rec.ImageURL != "" {
		product.ImageURL = sql.NullString{String: rec.ImageURL, Valid: true}
	}

	return product, true
}

// LoadBatch cleans and stores a scraper batch. The partner is resolved by
// derived company name and created on first sight. Records whose product URL
// is already stored for the partner are counted as duplicates.
func LoadBatch(ctx context.Context, batch *Batch) (*Summary, apperrors.Error) {
	if err := validate.Struct(batch); err != nil {
		return nil, ErrInvalidBatch.Err(err)
	}

	partnerName := PartnerNameFromDomain(batch.Domain)
	country := CountryFromDomain(batch.Domain)

	websiteURL := batch.StartURL
	if websiteURL == "" {
		websiteURL = "https://" + batch.Domain
	}

	partner, err := db.DB(ctx).GetOrCreatePartner(ctx, &models.Partner{
		CompanyName: partnerName,
		WebsiteURL:  websiteURL,
		Country:     country,
	})
	if err != nil {
		return nil, err
	}

	return LoadBatchForPartner(ctx, partner, batch)
}

// LoadBatchForPartner cleans and stores a batch against an already resolved
// partner. Records whose product URL is already stored for the partner are
// counted as duplicates.
func LoadBatchForPartner(ctx context.Context, partner *models.Partner, batch *Batch) (*Summary, apperrors.Error) {
	if err := validate.Struct(batch); err != nil {
		return nil, ErrInvalidBatch.Err(err)
	}

	existing, err := db.DB(ctx).ListProducts(ctx, partner.PartnerID, "", 0)
	if err != nil {
		return nil, err
	}
	seenURLs := make(map[string]bool, len(existing))
	for _, p := range existing {
		if p.ProductURL.Valid {
			seenURLs[p.ProductURL.String] = true
		}
	}

	summary := &Summary{
		PartnerID: partner.PartnerID.String(),
		Partner:   partner.CompanyName,
		Country:   partner.Country,
		Total:     len(batch.Products),
	}

	for _, raw := range batch.Products {
		product, ok := Clean(raw, batch.Domain)
		if !ok {
			summary.Skipped++
			continue
		}
		if seenURLs[product.ProductURL.String] {
			summary.Duplicates++
			continue
		}

		product.PartnerID = partner.PartnerID
		if err := db.DB(ctx).CreateProduct(ctx, product); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("product", product.ProductName).Msg("failed to store product")
			return nil, err
		}
		seenURLs[product.ProductURL.String] = true
		summary.Added++
	}

	log.Ctx(ctx).Info().
		Str("partner", partner.CompanyName).
		Int("added", summary.Added).
		Int("duplicates", summary.Duplicates).
		Int("skipped", summary.Skipped).
		Msg("ingest batch loaded")

	return summary, nil
}
