// Package processor turns scraped products into insurance packages. A worker
// pool claims pending products from the store, asks a Generator to classify
// eligibility and author the guarantees document, and writes the outcome back.
package processor

import (
	"context"
	"encoding/json"
)

// Classification is the structured outcome of generating a package for one
// product.
type Classification struct {
	Eligible    bool            `json:"eligible"`
	Reason      string          `json:"reason"`
	RiskProfile string          `json:"risk_profile"`
	PackageName string          `json:"package_name"`
	Guarantees  json.RawMessage `json:"guarantees"`
}

// Generator authors an insurance classification for a product. Implementations
// must be safe for concurrent use; the worker pool calls Generate from
// multiple goroutines.
type Generator interface {
	Generate(ctx context.Context, input *GenerateInput) (*Classification, error)
}

// GenerateInput carries the product fields the generator needs. The raw
// product row stays in the storage layer.
type GenerateInput struct {
	ProductName string
	Description string
	Brand       string
	Category    string
	Price       float64
	Currency    string
}
