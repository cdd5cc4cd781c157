// Package models defines the row types stored in the partner store.
package models

import (
	"time"

	"github.com/coverlane/coverlane/internal/common/uuid"
)

// Partner is one onboarded partner organization. Partners own products and
// insurance packages; deleting a partner cascades to both.
type Partner struct {
	PartnerID   uuid.UUID `db:"partner_id"`
	CompanyName string    `db:"company_name"`
	WebsiteURL  string    `db:"website_url"`
	Country     string    `db:"country"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}
