// Package catalog manages the sellable product catalog and the
// per-partner provision overrides applied when a deal is billed.
package catalog

import (
	"errors"
	"time"

	"github.com/voltlead/voltlead/internal/billing"
)

type Product struct {
	ID                        int64                `json:"id"`
	Type                      billing.InterestType `json:"type"`
	Name                      string               `json:"name"`
	BasePriceInclTax          float64              `json:"base_price_incl_tax"`
	MaterialCostEur           float64              `json:"material_cost_eur"`
	GreenTechDeductionPercent float64              `json:"green_tech_deduction_percent"`
	Archived                  bool                 `json:"archived"`
	CreatedAt                 time.Time            `json:"created_at"`
	UpdatedAt                 time.Time            `json:"updated_at"`
}

type ProductInput struct {
	Type                      billing.InterestType
	Name                      string
	BasePriceInclTax          float64
	MaterialCostEur           float64
	GreenTechDeductionPercent float64
}

// Provision is a fixed partner payout for one product, overriding the
// percentage split when the partner bills under the fixed model.
type Provision struct {
	OrganizationID int64     `json:"organization_id"`
	ProductID      int64     `json:"product_id"`
	Amount         float64   `json:"amount"`
	UpdatedAt      time.Time `json:"updated_at"`
}

var (
	ErrNotFound    = errors.New("catalog: not found")
	ErrDuplicate   = errors.New("catalog: duplicate")
	ErrInvalidType = errors.New("catalog: invalid product type")
)
