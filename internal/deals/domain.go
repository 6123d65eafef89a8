// Package deals tracks closed and in-pipeline sales against leads. A
// deal carries the pricing inputs the commission breakdown needs: the
// product sold (catalog or custom), the customer price and the number
// of property owners.
package deals

import (
	"errors"
	"time"
)

type PipelineStatus string

const (
	StatusOpen PipelineStatus = "open"
	StatusWon  PipelineStatus = "won"
	StatusLost PipelineStatus = "lost"
)

func ValidStatus(s PipelineStatus) bool {
	switch s {
	case StatusOpen, StatusWon, StatusLost:
		return true
	}
	return false
}

type Deal struct {
	ID                    int64          `json:"id"`
	LeadID                int64          `json:"lead_id"`
	OrganizationID        int64          `json:"organization_id"`
	CloserID              int64          `json:"closer_id"`
	ProductID             *int64         `json:"product_id,omitempty"`
	CustomProductName     string         `json:"custom_product_name,omitempty"`
	CustomProductPrice    float64        `json:"custom_product_price,omitempty"`
	CustomMaterialCostEur float64        `json:"custom_material_cost_eur,omitempty"`
	NumPropertyOwners     int            `json:"num_property_owners"`
	PipelineStatus        PipelineStatus `json:"pipeline_status"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

type DealInput struct {
	LeadID                int64
	OrganizationID        int64
	CloserID              int64
	ProductID             *int64
	CustomProductName     string
	CustomProductPrice    float64
	CustomMaterialCostEur float64
	NumPropertyOwners     int
	PipelineStatus        PipelineStatus
}

var (
	ErrNotFound      = errors.New("deals: not found")
	ErrInvalidStatus = errors.New("deals: invalid pipeline status")
	ErrNoProduct     = errors.New("deals: deal needs a product or a custom product")
)
