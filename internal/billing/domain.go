// Package billing implements the partner billing and commission
// calculation core: price resolution against historical price lists,
// per-lead valuation, period aggregation for partner invoicing, the
// above-cost commission breakdown and quota classification. Every
// function in this package is a pure transform of its inputs; data
// loading lives in Repository and Service.
package billing

import "time"

// InterestType enumerates what a lead is interested in buying.
type InterestType string

const (
	InterestSolar        InterestType = "solar"
	InterestBattery      InterestType = "battery"
	InterestSolarBattery InterestType = "solar_battery"
)

// BillingModel enumerates how an organization is invoiced.
type BillingModel string

const (
	// BillingFixed bills a flat per-deal price and splits markup by percentage.
	BillingFixed BillingModel = "fixed"
	// BillingAboveCost bills the full markup over the cost stack.
	BillingAboveCost BillingModel = "above_cost"
)

// CreditStatus enumerates credit request states.
type CreditStatus string

const (
	CreditPending  CreditStatus = "pending"
	CreditApproved CreditStatus = "approved"
	CreditDenied   CreditStatus = "denied"
)

// CreditRequest is a refund claim against a billed lead. Only approved
// requests remove a lead from an organization's billable total.
type CreditRequest struct {
	ID             int64
	LeadID         int64
	OrganizationID int64
	Status         CreditStatus
}

// Lead is a contact captured by an opener, with its organization
// assignments and credit requests already attached.
type Lead struct {
	ID              int64
	Name            string
	InterestType    InterestType
	DateSent        time.Time
	OrganizationIDs []int64
	Credits         []CreditRequest
}

// CostSegment is an extra cost line owned by one organization,
// denominated in SEK or EUR.
type CostSegment struct {
	ID             int64
	OrganizationID int64
	Name           string
	Amount         float64
	IsEur          bool
}

// PriceHistoryRecord captures an organization's per-deal prices over a
// half-open effective interval. EffectiveUntil == nil marks the current
// open-ended record.
type PriceHistoryRecord struct {
	ID                  int64
	OrganizationID      int64
	PricePerSolarDeal   float64
	PricePerBatteryDeal float64
	EffectiveFrom       time.Time
	EffectiveUntil      *time.Time
}

// Contains reports whether ts falls inside [EffectiveFrom, EffectiveUntil).
func (r PriceHistoryRecord) Contains(ts time.Time) bool {
	if ts.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveUntil == nil || ts.Before(*r.EffectiveUntil)
}

// Organization is a partner buying leads or installation services.
// Numeric above-cost fields left at zero fall back to Defaults.
type Organization struct {
	ID       int64
	Name     string
	Archived bool

	PricePerSolarDeal   float64
	PricePerBatteryDeal float64
	PricePerSiteVisit   float64

	BillingModel                BillingModel
	CompanyMarkupSharePercent   float64
	BaseCostForBilling          float64
	EurToSekRate                float64
	LfFinansPercent             float64
	DefaultCustomerPriceInclTax float64

	IsSalesConsultant       bool
	SalesConsultantLeadType InterestType

	PriceHistory []PriceHistoryRecord
	CostSegments []CostSegment
}

// Product is a catalog entry. MaterialCostEur is nonzero only for
// products with a foreign-currency supply cost.
type Product struct {
	ID                        int64
	Type                      InterestType
	Name                      string
	BasePriceInclTax          float64
	MaterialCostEur           float64
	GreenTechDeductionPercent float64
}

// CustomProduct overrides the catalog product on a single sale.
type CustomProduct struct {
	Name            string
	PriceInclTax    float64
	MaterialCostEur float64
}

// Sale records a closed (or in-pipeline) deal against a lead.
type Sale struct {
	ID                    int64
	LeadID                int64
	OrganizationID        int64
	CloserID              int64
	ProductID             *int64
	CustomProductName     string
	CustomProductPrice    float64
	CustomMaterialCostEur float64
	NumPropertyOwners     int
	PipelineStatus        string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
