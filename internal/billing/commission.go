package billing

import "math"

// DeductionBound names which cap limited the green-tech deduction.
type DeductionBound string

const (
	BoundOwners  DeductionBound = "owners"
	BoundPercent DeductionBound = "percent"
)

// BreakdownInput carries everything the commission engine needs for one
// deal. Zero numeric fields fall back to organization configuration and
// then to Defaults; the engine is a what-if calculator and never
// rejects input.
type BreakdownInput struct {
	TotalPriceInclTax float64
	NumPropertyOwners int
	Organization      Organization
	Product           *Product
	CustomProduct     *CustomProduct
	CostSegments      []CostSegment
	// ProductProvision is the flat per-product provision configured for
	// the sold product under the fixed model; nil when none exists.
	ProductProvision *float64
}

// Breakdown exposes every intermediate of the cost/markup computation so
// operators can verify each figure independently, not just the final
// number.
type Breakdown struct {
	TotalPriceInclTax float64 `json:"total_price_incl_tax"`

	MaxDeductionByOwners  float64        `json:"max_deduction_by_owners"`
	MaxDeductionByPercent float64        `json:"max_deduction_by_percent"`
	Deduction             float64        `json:"deduction"`
	DeductionBound        DeductionBound `json:"deduction_bound"`
	PriceAfterDeduction   float64        `json:"price_after_deduction"`

	PriceExTax float64 `json:"price_ex_tax"`

	BaseCost        float64 `json:"base_cost"`
	MaterialCostSek float64 `json:"material_cost_sek"`
	FinancingFee    float64 `json:"financing_fee"`
	CustomCostsSek  float64 `json:"custom_costs_sek"`
	TotalCosts      float64 `json:"total_costs"`

	BillableAmount float64 `json:"billable_amount"`

	BillingModel  BillingModel `json:"billing_model"`
	UsedProvision bool         `json:"used_provision"`
	CompanyShare  float64      `json:"company_share"`
	PartnerShare  float64      `json:"partner_share"`
}

// Engine computes commission breakdowns with injected domain defaults.
type Engine struct {
	defaults Defaults
}

// NewEngine constructs a commission engine.
func NewEngine(defaults Defaults) *Engine {
	return &Engine{defaults: defaults}
}

// ComputeBreakdown runs the full cost/markup computation for one deal.
// The green-tech deduction affects only what the end customer pays and
// never reduces the partner's billable amount. BillableAmount may be
// negative on loss-making deals; it is reported as-is, never clamped.
func (e *Engine) ComputeBreakdown(in BreakdownInput) Breakdown {
	org := in.Organization
	price := in.TotalPriceInclTax
	if price == 0 {
		price = orFallback(org.DefaultCustomerPriceInclTax, e.defaults.CustomerPriceInclTax)
	}
	owners := in.NumPropertyOwners
	if owners <= 0 {
		owners = 1
	}

	eurRate := orFallback(org.EurToSekRate, e.defaults.EurToSekRate)
	baseCost := orFallback(org.BaseCostForBilling, e.defaults.BaseCostForBilling)
	financingPct := orFallback(org.LfFinansPercent, e.defaults.FinancingPercent)

	deductionPct := e.defaults.GreenTechDeductionPercent
	materialCostEur := 0.0
	switch {
	case in.CustomProduct != nil:
		materialCostEur = in.CustomProduct.MaterialCostEur
	case in.Product != nil:
		materialCostEur = in.Product.MaterialCostEur
		deductionPct = orFallback(in.Product.GreenTechDeductionPercent, deductionPct)
	}

	b := Breakdown{
		TotalPriceInclTax: price,
		BillingModel:      org.BillingModel,
	}

	b.MaxDeductionByOwners = float64(owners) * DeductionCapPerOwner
	b.MaxDeductionByPercent = round2(price * deductionPct / 100)
	if b.MaxDeductionByOwners <= b.MaxDeductionByPercent {
		b.Deduction = b.MaxDeductionByOwners
		b.DeductionBound = BoundOwners
	} else {
		b.Deduction = b.MaxDeductionByPercent
		b.DeductionBound = BoundPercent
	}
	b.PriceAfterDeduction = round2(price - b.Deduction)

	b.PriceExTax = round2(price / VATFactor)

	b.BaseCost = baseCost
	b.MaterialCostSek = round2(materialCostEur * eurRate)
	b.FinancingFee = round2(price * financingPct / 100)
	for _, seg := range in.CostSegments {
		amount := seg.Amount
		if seg.IsEur {
			amount *= eurRate
		}
		b.CustomCostsSek += amount
	}
	b.CustomCostsSek = round2(b.CustomCostsSek)
	b.TotalCosts = round2(b.BaseCost + b.MaterialCostSek + b.FinancingFee + b.CustomCostsSek)

	b.BillableAmount = round2(b.PriceExTax - b.TotalCosts)

	switch org.BillingModel {
	case BillingAboveCost:
		b.CompanyShare = b.BillableAmount
		b.PartnerShare = 0
	default:
		if in.ProductProvision != nil {
			// A configured per-product provision overrides the
			// percentage split: the partner receives the flat amount.
			b.UsedProvision = true
			b.PartnerShare = round2(*in.ProductProvision)
			b.CompanyShare = round2(b.BillableAmount - b.PartnerShare)
		} else {
			share := orFallback(org.CompanyMarkupSharePercent, e.defaults.MarkupSharePercent)
			b.CompanyShare = round2(b.BillableAmount * share / 100)
			b.PartnerShare = round2(b.BillableAmount - b.CompanyShare)
		}
	}

	return b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
