package billing

// VATFactor converts a tax-inclusive price to ex-VAT by division. The 25%
// Swedish VAT rate is a fixed constant of the domain, not configuration.
const VATFactor = 1.25

// DeductionCapPerOwner caps the green-tech deduction per property owner.
const DeductionCapPerOwner = 50000.0

// Defaults supplies fallback values for organizations with incomplete
// above-cost configuration. Injected at engine construction so call
// sites never carry magic numbers.
type Defaults struct {
	MarkupSharePercent        float64
	BaseCostForBilling        float64
	EurToSekRate              float64
	FinancingPercent          float64
	CustomerPriceInclTax      float64
	GreenTechDeductionPercent float64
}

// StandardDefaults returns the domain's baseline configuration.
func StandardDefaults() Defaults {
	return Defaults{
		MarkupSharePercent:        70,
		BaseCostForBilling:        23000,
		EurToSekRate:              11,
		FinancingPercent:          3,
		CustomerPriceInclTax:      78000,
		GreenTechDeductionPercent: 48.5,
	}
}

// orFallback returns v unless it is unset (zero or negative).
func orFallback(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}
