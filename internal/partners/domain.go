package partners

import (
	"errors"
	"time"

	"github.com/voltlead/voltlead/internal/billing"
)

// Organization is the admin-side view of a partner, including quota and
// bookkeeping fields the billing core does not care about.
type Organization struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Archived bool   `json:"archived"`

	PricePerSolarDeal   float64 `json:"price_per_solar_deal"`
	PricePerBatteryDeal float64 `json:"price_per_battery_deal"`
	PricePerSiteVisit   float64 `json:"price_per_site_visit"`

	BillingModel                billing.BillingModel `json:"billing_model"`
	CompanyMarkupSharePercent   float64              `json:"company_markup_share_percent"`
	BaseCostForBilling          float64              `json:"base_cost_for_billing"`
	EurToSekRate                float64              `json:"eur_to_sek_rate"`
	LfFinansPercent             float64              `json:"lf_finans_percent"`
	DefaultCustomerPriceInclTax float64              `json:"default_customer_price_incl_tax"`

	IsSalesConsultant       bool                 `json:"is_sales_consultant"`
	SalesConsultantLeadType billing.InterestType `json:"sales_consultant_lead_type,omitempty"`

	MonthlyQuota int       `json:"monthly_quota"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OrganizationInput carries the writable organization fields.
type OrganizationInput struct {
	Name                        string
	PricePerSolarDeal           float64
	PricePerBatteryDeal         float64
	PricePerSiteVisit           float64
	BillingModel                billing.BillingModel
	CompanyMarkupSharePercent   float64
	BaseCostForBilling          float64
	EurToSekRate                float64
	LfFinansPercent             float64
	DefaultCustomerPriceInclTax float64
	IsSalesConsultant           bool
	SalesConsultantLeadType     billing.InterestType
	MonthlyQuota                int
}

// QuotaReport pairs an organization with its realized lead volume.
type QuotaReport struct {
	OrganizationID   int64               `json:"organization_id"`
	OrganizationName string              `json:"organization_name"`
	MonthlyQuota     int                 `json:"monthly_quota"`
	LeadCount        int                 `json:"lead_count"`
	Status           billing.QuotaStatus `json:"status"`
}

// Service layer errors.
var (
	ErrNotFound           = errors.New("partners: not found")
	ErrDuplicate          = errors.New("partners: duplicate")
	ErrInvalidModel       = errors.New("partners: invalid billing model")
	ErrHistoryOverlap     = errors.New("partners: price history intervals overlap")
	ErrHistoryUnsorted    = errors.New("partners: price history must be ordered by effective_from")
	ErrOpenEndedNotLast   = errors.New("partners: only the last price record may be open-ended")
	ErrConsultantLeadType = errors.New("partners: sales consultant requires a lead type")
)

// ValidateHistory checks the invariant that effective intervals never
// overlap and that the open-ended record, if any, comes last. Records
// must arrive ordered by EffectiveFrom.
func ValidateHistory(records []billing.PriceHistoryRecord) error {
	for i := range records {
		if i == 0 {
			continue
		}
		prev, cur := records[i-1], records[i]
		if cur.EffectiveFrom.Before(prev.EffectiveFrom) {
			return ErrHistoryUnsorted
		}
		if prev.EffectiveUntil == nil {
			return ErrOpenEndedNotLast
		}
		if cur.EffectiveFrom.Before(*prev.EffectiveUntil) {
			return ErrHistoryOverlap
		}
	}
	for _, rec := range records {
		if rec.EffectiveUntil != nil && !rec.EffectiveFrom.Before(*rec.EffectiveUntil) {
			return ErrHistoryOverlap
		}
	}
	return nil
}
