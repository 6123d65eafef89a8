package billing

import (
	"sort"
	"time"
)

// Period is a half-open time interval [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether ts falls inside the period.
func (p Period) Contains(ts time.Time) bool {
	return !ts.Before(p.Start) && ts.Before(p.End)
}

// MonthPeriod returns the calendar month containing ts.
func MonthPeriod(ts time.Time) Period {
	start := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, ts.Location())
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

// InvoicePeriod returns the leads period invoiced in the given billing
// month: the calendar month immediately preceding it. Invoices issued in
// April cover March's leads.
func InvoicePeriod(billingMonth time.Time) Period {
	return MonthPeriod(billingMonth.AddDate(0, -1, 0))
}

// LineStatus labels a per-lead invoice line.
type LineStatus string

const (
	LineBilled   LineStatus = "billed"
	LineCredited LineStatus = "credited"
	LineExcluded LineStatus = "excluded"
)

// OrgTotals accumulates one organization's invoice figures for a period.
type OrgTotals struct {
	OrganizationID   int64
	OrganizationName string
	LeadCount        int
	GrossValue       float64
	CreditedCount    int
	CreditedValue    float64
}

// LineItem is one (lead, organization) pair flattened for export and
// on-screen line views.
type LineItem struct {
	LeadID           int64
	LeadName         string
	OrganizationID   int64
	OrganizationName string
	InterestType     InterestType
	DateSent         time.Time
	Amount           float64
	Status           LineStatus
}

// Aggregation is the invoicing output consumed by the partner invoice
// table, the export surface and the invoicing snapshot job.
type Aggregation struct {
	Period          Period
	PerOrganization map[int64]*OrgTotals
	Lines           []LineItem
	TotalValue      float64
	TotalCredited   float64
}

// Aggregate folds leads over a billing period into per-organization and
// grand totals, net of approved credits. Both the by-organization view
// and the flattened per-lead view come from the same pass. A combined
// solar_battery lead counts once toward LeadCount but contributes the
// summed price. Credited pairs move to the credited buckets; excluded
// sales-consultant pairs contribute nothing to any total but stay
// visible as zero-amount lines.
func Aggregate(leads []Lead, orgs map[int64]Organization, period Period) Aggregation {
	agg := Aggregation{
		Period:          period,
		PerOrganization: make(map[int64]*OrgTotals),
	}

	for _, lead := range leads {
		if !period.Contains(lead.DateSent) {
			continue
		}
		for _, orgID := range lead.OrganizationIDs {
			org, ok := orgs[orgID]
			if !ok {
				continue
			}
			value := ValueLead(lead, org)

			totals := agg.PerOrganization[orgID]
			if totals == nil {
				totals = &OrgTotals{OrganizationID: orgID, OrganizationName: org.Name}
				agg.PerOrganization[orgID] = totals
			}

			line := LineItem{
				LeadID:           lead.ID,
				LeadName:         lead.Name,
				OrganizationID:   orgID,
				OrganizationName: org.Name,
				InterestType:     lead.InterestType,
				DateSent:         lead.DateSent,
			}

			switch {
			case value.Excluded:
				line.Status = LineExcluded
			case value.IsCredited:
				line.Status = LineCredited
				line.Amount = value.GrossAmount
				totals.CreditedCount++
				totals.CreditedValue += value.GrossAmount
				agg.TotalCredited += value.GrossAmount
			default:
				line.Status = LineBilled
				line.Amount = value.GrossAmount
				totals.LeadCount++
				totals.GrossValue += value.GrossAmount
				agg.TotalValue += value.GrossAmount
			}
			agg.Lines = append(agg.Lines, line)
		}
	}

	sort.Slice(agg.Lines, func(i, j int) bool {
		if !agg.Lines[i].DateSent.Equal(agg.Lines[j].DateSent) {
			return agg.Lines[i].DateSent.Before(agg.Lines[j].DateSent)
		}
		if agg.Lines[i].LeadID != agg.Lines[j].LeadID {
			return agg.Lines[i].LeadID < agg.Lines[j].LeadID
		}
		return agg.Lines[i].OrganizationID < agg.Lines[j].OrganizationID
	})

	return agg
}

// OrganizationsSorted returns the per-organization totals ordered by
// descending gross value, name as tie-breaker.
func (a Aggregation) OrganizationsSorted() []OrgTotals {
	rows := make([]OrgTotals, 0, len(a.PerOrganization))
	for _, totals := range a.PerOrganization {
		rows = append(rows, *totals)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].GrossValue != rows[j].GrossValue {
			return rows[i].GrossValue > rows[j].GrossValue
		}
		return rows[i].OrganizationName < rows[j].OrganizationName
	})
	return rows
}
