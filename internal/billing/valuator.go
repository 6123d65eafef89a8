package billing

// LeadValue is the billable contribution of one lead toward one
// organization.
type LeadValue struct {
	GrossAmount float64
	IsCredited  bool
	// Excluded marks sales-consultant pairs: the platform sells this
	// lead type itself, so the organization contributes nothing at all
	// (not merely credited).
	Excluded bool
}

// ValueLead computes the gross billable amount of a lead toward one
// assigned organization. The sales-consultant exclusion is applied here,
// at the valuator level, so per-lead revenue views and invoice
// aggregates follow a single rule. An organization whose consultant lead
// type is unset never triggers the exclusion.
func ValueLead(lead Lead, org Organization) LeadValue {
	if org.IsSalesConsultant && org.SalesConsultantLeadType != "" && org.SalesConsultantLeadType == lead.InterestType {
		return LeadValue{Excluded: true}
	}

	return LeadValue{
		GrossAmount: ResolvePrice(org, lead.InterestType, lead.DateSent),
		IsCredited:  lead.HasApprovedCredit(org.ID),
	}
}

// HasApprovedCredit reports whether an approved credit request exists
// for the given organization. Pending and denied requests never affect
// billing.
func (l Lead) HasApprovedCredit(orgID int64) bool {
	for _, cr := range l.Credits {
		if cr.OrganizationID == orgID && cr.Status == CreditApproved {
			return true
		}
	}
	return false
}
