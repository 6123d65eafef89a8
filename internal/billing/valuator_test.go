package billing

import (
	"testing"
	"time"
)

func TestValueLeadCombinedInterest(t *testing.T) {
	org := Organization{ID: 1, PricePerSolarDeal: 500, PricePerBatteryDeal: 300}
	lead := Lead{
		ID:              10,
		InterestType:    InterestSolarBattery,
		DateSent:        date(2024, time.March, 3),
		OrganizationIDs: []int64{1},
	}

	value := ValueLead(lead, org)
	if value.GrossAmount != 800 {
		t.Fatalf("expected summed price 800, got %v", value.GrossAmount)
	}
	if value.IsCredited || value.Excluded {
		t.Fatalf("unexpected credit/exclusion flags: %+v", value)
	}
}

func TestValueLeadCreditStatuses(t *testing.T) {
	org := Organization{ID: 2, PricePerSolarDeal: 500}
	lead := Lead{ID: 11, InterestType: InterestSolar, DateSent: date(2024, time.March, 3)}

	for _, status := range []CreditStatus{CreditPending, CreditDenied} {
		lead.Credits = []CreditRequest{{LeadID: 11, OrganizationID: 2, Status: status}}
		if ValueLead(lead, org).IsCredited {
			t.Fatalf("%s credit must not affect billing", status)
		}
	}

	lead.Credits = []CreditRequest{{LeadID: 11, OrganizationID: 2, Status: CreditApproved}}
	if !ValueLead(lead, org).IsCredited {
		t.Fatal("approved credit must mark the lead credited")
	}

	// A credit approved for another organization is irrelevant here.
	lead.Credits = []CreditRequest{{LeadID: 11, OrganizationID: 99, Status: CreditApproved}}
	if ValueLead(lead, org).IsCredited {
		t.Fatal("credit for a different organization leaked into billing")
	}
}

func TestValueLeadSalesConsultantExclusion(t *testing.T) {
	org := Organization{
		ID:                      3,
		PricePerSolarDeal:       500,
		PricePerBatteryDeal:     300,
		IsSalesConsultant:       true,
		SalesConsultantLeadType: InterestSolar,
	}

	excluded := ValueLead(Lead{InterestType: InterestSolar, DateSent: date(2024, time.March, 3)}, org)
	if !excluded.Excluded {
		t.Fatal("matching consultant lead type must be excluded")
	}
	if excluded.GrossAmount != 0 {
		t.Fatalf("excluded pair must contribute zero, got %v", excluded.GrossAmount)
	}

	billed := ValueLead(Lead{InterestType: InterestBattery, DateSent: date(2024, time.March, 3)}, org)
	if billed.Excluded || billed.GrossAmount != 300 {
		t.Fatalf("non-matching lead type must bill normally: %+v", billed)
	}
}

func TestValueLeadConsultantWithoutLeadTypeNeverExcludes(t *testing.T) {
	org := Organization{ID: 4, PricePerSolarDeal: 500, IsSalesConsultant: true}
	value := ValueLead(Lead{InterestType: InterestSolar, DateSent: date(2024, time.March, 3)}, org)
	if value.Excluded {
		t.Fatal("consultant with unset lead type must not exclude")
	}
	if value.GrossAmount != 500 {
		t.Fatalf("expected 500, got %v", value.GrossAmount)
	}
}
