package leads

import (
	"errors"
	"time"

	"github.com/voltlead/voltlead/internal/billing"
)

// LeadStatus enumerates lifecycle states of a lead record.
type LeadStatus string

const (
	StatusNew      LeadStatus = "new"
	StatusAssigned LeadStatus = "assigned"
	StatusArchived LeadStatus = "archived"
)

// Lead is a contact captured by an opener. Once billed it stays
// immutable except for credit status changes.
type Lead struct {
	ID           int64                `json:"id"`
	Name         string               `json:"name"`
	Email        string               `json:"email"`
	Phone        string               `json:"phone"`
	Address      string               `json:"address"`
	InterestType billing.InterestType `json:"interest_type"`
	OpenerID     int64                `json:"opener_id"`
	DateSent     time.Time            `json:"date_sent"`
	Status       LeadStatus           `json:"status"`
	Assignments  []Assignment         `json:"assignments,omitempty"`
	Credits      []CreditRequest      `json:"credits,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Assignment links a lead to a partner organization.
type Assignment struct {
	LeadID           int64     `json:"lead_id"`
	OrganizationID   int64     `json:"organization_id"`
	OrganizationName string    `json:"organization_name,omitempty"`
	AssignedAt       time.Time `json:"assigned_at"`
}

// CreditRequest is a refund claim against a billed lead, resolved by an
// admin.
type CreditRequest struct {
	ID             int64                `json:"id"`
	LeadID         int64                `json:"lead_id"`
	OrganizationID int64                `json:"organization_id"`
	Reason         string               `json:"reason"`
	Status         billing.CreditStatus `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
	ResolvedAt     *time.Time           `json:"resolved_at,omitempty"`
}

// CreateLeadInput carries the fields accepted on lead creation.
type CreateLeadInput struct {
	Name            string
	Email           string
	Phone           string
	Address         string
	InterestType    billing.InterestType
	OpenerID        int64
	DateSent        time.Time
	OrganizationIDs []int64
}

// ListFilter narrows lead listings.
type ListFilter struct {
	Month           *time.Time
	OrganizationID  int64
	InterestType    billing.InterestType
	IncludeArchived bool
	Limit           int
}

// Errors returned by the service layer.
var (
	ErrNotFound        = errors.New("leads: not found")
	ErrDuplicate       = errors.New("leads: duplicate")
	ErrInvalidInterest = errors.New("leads: invalid interest type")
	ErrArchived        = errors.New("leads: lead is archived")
	ErrCreditResolved  = errors.New("leads: credit request already resolved")
)

// ValidInterest reports whether t is a known interest type.
func ValidInterest(t billing.InterestType) bool {
	switch t {
	case billing.InterestSolar, billing.InterestBattery, billing.InterestSolarBattery:
		return true
	}
	return false
}
