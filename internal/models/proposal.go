package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Proposal lifecycle statuses
const (
	ProposalStatusDraft    = "draft"
	ProposalStatusPending  = "pending"
	ProposalStatusApproved = "approved"
	ProposalStatusSigned   = "signed"
	ProposalStatusRejected = "rejected"
	ProposalStatusArchived = "archived"
)

// Proposal represents one solar installation proposal created by an agent for
// a client. Percentages and annual figures are snapshotted at creation /
// recalculation time, not recomputed on every read.
type Proposal struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	PublicID        string         `gorm:"uniqueIndex;size:36;not null" json:"public_id"`
	AgentID         uint           `gorm:"not null;index" json:"agent_id"`
	Agent           *User          `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	ClientProfileID uint           `gorm:"not null;index" json:"client_profile_id"`
	ClientProfile   *ClientProfile `gorm:"foreignKey:ClientProfileID" json:"client_profile,omitempty"`
	SiteName        string         `gorm:"size:200" json:"site_name"`

	// SizeKWp is the normalized numeric system size. SizeText keeps the raw
	// free-text input (may carry a unit suffix such as "4.2 MWp") and is used
	// as a parsing fallback when SizeKWp is absent.
	SizeKWp  *float64 `gorm:"column:size_kwp" json:"size_kwp,omitempty"`
	SizeText string   `gorm:"size:50" json:"size_text,omitempty"`

	CommissioningDate *time.Time `json:"commissioning_date,omitempty"`

	Status     string     `gorm:"size:20;not null;default:draft;index" json:"status"`
	ArchivedAt *time.Time `gorm:"index" json:"archived_at,omitempty"`

	// Percentage snapshots from the tier table, taken against the portfolio
	// in effect at calculation time.
	ClientSharePercent decimal.Decimal `gorm:"column:client_share_percent;type:decimal(5,2);not null" json:"client_share_percent"`
	AgentCommissionPct decimal.Decimal `gorm:"column:agent_commission_percent;type:decimal(5,2);not null" json:"agent_commission_percent"`

	// Cached converter outputs for a full year.
	AnnualEnergyKWh     float64 `gorm:"column:annual_energy_kwh" json:"annual_energy_kwh"`
	AnnualCarbonCredits float64 `gorm:"column:annual_carbon_credits" json:"annual_carbon_credits"`

	// Invitation sub-record.
	InvitationToken     string     `gorm:"index;size:64" json:"-"`
	InvitationSentAt    *time.Time `json:"invitation_sent_at,omitempty"`
	InvitationViewedAt  *time.Time `json:"invitation_viewed_at,omitempty"`
	InvitationExpiresAt *time.Time `json:"invitation_expires_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Proposal model
func (Proposal) TableName() string {
	return "proposals"
}

// IsArchived reports whether the proposal has been archived
func (p *Proposal) IsArchived() bool {
	return p.ArchivedAt != nil || p.Status == ProposalStatusArchived
}

// IsTerminal reports whether the proposal is in a terminal lifecycle state
func (p *Proposal) IsTerminal() bool {
	switch p.Status {
	case ProposalStatusApproved, ProposalStatusSigned, ProposalStatusRejected, ProposalStatusArchived:
		return true
	}
	return false
}

// InvitationValid reports whether the invitation token can still be used at
// the given instant. Requires a token, an expiry in the future and a
// non-archived proposal.
func (p *Proposal) InvitationValid(now time.Time) bool {
	if p.InvitationToken == "" || p.InvitationExpiresAt == nil {
		return false
	}
	if !now.Before(*p.InvitationExpiresAt) {
		return false
	}
	return !p.IsArchived()
}
