package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"carbon-broker/internal/models"
	"carbon-broker/internal/pricing"
)

// ProposalInput is the agent-supplied data for a new proposal
type ProposalInput struct {
	ClientName        string     `json:"client_name" binding:"required"`
	ClientEmail       string     `json:"client_email" binding:"required,email"`
	SiteName          string     `json:"site_name"`
	Size              string     `json:"size" binding:"required"`
	CommissioningDate *time.Time `json:"commissioning_date"`
}

// ProposalService handles proposal creation and lifecycle transitions
type ProposalService struct {
	db         *gorm.DB
	portfolios *PortfolioService
	prices     *CarbonPriceService
	converter  *pricing.Converter
	maxSizeKWp float64
	mu         sync.Mutex
}

// NewProposalService creates a new ProposalService
func NewProposalService(db *gorm.DB, portfolios *PortfolioService, prices *CarbonPriceService, converter *pricing.Converter, maxSizeKWp float64) *ProposalService {
	return &ProposalService{
		db:         db,
		portfolios: portfolios,
		prices:     prices,
		converter:  converter,
		maxSizeKWp: maxSizeKWp,
	}
}

// Create validates the input, finds or creates the client profile, snapshots
// both tier percentages against the portfolios including the new system, and
// stores the proposal in draft.
func (s *ProposalService) Create(agentID uint, input ProposalInput) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sizeKWp, ok := ParseSizeKWp(input.Size)
	if !ok {
		return nil, fmt.Errorf("unparsable system size %q", input.Size)
	}
	if sizeKWp <= 0 {
		return nil, fmt.Errorf("system size must be positive")
	}
	if s.maxSizeKWp > 0 && sizeKWp > s.maxSizeKWp {
		return nil, fmt.Errorf("system size %.0f kWp exceeds the %.0f kWp installation cap", sizeKWp, s.maxSizeKWp)
	}

	client, err := s.findOrCreateClient(input.ClientName, input.ClientEmail)
	if err != nil {
		return nil, err
	}

	clientShare, agentCommission := s.snapshotPercentages(client.ID, agentID, sizeKWp)

	proposal := models.Proposal{
		PublicID:            uuid.NewString(),
		AgentID:             agentID,
		ClientProfileID:     client.ID,
		SiteName:            input.SiteName,
		SizeKWp:             &sizeKWp,
		SizeText:            input.Size,
		CommissioningDate:   input.CommissioningDate,
		Status:              models.ProposalStatusDraft,
		ClientSharePercent:  clientShare,
		AgentCommissionPct:  agentCommission,
		AnnualEnergyKWh:     s.converter.AnnualEnergyKWh(sizeKWp),
		AnnualCarbonCredits: s.converter.AnnualCarbonCredits(sizeKWp),
	}

	if err := s.db.Create(&proposal).Error; err != nil {
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}

	log.Printf("Proposal %s created: agent=%d client=%d size=%.1f kWp share=%s%% commission=%s%%",
		proposal.PublicID, agentID, client.ID, sizeKWp, clientShare, agentCommission)
	return &proposal, nil
}

// snapshotPercentages derives both percentages from the current portfolios
// plus the system being priced. A failed aggregation degrades to the base
// tier; the book is treated as unknown, never overstated.
func (s *ProposalService) snapshotPercentages(clientProfileID, agentID uint, newSizeKWp float64) (clientShare, agentCommission decimal.Decimal) {
	clientPortfolio, err := s.portfolios.ForClient(clientProfileID)
	if err != nil {
		log.Printf("Warning: client portfolio unavailable for profile %d, using base tier: %v", clientProfileID, err)
		clientPortfolio = Portfolio{}
	}

	agentPortfolio, err := s.portfolios.ForAgent(agentID)
	if err != nil {
		log.Printf("Warning: agent portfolio unavailable for agent %d, using base tier: %v", agentID, err)
		agentPortfolio = Portfolio{}
	}

	clientShare = pricing.ClientSharePercent(clientPortfolio.TotalKWp + newSizeKWp)
	agentCommission = pricing.AgentCommissionPercent(agentPortfolio.TotalKWp + newSizeKWp)
	return clientShare, agentCommission
}

// findOrCreateClient resolves a client profile by email, creating a
// lightweight record when the client has not registered yet.
func (s *ProposalService) findOrCreateClient(name, email string) (*models.ClientProfile, error) {
	var client models.ClientProfile
	result := s.db.Where("email = ?", email).First(&client)

	if result.Error == gorm.ErrRecordNotFound {
		client = models.ClientProfile{Name: name, Email: email}

		// Link to an existing registered user when one matches
		var user models.User
		if err := s.db.Where("email = ?", email).First(&user).Error; err == nil {
			client.UserID = &user.ID
		}

		if err := s.db.Create(&client).Error; err != nil {
			return nil, fmt.Errorf("failed to create client profile: %w", err)
		}
		log.Printf("Client profile created: %s (ID: %d)", email, client.ID)
	} else if result.Error != nil {
		return nil, fmt.Errorf("database error: %w", result.Error)
	}

	return &client, nil
}

// GetByPublicID loads a proposal with its client profile
func (s *ProposalService) GetByPublicID(publicID string) (*models.Proposal, error) {
	var proposal models.Proposal
	if err := s.db.Where("public_id = ?", publicID).Preload("ClientProfile").First(&proposal).Error; err != nil {
		return nil, err
	}
	return &proposal, nil
}

// ListForAgent returns all proposals owned by one agent
func (s *ProposalService) ListForAgent(agentID uint) ([]models.Proposal, error) {
	var proposals []models.Proposal
	if err := s.db.Where("agent_id = ?", agentID).Preload("ClientProfile").
		Order("created_at DESC").Find(&proposals).Error; err != nil {
		return nil, err
	}
	return proposals, nil
}

// ListForClientEmail returns all proposals addressed to one client email
func (s *ProposalService) ListForClientEmail(email string) ([]models.Proposal, error) {
	var proposals []models.Proposal
	if err := s.db.Joins("JOIN client_profiles ON client_profiles.id = proposals.client_profile_id").
		Where("client_profiles.email = ?", email).
		Preload("ClientProfile").
		Order("proposals.created_at DESC").Find(&proposals).Error; err != nil {
		return nil, err
	}
	return proposals, nil
}

// Submit moves a draft proposal to pending. Only the assigned agent may
// submit.
func (s *ProposalService) Submit(publicID string, agentID uint) (*models.Proposal, error) {
	proposal, err := s.GetByPublicID(publicID)
	if err != nil {
		return nil, err
	}

	if proposal.AgentID != agentID {
		return nil, fmt.Errorf("only the assigned agent may submit this proposal")
	}
	if proposal.Status != models.ProposalStatusDraft {
		return nil, fmt.Errorf("proposal is %s, only drafts can be submitted", proposal.Status)
	}

	if err := s.db.Model(proposal).Update("status", models.ProposalStatusPending).Error; err != nil {
		return nil, fmt.Errorf("failed to submit proposal: %w", err)
	}
	proposal.Status = models.ProposalStatusPending

	log.Printf("Proposal %s submitted by agent %d", publicID, agentID)
	return proposal, nil
}

// Decide records the client's (or an admin's) approval or rejection of a
// pending proposal.
func (s *ProposalService) Decide(publicID string, actorEmail, actorRole string, approve bool) (*models.Proposal, error) {
	proposal, err := s.GetByPublicID(publicID)
	if err != nil {
		return nil, err
	}

	if actorRole != models.RoleAdmin {
		if proposal.ClientProfile == nil || proposal.ClientProfile.Email != actorEmail {
			return nil, fmt.Errorf("only the client may decide this proposal")
		}
	}
	if proposal.Status != models.ProposalStatusPending {
		return nil, fmt.Errorf("proposal is %s, only pending proposals can be decided", proposal.Status)
	}

	status := models.ProposalStatusRejected
	if approve {
		status = models.ProposalStatusApproved
	}

	if err := s.db.Model(proposal).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update proposal: %w", err)
	}
	proposal.Status = status

	log.Printf("Proposal %s %s by %s", publicID, status, actorEmail)
	return proposal, nil
}

// MarkSigned moves an approved proposal to signed. Same actor rules as
// Decide: the client named on the proposal, or an admin.
func (s *ProposalService) MarkSigned(publicID string, actorEmail, actorRole string) (*models.Proposal, error) {
	proposal, err := s.GetByPublicID(publicID)
	if err != nil {
		return nil, err
	}

	if actorRole != models.RoleAdmin {
		if proposal.ClientProfile == nil || proposal.ClientProfile.Email != actorEmail {
			return nil, fmt.Errorf("only the client may sign this proposal")
		}
	}
	if proposal.Status != models.ProposalStatusApproved {
		return nil, fmt.Errorf("proposal is %s, only approved proposals can be signed", proposal.Status)
	}

	if err := s.db.Model(proposal).Update("status", models.ProposalStatusSigned).Error; err != nil {
		return nil, fmt.Errorf("failed to update proposal: %w", err)
	}
	proposal.Status = models.ProposalStatusSigned
	return proposal, nil
}

// Archive marks a proposal archived. Allowed for the assigned agent and for
// admins; archived proposals drop out of every portfolio.
func (s *ProposalService) Archive(publicID string, actorID uint, actorRole string) (*models.Proposal, error) {
	proposal, err := s.GetByPublicID(publicID)
	if err != nil {
		return nil, err
	}

	if actorRole != models.RoleAdmin && proposal.AgentID != actorID {
		return nil, fmt.Errorf("only the assigned agent or an admin may archive this proposal")
	}
	if proposal.IsArchived() {
		return proposal, nil
	}

	now := time.Now()
	if err := s.db.Model(proposal).Updates(map[string]interface{}{
		"status":      models.ProposalStatusArchived,
		"archived_at": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to archive proposal: %w", err)
	}
	proposal.Status = models.ProposalStatusArchived
	proposal.ArchivedAt = &now

	log.Printf("Proposal %s archived by user %d", publicID, actorID)
	return proposal, nil
}

// RevenuePreview holds the per-year revenue tables for both parties
type RevenuePreview struct {
	ClientRevenue   pricing.RevenueTable `json:"client_revenue"`
	AgentCommission pricing.RevenueTable `json:"agent_commission"`
}

// RevenuePreview builds both revenue tables for a proposal from the current
// carbon price table and the proposal's snapshotted percentages.
func (s *ProposalService) RevenuePreview(proposal *models.Proposal) (*RevenuePreview, error) {
	size, ok := ProposalSizeKWp(proposal)
	if !ok {
		return nil, fmt.Errorf("proposal %s has no usable system size", proposal.PublicID)
	}

	prices, err := s.prices.PriceTable()
	if err != nil {
		return nil, err
	}

	return &RevenuePreview{
		ClientRevenue:   pricing.BuildRevenueTable(s.converter, size, proposal.CommissioningDate, prices, proposal.ClientSharePercent),
		AgentCommission: pricing.BuildRevenueTable(s.converter, size, proposal.CommissioningDate, prices, proposal.AgentCommissionPct),
	}, nil
}

// Recalculate re-snapshots the percentages and annual figures of one
// proposal from the current portfolios. Used by the admin correction
// utility; terminal proposals keep their issued numbers.
func (s *ProposalService) Recalculate(proposal *models.Proposal) error {
	if proposal.IsTerminal() {
		return fmt.Errorf("proposal %s is %s and keeps its issued figures", proposal.PublicID, proposal.Status)
	}

	size, ok := ProposalSizeKWp(proposal)
	if !ok {
		return fmt.Errorf("proposal %s has no usable system size", proposal.PublicID)
	}

	// The portfolio already contains this proposal, so no extra size is added.
	clientShare, agentCommission := s.snapshotPercentages(proposal.ClientProfileID, proposal.AgentID, 0)

	updates := map[string]interface{}{
		"client_share_percent":     clientShare,
		"agent_commission_percent": agentCommission,
		"annual_energy_kwh":        s.converter.AnnualEnergyKWh(size),
		"annual_carbon_credits":    s.converter.AnnualCarbonCredits(size),
	}
	if err := s.db.Model(proposal).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to recalculate proposal %s: %w", proposal.PublicID, err)
	}

	proposal.ClientSharePercent = clientShare
	proposal.AgentCommissionPct = agentCommission
	proposal.AnnualEnergyKWh = s.converter.AnnualEnergyKWh(size)
	proposal.AnnualCarbonCredits = s.converter.AnnualCarbonCredits(size)
	return nil
}
