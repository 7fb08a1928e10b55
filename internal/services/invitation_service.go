package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"time"

	"github.com/mr-tron/base58"
	"gorm.io/gorm"

	"carbon-broker/internal/models"
	"carbon-broker/internal/rpc"
)

// ValidationResult is the outcome of validating an invitation token. A false
// Valid with a Reason is a normal negative result, not a failure.
type ValidationResult struct {
	Valid       bool   `json:"valid"`
	ProposalID  string `json:"proposal_id,omitempty"`
	ClientEmail string `json:"client_email,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// InvitationService issues and validates proposal invitation tokens
type InvitationService struct {
	db  *gorm.DB
	rpc *rpc.Client
	ttl time.Duration
}

// NewInvitationService creates a new InvitationService. rpcClient may be nil
// when no serverless endpoint is configured; the fallback path and email
// delivery are then skipped.
func NewInvitationService(db *gorm.DB, rpcClient *rpc.Client, ttl time.Duration) *InvitationService {
	return &InvitationService{db: db, rpc: rpcClient, ttl: ttl}
}

// Issue generates a fresh invitation token for a proposal, replacing any
// previous one, and asks the serverless mailer to deliver it. Mail delivery
// is best-effort; a failure is logged and the invitation stays usable via
// the proposal link.
func (s *InvitationService) Issue(proposal *models.Proposal) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	expires := now.Add(s.ttl)
	if err := s.db.Model(proposal).Updates(map[string]interface{}{
		"invitation_token":      token,
		"invitation_sent_at":    now,
		"invitation_viewed_at":  nil,
		"invitation_expires_at": expires,
	}).Error; err != nil {
		return "", fmt.Errorf("failed to store invitation token: %w", err)
	}
	proposal.InvitationToken = token
	proposal.InvitationSentAt = &now
	proposal.InvitationViewedAt = nil
	proposal.InvitationExpiresAt = &expires

	if s.rpc != nil && proposal.ClientProfile != nil {
		go func(publicID, email, token string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.rpc.SendInvitation(ctx, publicID, email, token); err != nil {
				log.Printf("Warning: failed to send invitation email for proposal %s: %v", publicID, err)
			}
		}(proposal.PublicID, proposal.ClientProfile.Email, token)
	}

	log.Printf("Invitation issued for proposal %s, expires %s", proposal.PublicID, expires.Format(time.RFC3339))
	return token, nil
}

// generateToken returns an opaque URL-safe token
func generateToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base58.Encode(b), nil
}

// Validate resolves an invitation token to a proposal and client email.
// The direct database check is preferred; the serverless fallback runs
// exactly once and only when the direct check itself fails to execute.
// A token that is simply unknown, expired or archived is a clean negative
// result and never triggers the fallback.
func (s *InvitationService) Validate(ctx context.Context, token, userEmail string) (*ValidationResult, error) {
	if token == "" {
		return &ValidationResult{Valid: false, Reason: "missing token"}, nil
	}

	result, err := s.validateDirect(token)
	if err == nil {
		return result, nil
	}

	log.Printf("Warning: direct invitation validation failed, trying fallback: %v", err)

	if s.rpc == nil {
		return nil, fmt.Errorf("invitation validation unavailable: %w", err)
	}

	remote, rpcErr := s.rpc.ValidateInvitation(ctx, token, userEmail)
	if rpcErr != nil {
		return nil, fmt.Errorf("invitation validation unavailable: %w", rpcErr)
	}

	return &ValidationResult{
		Valid:       remote.Valid,
		ProposalID:  remote.ProposalID,
		ClientEmail: remote.ClientEmail,
		Reason:      remote.Reason,
	}, nil
}

// validateDirect checks the token against storage. Returns an error only
// when the lookup itself cannot execute.
func (s *InvitationService) validateDirect(token string) (*ValidationResult, error) {
	var proposal models.Proposal
	result := s.db.Where("invitation_token = ?", token).Preload("ClientProfile").First(&proposal)

	if result.Error == gorm.ErrRecordNotFound {
		return &ValidationResult{Valid: false, Reason: "unknown token"}, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("invitation lookup failed: %w", result.Error)
	}

	now := time.Now()
	if proposal.IsArchived() {
		return &ValidationResult{Valid: false, Reason: "proposal archived"}, nil
	}
	if proposal.InvitationExpiresAt == nil || !now.Before(*proposal.InvitationExpiresAt) {
		return &ValidationResult{Valid: false, Reason: "invitation expired"}, nil
	}

	clientEmail := ""
	if proposal.ClientProfile != nil {
		clientEmail = proposal.ClientProfile.Email
	}

	// Best-effort; a concurrent view racing this update is harmless.
	go s.markViewed(proposal.ID)

	return &ValidationResult{
		Valid:       true,
		ProposalID:  proposal.PublicID,
		ClientEmail: clientEmail,
	}, nil
}

// markViewed stamps the invitation viewed timestamp, ignoring failures
func (s *InvitationService) markViewed(proposalID uint) {
	now := time.Now()
	if err := s.db.Model(&models.Proposal{}).Where("id = ?", proposalID).
		Update("invitation_viewed_at", now).Error; err != nil {
		log.Printf("Warning: failed to mark invitation viewed for proposal %d: %v", proposalID, err)
	}
}
