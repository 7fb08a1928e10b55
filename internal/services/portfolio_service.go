package services

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"carbon-broker/internal/models"
)

// Portfolio is the aggregate installed capacity across one owner's
// non-rejected, non-archived proposals. It is derived on demand, never
// persisted.
type Portfolio struct {
	TotalKWp float64 `json:"total_kwp"`
	Count    int     `json:"count"`
}

// PortfolioService aggregates proposal sizes per client or per agent
type PortfolioService struct {
	db *gorm.DB
}

// NewPortfolioService creates a new PortfolioService
func NewPortfolioService(db *gorm.DB) *PortfolioService {
	return &PortfolioService{db: db}
}

// ForClient returns the portfolio for one client profile
func (s *PortfolioService) ForClient(clientProfileID uint) (Portfolio, error) {
	return s.aggregate("client_profile_id = ?", clientProfileID)
}

// ForAgent returns the portfolio for one agent across all their clients
func (s *PortfolioService) ForAgent(agentID uint) (Portfolio, error) {
	return s.aggregate("agent_id = ?", agentID)
}

// aggregate sums the sizes of all matching proposals, excluding rejected and
// archived ones. Rows whose size cannot be determined are skipped and logged;
// a storage failure returns a zero portfolio with an error, and callers must
// treat that as "unknown" rather than a real empty book.
func (s *PortfolioService) aggregate(query string, arg interface{}) (Portfolio, error) {
	var proposals []models.Proposal
	err := s.db.Where(query, arg).
		Where("status != ?", models.ProposalStatusRejected).
		Where("archived_at IS NULL").
		Find(&proposals).Error
	if err != nil {
		return Portfolio{}, fmt.Errorf("failed to load proposals for portfolio: %w", err)
	}

	var portfolio Portfolio
	for _, p := range proposals {
		size, ok := ProposalSizeKWp(&p)
		if !ok {
			log.Printf("Warning: skipping proposal %s in portfolio: unparsable size %q", p.PublicID, p.SizeText)
			continue
		}
		portfolio.TotalKWp += size
		portfolio.Count++
	}

	return portfolio, nil
}

// ProposalSizeKWp resolves a proposal's system size in kWp, preferring the
// normalized numeric field and falling back to the free-text one.
func ProposalSizeKWp(p *models.Proposal) (float64, bool) {
	if p.SizeKWp != nil {
		return *p.SizeKWp, true
	}
	return ParseSizeKWp(p.SizeText)
}

// ParseSizeKWp parses a free-text system size such as "4200", "4200 kWp" or
// "4.2 MWp" into kWp. MWp values are converted at 1 MWp = 1000 kWp.
func ParseSizeKWp(text string) (float64, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, false
	}

	factor := 1.0
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasSuffix(lower, "mwp"):
		factor = 1000
		trimmed = trimmed[:len(trimmed)-3]
	case strings.HasSuffix(lower, "kwp"):
		trimmed = trimmed[:len(trimmed)-3]
	case strings.HasSuffix(lower, "mw"):
		factor = 1000
		trimmed = trimmed[:len(trimmed)-2]
	case strings.HasSuffix(lower, "kw"):
		trimmed = trimmed[:len(trimmed)-2]
	}

	trimmed = strings.TrimSpace(strings.ReplaceAll(trimmed, ",", ""))
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || value < 0 {
		return 0, false
	}

	return value * factor, true
}
