package services

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"carbon-broker/internal/models"
)

// AdminService handles user management and data-correction utilities
type AdminService struct {
	db        *gorm.DB
	proposals *ProposalService
}

// NewAdminService creates a new AdminService
func NewAdminService(db *gorm.DB, proposals *ProposalService) *AdminService {
	return &AdminService{db: db, proposals: proposals}
}

// ListUsers returns all users
func (s *AdminService) ListUsers() ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SetRole changes a user's role
func (s *AdminService) SetRole(adminID, userID uint, role string) (*models.User, error) {
	switch role {
	case models.RoleAgent, models.RoleClient, models.RoleAdmin:
	default:
		return nil, fmt.Errorf("invalid role %q", role)
	}

	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&user).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	user.Role = role

	s.logAction(adminID, "set_role", fmt.Sprintf("user %d -> %s", userID, role))
	return &user, nil
}

// RecalculationReport summarizes a recalculation run
type RecalculationReport struct {
	Scanned      int      `json:"scanned"`
	Recalculated int      `json:"recalculated"`
	Skipped      int      `json:"skipped"`
	Errors       []string `json:"errors,omitempty"`
}

// RecalculateAllPercentages re-snapshots percentages and annual figures for
// every non-terminal proposal. This is the correction utility that repairs
// the accepted read/write race between portfolio aggregation and concurrent
// proposal creation.
func (s *AdminService) RecalculateAllPercentages(adminID uint) (*RecalculationReport, error) {
	var proposals []models.Proposal
	if err := s.db.Where("status IN ?", []string{models.ProposalStatusDraft, models.ProposalStatusPending}).
		Find(&proposals).Error; err != nil {
		return nil, fmt.Errorf("failed to load proposals: %w", err)
	}

	report := &RecalculationReport{Scanned: len(proposals)}
	for i := range proposals {
		if err := s.proposals.Recalculate(&proposals[i]); err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, err.Error())
			log.Printf("Warning: recalculation skipped proposal %s: %v", proposals[i].PublicID, err)
			continue
		}
		report.Recalculated++
	}

	s.logAction(adminID, "recalculate_percentages",
		fmt.Sprintf("scanned=%d recalculated=%d skipped=%d", report.Scanned, report.Recalculated, report.Skipped))
	return report, nil
}

// GetLogs returns the most recent admin log entries
func (s *AdminService) GetLogs(limit int) ([]models.AdminLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var logs []models.AdminLog
	if err := s.db.Preload("Admin").Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// logAction records an admin action, logging on failure rather than aborting
// the action itself.
func (s *AdminService) logAction(adminID uint, action, detail string) {
	entry := models.AdminLog{AdminID: adminID, Action: action, Detail: detail}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("Warning: failed to write admin log (%s): %v", action, err)
	}
}
