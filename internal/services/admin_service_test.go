package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"carbon-broker/internal/models"
)

func TestSetRole(t *testing.T) {
	db := setupTestDB(t)
	service := NewAdminService(db, newProposalService(db))

	user := models.User{Email: "u@example.com", PasswordHash: "x", Role: models.RoleAgent}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	updated, err := service.SetRole(99, user.ID, models.RoleAdmin)
	if err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if updated.Role != models.RoleAdmin {
		t.Errorf("role = %s, want admin", updated.Role)
	}

	if _, err := service.SetRole(99, user.ID, "root"); err == nil {
		t.Error("expected error for invalid role")
	}

	logs, err := service.GetLogs(10)
	if err != nil {
		t.Fatalf("GetLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "set_role" {
		t.Errorf("expected one set_role log entry, got %+v", logs)
	}
}

func TestRecalculateAllPercentages(t *testing.T) {
	db := setupTestDB(t)
	proposals := newProposalService(db)
	service := NewAdminService(db, proposals)

	// Three drafts for one client: the first was priced against an empty
	// portfolio and holds the 63% snapshot.
	var first *models.Proposal
	for i, size := range []string{"2000", "2500", "1000"} {
		p, err := proposals.Create(1, ProposalInput{
			ClientName:  "C",
			ClientEmail: "c@example.com",
			Size:        size,
		})
		if err != nil {
			t.Fatalf("failed to create proposal: %v", err)
		}
		if i == 0 {
			first = p
		}
	}

	if !first.ClientSharePercent.Equal(decimal.NewFromFloat(63)) {
		t.Fatalf("first snapshot = %s, want 63", first.ClientSharePercent)
	}

	report, err := service.RecalculateAllPercentages(42)
	if err != nil {
		t.Fatalf("RecalculateAllPercentages: %v", err)
	}
	if report.Scanned != 3 || report.Recalculated != 3 || report.Skipped != 0 {
		t.Errorf("unexpected report: %+v", report)
	}

	// The full 5,500 kWp book now applies to every open proposal.
	var reloaded models.Proposal
	if err := db.Where("public_id = ?", first.PublicID).First(&reloaded).Error; err != nil {
		t.Fatalf("failed to reload proposal: %v", err)
	}
	if !reloaded.ClientSharePercent.Equal(decimal.NewFromFloat(66.5)) {
		t.Errorf("recalculated share = %s, want 66.5", reloaded.ClientSharePercent)
	}
}
