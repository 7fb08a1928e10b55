package services

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"carbon-broker/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.ClientProfile{},
		&models.Proposal{},
		&models.CarbonPrice{},
		&models.AdminLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func floatPtr(v float64) *float64 { return &v }

func TestAggregateExcludesRejectedAndArchived(t *testing.T) {
	db := setupTestDB(t)
	service := NewPortfolioService(db)

	now := time.Now()
	proposals := []models.Proposal{
		{PublicID: "a", AgentID: 1, ClientProfileID: 1, SizeKWp: floatPtr(2000), Status: models.ProposalStatusDraft},
		{PublicID: "b", AgentID: 1, ClientProfileID: 1, SizeKWp: floatPtr(2500), Status: models.ProposalStatusApproved},
		{PublicID: "c", AgentID: 1, ClientProfileID: 1, SizeKWp: floatPtr(9000), Status: models.ProposalStatusRejected},
		{PublicID: "d", AgentID: 1, ClientProfileID: 1, SizeKWp: floatPtr(7000), Status: models.ProposalStatusArchived, ArchivedAt: &now},
	}
	for i := range proposals {
		if err := db.Create(&proposals[i]).Error; err != nil {
			t.Fatalf("failed to create proposal: %v", err)
		}
	}

	portfolio, err := service.ForClient(1)
	if err != nil {
		t.Fatalf("ForClient: %v", err)
	}

	if portfolio.TotalKWp != 4500 {
		t.Errorf("TotalKWp = %v, want 4500", portfolio.TotalKWp)
	}
	if portfolio.Count != 2 {
		t.Errorf("Count = %d, want 2", portfolio.Count)
	}
}

func TestAggregateParsesFreeTextSizes(t *testing.T) {
	db := setupTestDB(t)
	service := NewPortfolioService(db)

	proposals := []models.Proposal{
		{PublicID: "a", AgentID: 2, ClientProfileID: 2, SizeText: "2.5 MWp", Status: models.ProposalStatusDraft},
		{PublicID: "b", AgentID: 2, ClientProfileID: 2, SizeText: "1500 kWp", Status: models.ProposalStatusDraft},
		{PublicID: "c", AgentID: 2, ClientProfileID: 2, SizeText: "not a size", Status: models.ProposalStatusDraft},
	}
	for i := range proposals {
		if err := db.Create(&proposals[i]).Error; err != nil {
			t.Fatalf("failed to create proposal: %v", err)
		}
	}

	portfolio, err := service.ForAgent(2)
	if err != nil {
		t.Fatalf("ForAgent: %v", err)
	}

	// The unparsable row is skipped, not fatal.
	if portfolio.TotalKWp != 4000 {
		t.Errorf("TotalKWp = %v, want 4000", portfolio.TotalKWp)
	}
	if portfolio.Count != 2 {
		t.Errorf("Count = %d, want 2", portfolio.Count)
	}
}

func TestAggregateStorageFailureReturnsZeroWithError(t *testing.T) {
	db := setupTestDB(t)
	service := NewPortfolioService(db)

	if err := db.Exec("DROP TABLE proposals").Error; err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	portfolio, err := service.ForClient(1)
	if err == nil {
		t.Fatal("expected error after table drop")
	}
	if portfolio.TotalKWp != 0 || portfolio.Count != 0 {
		t.Errorf("portfolio should be zero on failure, got %+v", portfolio)
	}
}

func TestParseSizeKWp(t *testing.T) {
	cases := []struct {
		text string
		want float64
		ok   bool
	}{
		{"4200", 4200, true},
		{"4200 kWp", 4200, true},
		{"4.2 MWp", 4200, true},
		{"4.2MWp", 4200, true},
		{"1,200 kWp", 1200, true},
		{"2 MW", 2000, true},
		{"", 0, false},
		{"large", 0, false},
		{"-5 kWp", 0, false},
	}

	for _, tc := range cases {
		got, ok := ParseSizeKWp(tc.text)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseSizeKWp(%q) = %v, %v; want %v, %v", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}
