package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"carbon-broker/internal/models"
	"carbon-broker/internal/rpc"
)

func TestValidateMatchingTokenBeforeExpiry(t *testing.T) {
	db := setupTestDB(t)
	service := NewInvitationService(db, nil, 14*24*time.Hour)

	client := models.ClientProfile{Name: "C", Email: "client@example.com"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	expires := time.Now().Add(time.Hour)
	proposal := models.Proposal{
		PublicID:            "prop-1",
		AgentID:             1,
		ClientProfileID:     client.ID,
		Status:              models.ProposalStatusPending,
		InvitationToken:     "tok-valid",
		InvitationExpiresAt: &expires,
	}
	if err := db.Create(&proposal).Error; err != nil {
		t.Fatalf("failed to create proposal: %v", err)
	}

	result, err := service.Validate(context.Background(), "tok-valid", "")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid result, got %+v", result)
	}
	if result.ProposalID != "prop-1" || result.ClientEmail != "client@example.com" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestValidateExpiredTokenIsNegativeNotError(t *testing.T) {
	db := setupTestDB(t)
	service := NewInvitationService(db, nil, time.Hour)

	expires := time.Now().Add(-time.Minute)
	proposal := models.Proposal{
		PublicID:            "prop-2",
		AgentID:             1,
		ClientProfileID:     1,
		Status:              models.ProposalStatusPending,
		InvitationToken:     "tok-expired",
		InvitationExpiresAt: &expires,
	}
	if err := db.Create(&proposal).Error; err != nil {
		t.Fatalf("failed to create proposal: %v", err)
	}

	result, err := service.Validate(context.Background(), "tok-expired", "")
	if err != nil {
		t.Fatalf("expired token must not be an error: %v", err)
	}
	if result.Valid {
		t.Error("expected invalid result for expired token")
	}
	if result.Reason == "" {
		t.Error("expected a reason on the negative result")
	}
}

func TestValidateArchivedProposalIsNegative(t *testing.T) {
	db := setupTestDB(t)
	service := NewInvitationService(db, nil, time.Hour)

	now := time.Now()
	expires := now.Add(time.Hour)
	proposal := models.Proposal{
		PublicID:            "prop-3",
		AgentID:             1,
		ClientProfileID:     1,
		Status:              models.ProposalStatusArchived,
		ArchivedAt:          &now,
		InvitationToken:     "tok-archived",
		InvitationExpiresAt: &expires,
	}
	if err := db.Create(&proposal).Error; err != nil {
		t.Fatalf("failed to create proposal: %v", err)
	}

	result, err := service.Validate(context.Background(), "tok-archived", "")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid {
		t.Error("expected invalid result for archived proposal")
	}
}

func TestValidateUnknownTokenDoesNotTriggerFallback(t *testing.T) {
	db := setupTestDB(t)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(rpc.ValidateInvitationResult{Valid: false})
	}))
	defer srv.Close()

	service := NewInvitationService(db, rpc.NewClient(srv.URL, ""), time.Hour)

	result, err := service.Validate(context.Background(), "tok-unknown", "")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid {
		t.Error("expected invalid result for unknown token")
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("fallback called %d times for a clean negative, want 0", n)
	}
}

func TestValidateFallsBackExactlyOnceOnStorageFailure(t *testing.T) {
	db := setupTestDB(t)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(rpc.ValidateInvitationResult{
			Valid:       true,
			ProposalID:  "prop-9",
			ClientEmail: "client@example.com",
		})
	}))
	defer srv.Close()

	service := NewInvitationService(db, rpc.NewClient(srv.URL, ""), time.Hour)

	// Break the direct path.
	if err := db.Exec("DROP TABLE proposals").Error; err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	result, err := service.Validate(context.Background(), "tok-any", "visitor@example.com")
	if err != nil {
		t.Fatalf("Validate via fallback: %v", err)
	}
	if !result.Valid || result.ProposalID != "prop-9" {
		t.Errorf("unexpected fallback result: %+v", result)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fallback called %d times, want exactly 1", n)
	}
}

func TestValidateBothPathsFailingIsTerminalError(t *testing.T) {
	db := setupTestDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	service := NewInvitationService(db, rpc.NewClient(srv.URL, ""), time.Hour)

	if err := db.Exec("DROP TABLE proposals").Error; err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	if _, err := service.Validate(context.Background(), "tok-any", ""); err == nil {
		t.Fatal("expected terminal error when both paths fail")
	}
}

func TestIssueRotatesToken(t *testing.T) {
	db := setupTestDB(t)
	service := NewInvitationService(db, nil, time.Hour)

	client := models.ClientProfile{Name: "C", Email: "client@example.com"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	proposal := models.Proposal{
		PublicID:        "prop-4",
		AgentID:         1,
		ClientProfileID: client.ID,
		ClientProfile:   &client,
		Status:          models.ProposalStatusPending,
	}
	if err := db.Create(&proposal).Error; err != nil {
		t.Fatalf("failed to create proposal: %v", err)
	}

	first, err := service.Issue(&proposal)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second, err := service.Issue(&proposal)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if first == "" || second == "" || first == second {
		t.Errorf("expected distinct non-empty tokens, got %q and %q", first, second)
	}

	var stored models.Proposal
	if err := db.Where("public_id = ?", "prop-4").First(&stored).Error; err != nil {
		t.Fatalf("failed to reload proposal: %v", err)
	}
	if stored.InvitationToken != second {
		t.Error("stored token should match the latest issued token")
	}
	if stored.InvitationExpiresAt == nil || !stored.InvitationExpiresAt.After(time.Now()) {
		t.Error("expected a future expiry on the stored invitation")
	}
}
