package services

import (
	"testing"

	"carbon-broker/internal/models"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	db := setupTestDB(t)
	service := NewUserService(db)

	user, err := service.Register("Agent@Example.com", "hunter22", "Agent A", models.RoleAgent)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "agent@example.com" {
		t.Errorf("email not normalized: %q", user.Email)
	}

	if _, err := service.Register("agent@example.com", "hunter22", "Dup", models.RoleAgent); err == nil {
		t.Error("expected error for duplicate email")
	}
	if _, err := service.Register("short@example.com", "short", "S", models.RoleAgent); err == nil {
		t.Error("expected error for short password")
	}
	if _, err := service.Register("odd@example.com", "hunter22", "O", "superuser"); err == nil {
		t.Error("expected error for invalid role")
	}

	if _, err := service.Authenticate("agent@example.com", "wrong"); err == nil {
		t.Error("expected error for wrong password")
	}
	got, err := service.Authenticate("agent@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated user %d, want %d", got.ID, user.ID)
	}
}

func TestRegisterLinksExistingClientProfile(t *testing.T) {
	db := setupTestDB(t)
	service := NewUserService(db)

	profile := models.ClientProfile{Name: "C", Email: "client@example.com"}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	user, err := service.Register("client@example.com", "hunter22", "Client C", models.RoleClient)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	var linked models.ClientProfile
	if err := db.First(&linked, profile.ID).Error; err != nil {
		t.Fatalf("failed to reload profile: %v", err)
	}
	if linked.UserID == nil || *linked.UserID != user.ID {
		t.Error("client profile was not linked to the new account")
	}
}
