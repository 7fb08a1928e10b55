package models

import (
	"time"
)

// ClientProfile is a lightweight client record. Agents can create proposals for
// clients who have not registered yet; when the client later signs up the
// profile is linked to their user account via UserID.
type ClientProfile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for ClientProfile model
func (ClientProfile) TableName() string {
	return "client_profiles"
}
