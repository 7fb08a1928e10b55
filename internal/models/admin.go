package models

import (
	"time"
)

// AdminLog records administrative actions (role changes, price table updates,
// recalculation runs) for auditing.
type AdminLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AdminID   uint      `gorm:"not null;index" json:"admin_id"`
	Admin     *User     `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
	Action    string    `gorm:"size:50;not null" json:"action"`
	Detail    string    `gorm:"size:500" json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for AdminLog model
func (AdminLog) TableName() string {
	return "admin_logs"
}
