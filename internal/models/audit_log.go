package models

import "time"

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	UserID uint `json:"userId"`

	Entity   string `gorm:"size:50;not null" json:"entity"` // сейчас только "project"
	EntityID uint   `gorm:"index" json:"entityId"`
	Action   string `gorm:"size:50;not null" json:"action"` // "create", "submit", "unsubmit", "update_header"
	Details  string `gorm:"type:text" json:"details"`
}
