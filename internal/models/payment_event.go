package models

import (
	"time"
)

type PaymentEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EventId   string    `gorm:"column:event_id;size:255;not null;uniqueIndex" json:"event_id"`
	TenantId  uint      `gorm:"column:tenant_id;not null;index" json:"tenant_id"`
	EventType string    `gorm:"column:event_type;size:100;not null" json:"event_type"`
	Payload   string    `gorm:"column:payload;type:longtext" json:"payload"`
	Status    int       `gorm:"column:status;default:0" json:"status"` // 0: pending, 1: processed, 2: failed
	Comment   string    `gorm:"column:comment;size:255" json:"comment"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (PaymentEvent) TableName() string {
	return "payment_events"
}
