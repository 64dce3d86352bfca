package models

import (
	"time"
)

type WebhookLog struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantId    uint      `gorm:"column:tenant_id;not null" json:"tenant_id"`
	Request     string    `gorm:"column:request;type:longtext" json:"request"`
	Response    string    `gorm:"column:response;type:longtext" json:"response"`
	Status      int       `gorm:"column:status;default:0" json:"status"`
	RequestType string    `gorm:"column:request_type;size:255" json:"request_type"`
	EventId     string    `gorm:"column:event_id;size:255" json:"event_id"`
	Provider    string    `gorm:"column:provider;size:255" json:"provider"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (WebhookLog) TableName() string {
	return "webhook_logs"
}
