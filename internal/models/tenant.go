package models

import (
	"time"
)

// Tenant is owned by the platform's tenant CRUD; this service only reads it
// to resolve webhook callbacks by subdomain.
type Tenant struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;size:255;not null" json:"name"`
	Subdomain string    `gorm:"column:subdomain;size:100;not null;uniqueIndex" json:"subdomain"`
	Status    int       `gorm:"column:status;default:1" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}
