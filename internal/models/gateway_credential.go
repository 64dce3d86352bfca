package models

import (
	"time"
)

// SecretPlaceholder is the fixed marker returned in place of a decrypted
// secret key on any client-facing read path.
const SecretPlaceholder = "sk_********"

// GatewayCredential holds a tenant's Stripe configuration. SecretKey and
// WebhookSecret contain encrypted blobs, never plaintext. At most one record
// exists per tenant (unique tenant_id).
type GatewayCredential struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantId      uint      `gorm:"column:tenant_id;not null;uniqueIndex" json:"tenant_id"`
	PublicKey     string    `gorm:"column:public_key;type:longtext" json:"public_key"`
	SecretKey     string    `gorm:"column:secret_key;type:longtext" json:"-"`
	Currency      string    `gorm:"column:currency;size:10;default:USD" json:"currency"`
	WebhookId     string    `gorm:"column:webhook_id;size:255" json:"webhook_id"`
	WebhookSecret string    `gorm:"column:webhook_secret;type:longtext" json:"-"`
	Metadata      string    `gorm:"column:metadata;type:longtext" json:"metadata"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (GatewayCredential) TableName() string {
	return "gateway_credentials"
}

// RedactedCredential is the only credential shape handlers may serialize to a
// client. The secret key field carries the placeholder, nothing else.
type RedactedCredential struct {
	PublicKey     string `json:"public_key"`
	SecretKey     string `json:"secret_key"`
	Currency      string `json:"currency"`
	WebhookId     string `json:"webhook_id"`
	Metadata      string `json:"metadata"`
	WebhookActive bool   `json:"webhook_active"`
}

func (c *GatewayCredential) Redacted() RedactedCredential {
	return RedactedCredential{
		PublicKey:     c.PublicKey,
		SecretKey:     SecretPlaceholder,
		Currency:      c.Currency,
		WebhookId:     c.WebhookId,
		Metadata:      c.Metadata,
		WebhookActive: c.WebhookId != "",
	}
}
