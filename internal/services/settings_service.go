package services

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"payments-service/internal/crypto"
	"payments-service/internal/models"

	"gorm.io/gorm"
)

// EncryptionContext is the AAD label for all gateway secrets. A blob
// encrypted under any other label fails verification here.
const EncryptionContext = "payment-gateway"

var allowedCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
	"CAD": true,
	"AUD": true,
	"NGN": true,
	"KES": true,
	"GHS": true,
	"ZAR": true,
	"INR": true,
}

// ClientFactory builds a provider client from a decrypted secret key. Tests
// substitute a fake so no remote calls happen.
type ClientFactory func(secretKey string) WebhookEndpointAPI

// SettingsService is the credential vault: it owns the gateway_credentials
// table and is the only component that encrypts or decrypts gateway secrets.
type SettingsService struct {
	DB        *gorm.DB
	Registrar *WebhookRegistrar
	Clients   ClientFactory
}

func NewSettingsService(db *gorm.DB, registrar *WebhookRegistrar) *SettingsService {
	return &SettingsService{
		DB:        db,
		Registrar: registrar,
		Clients:   NewStripeClientFromCredential,
	}
}

type SaveCredentialInput struct {
	TenantId  uint
	PublicKey string
	SecretKey string
	Currency  string
	Metadata  string
}

type SaveResult struct {
	Credential    models.RedactedCredential `json:"credential"`
	WebhookStatus string                    `json:"webhook_status"` // "created" or "already exists"
}

// CallbackURL builds the webhook callback for a tenant subdomain. It must
// match what was registered with the provider byte for byte, scheme and host
// included, or reconciliation will not recognize the endpoint.
func CallbackURL(subdomain string) string {
	base := strings.TrimSuffix(os.Getenv("BASE_URL"), "/")
	return fmt.Sprintf("%s/api/webhooks/stripe/%s", base, subdomain)
}

// Save validates, reconciles the remote webhook endpoint, encrypts the
// secrets and upserts the tenant's credential record. Validation failures
// happen before any remote call.
func (s *SettingsService) Save(input SaveCredentialInput) (*SaveResult, error) {
	if !strings.HasPrefix(input.PublicKey, "pk_") {
		return nil, ErrInvalidPublicKey
	}
	if !strings.HasPrefix(input.SecretKey, "sk_") && !strings.HasPrefix(input.SecretKey, "rk_") {
		return nil, ErrInvalidSecretKey
	}
	currency := strings.ToUpper(input.Currency)
	if !allowedCurrencies[currency] {
		return nil, ErrInvalidCurrency
	}

	var tenant models.Tenant
	if err := s.DB.Where("id = ?", input.TenantId).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownTenant
		}
		return nil, err
	}

	var existing *models.GatewayCredential
	var record models.GatewayCredential
	err := s.DB.Where("tenant_id = ?", input.TenantId).First(&record).Error
	if err == nil {
		existing = &record
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// The provider does not re-expose signing secrets, so the stored one is
	// handed to Reconcile and comes back unchanged for an existing endpoint.
	storedSecret := ""
	if existing != nil {
		storedSecret, err = crypto.SafeDecrypt(existing.WebhookSecret, EncryptionContext)
		if err != nil {
			return nil, err
		}
	}

	result, err := s.Registrar.Reconcile(s.Clients(input.SecretKey), CallbackURL(tenant.Subdomain), storedSecret)
	if err != nil {
		return nil, err
	}

	secretBlob, err := crypto.SafeEncrypt(input.SecretKey, EncryptionContext)
	if err != nil {
		return nil, err
	}

	webhookSecretBlob := ""
	if existing != nil && !result.Created && existing.WebhookId == result.WebhookId {
		// Endpoint unchanged: keep the stored blob rather than re-sealing it.
		webhookSecretBlob = existing.WebhookSecret
	} else {
		webhookSecretBlob, err = crypto.SafeEncrypt(result.WebhookSecret, EncryptionContext)
		if err != nil {
			return nil, err
		}
	}

	if existing != nil {
		existing.PublicKey = input.PublicKey
		existing.SecretKey = secretBlob
		existing.Currency = currency
		existing.WebhookId = result.WebhookId
		existing.WebhookSecret = webhookSecretBlob
		if input.Metadata != "" {
			existing.Metadata = input.Metadata
		}
		if err := s.DB.Save(existing).Error; err != nil {
			return nil, err
		}
		record = *existing
	} else {
		record = models.GatewayCredential{
			TenantId:      input.TenantId,
			PublicKey:     input.PublicKey,
			SecretKey:     secretBlob,
			Currency:      currency,
			WebhookId:     result.WebhookId,
			WebhookSecret: webhookSecretBlob,
			Metadata:      input.Metadata,
		}
		if err := s.DB.Create(&record).Error; err != nil {
			return nil, err
		}
	}

	status := "already exists"
	if result.Created {
		status = "created"
	}
	return &SaveResult{
		Credential:    record.Redacted(),
		WebhookStatus: status,
	}, nil
}

// Load returns the tenant's credential with both secrets decrypted. Only
// trusted internal callers that immediately use or re-encrypt the values may
// call this; anything client-facing goes through GetRedacted.
func (s *SettingsService) Load(tenantId uint) (*models.GatewayCredential, error) {
	var record models.GatewayCredential
	if err := s.DB.Where("tenant_id = ?", tenantId).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotConfigured
		}
		return nil, err
	}

	secret, err := crypto.SafeDecrypt(record.SecretKey, EncryptionContext)
	if err != nil {
		return nil, err
	}
	webhookSecret, err := crypto.SafeDecrypt(record.WebhookSecret, EncryptionContext)
	if err != nil {
		return nil, err
	}

	record.SecretKey = secret
	record.WebhookSecret = webhookSecret
	return &record, nil
}

// GetRedacted returns the display shape without touching the crypto engine.
func (s *SettingsService) GetRedacted(tenantId uint) (*models.RedactedCredential, error) {
	var record models.GatewayCredential
	if err := s.DB.Where("tenant_id = ?", tenantId).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotConfigured
		}
		return nil, err
	}
	redacted := record.Redacted()
	return &redacted, nil
}

// IsConfigured is a cheap existence check used to gate payment routes.
func (s *SettingsService) IsConfigured(tenantId uint) bool {
	var count int64
	s.DB.Model(&models.GatewayCredential{}).Where("tenant_id = ?", tenantId).Count(&count)
	return count > 0
}
