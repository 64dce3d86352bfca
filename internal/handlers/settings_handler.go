package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"payments-service/internal/crypto"
	"payments-service/internal/services"

	"github.com/gin-gonic/gin"
)

// SettingsHandler serves the credential save/read endpoints consumed by the
// platform's admin surface. The authenticated caller's tenant id arrives via
// the X-Tenant-ID header set by the platform's auth middleware.
type SettingsHandler struct {
	Settings *services.SettingsService
}

func NewSettingsHandler(settings *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{Settings: settings}
}

type SaveSettingsRequest struct {
	PublicKey string `json:"publicKey" binding:"required"`
	SecretKey string `json:"secretKey" binding:"required"`
	Currency  string `json:"currency" binding:"required"`
	Metadata  string `json:"metadata"`
}

func (h *SettingsHandler) Save(c *gin.Context) {
	tenantId, ok := tenantIdFrom(c)
	if !ok {
		return
	}

	var req SaveSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Settings.Save(services.SaveCredentialInput{
		TenantId:  tenantId,
		PublicKey: req.PublicKey,
		SecretKey: req.SecretKey,
		Currency:  req.Currency,
		Metadata:  req.Metadata,
	})
	if err != nil {
		status, message := statusFor(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *SettingsHandler) Get(c *gin.Context) {
	tenantId, ok := tenantIdFrom(c)
	if !ok {
		return
	}

	redacted, err := h.Settings.GetRedacted(tenantId)
	if err != nil {
		if errors.Is(err, services.ErrNotConfigured) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment gateway has not been set up"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}

	c.JSON(http.StatusOK, redacted)
}

func tenantIdFrom(c *gin.Context) (uint, bool) {
	raw := c.GetHeader("X-Tenant-ID")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing tenant identity"})
		return 0, false
	}
	return uint(id), true
}

// statusFor maps the service error taxonomy onto HTTP statuses. Crypto
// failures stay opaque; validation and credential errors carry a specific
// message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidPublicKey),
		errors.Is(err, services.ErrInvalidSecretKey),
		errors.Is(err, services.ErrInvalidCurrency):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrInvalidCredential):
		return http.StatusBadRequest, "The provider rejected the secret key. Check the API key and try again"
	case errors.Is(err, services.ErrSignatureVerification):
		return http.StatusBadRequest, "Invalid webhook signature"
	case errors.Is(err, services.ErrUnknownTenant):
		return http.StatusNotFound, "Tenant not found"
	case errors.Is(err, services.ErrNotConfigured):
		return http.StatusNotFound, "Payment gateway has not been set up"
	case errors.Is(err, crypto.ErrNoMasterKey),
		errors.Is(err, crypto.ErrKeyTooShort),
		errors.Is(err, crypto.ErrInvalidBlob),
		errors.Is(err, crypto.ErrDecryptionFailed),
		errors.Is(err, services.ErrWebhookSecretMissing):
		return http.StatusInternalServerError, "Internal configuration error"
	}

	var pErr *services.ProviderError
	if errors.As(err, &pErr) {
		return http.StatusInternalServerError, pErr.Message
	}
	return http.StatusInternalServerError, "Internal error"
}
