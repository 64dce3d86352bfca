package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"payments-service/internal/crypto"
	"payments-service/internal/models"
	"payments-service/internal/services"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testMasterKey     = "handler-test-master-key-0123456789ab"
	testSigningSecret = "whsec_handlertest"
)

type fakeEndpointAPI struct {
	endpoints []*stripe.WebhookEndpoint
}

func (f *fakeEndpointAPI) ListWebhookEndpoints() ([]*stripe.WebhookEndpoint, error) {
	return f.endpoints, nil
}

func (f *fakeEndpointAPI) CreateWebhookEndpoint(url string, events []string) (*stripe.WebhookEndpoint, error) {
	ep := &stripe.WebhookEndpoint{
		ID:     fmt.Sprintf("we_%d", len(f.endpoints)+1),
		URL:    url,
		Status: "enabled",
		Secret: testSigningSecret,
	}
	f.endpoints = append(f.endpoints, ep)
	return ep, nil
}

func (f *fakeEndpointAPI) DisableWebhookEndpoint(id string) (*stripe.WebhookEndpoint, error) {
	return nil, nil
}

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	t.Setenv(crypto.MasterKeyEnv, testMasterKey)
	t.Setenv("BASE_URL", "https://platform.example.com")
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Tenant{},
		&models.GatewayCredential{},
		&models.PaymentEvent{},
		&models.WebhookLog{},
	))
	require.NoError(t, db.Create(&models.Tenant{Name: "Acme", Subdomain: "acme"}).Error)

	api := &fakeEndpointAPI{}
	registrar := services.NewWebhookRegistrar()
	settingsService := services.NewSettingsService(db, registrar)
	settingsService.Clients = func(secretKey string) services.WebhookEndpointAPI { return api }

	tenantService := services.NewTenantService(db)
	webhookService := services.NewWebhookService(db, tenantService, settingsService, nil)
	webhookService.RegisterDefaults()

	settingsHandler := NewSettingsHandler(settingsService)
	webhookHandler := NewWebhookHandler(webhookService)
	eventsHandler := NewEventsHandler(db)

	r := gin.New()
	r.POST("/api/payment-settings", settingsHandler.Save)
	r.GET("/api/payment-settings", settingsHandler.Get)
	r.GET("/api/payment-events", eventsHandler.List)
	r.POST("/api/webhooks/stripe/:subdomain", webhookHandler.HandleStripe)
	return r, db
}

func signStripe(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d", ts)
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func saveCredentials(t *testing.T, r *gin.Engine) {
	t.Helper()
	body := `{"publicKey":"pk_test_abc","secretKey":"sk_test_xyz","currency":"USD"}`
	req := httptest.NewRequest("POST", "/api/payment-settings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestSaveSettingsEndpoint(t *testing.T) {
	r, db := setupRouter(t)

	body := `{"publicKey":"pk_test_abc","secretKey":"sk_test_xyz","currency":"USD"}`
	req := httptest.NewRequest("POST", "/api/payment-settings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp services.SaveResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "created", resp.WebhookStatus)
	assert.Equal(t, models.SecretPlaceholder, resp.Credential.SecretKey)
	assert.NotEmpty(t, resp.Credential.WebhookId)

	var row models.GatewayCredential
	require.NoError(t, db.Where("tenant_id = ?", 1).First(&row).Error)
	assert.True(t, crypto.IsEncrypted(row.SecretKey))
}

func TestSaveSettingsRequiresTenantIdentity(t *testing.T) {
	r, _ := setupRouter(t)

	body := `{"publicKey":"pk_test_abc","secretKey":"sk_test_xyz","currency":"USD"}`
	req := httptest.NewRequest("POST", "/api/payment-settings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSaveSettingsRejectsBadKeyFormat(t *testing.T) {
	r, _ := setupRouter(t)

	body := `{"publicKey":"pk_test_abc","secretKey":"bad_format","currency":"USD"}`
	req := httptest.NewRequest("POST", "/api/payment-settings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSettingsRedacted(t *testing.T) {
	r, _ := setupRouter(t)
	saveCredentials(t, r)

	req := httptest.NewRequest("GET", "/api/payment-settings", nil)
	req.Header.Set("X-Tenant-ID", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.RedactedCredential
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.SecretPlaceholder, resp.SecretKey)
	assert.Equal(t, "pk_test_abc", resp.PublicKey)
	assert.NotContains(t, w.Body.String(), "sk_test_xyz")
}

func TestGetSettingsNotConfigured(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest("GET", "/api/payment-settings", nil)
	req.Header.Set("X-Tenant-ID", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookEndpointAccepted(t *testing.T) {
	r, db := setupRouter(t)
	saveCredentials(t, r)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	req := httptest.NewRequest("POST", "/api/webhooks/stripe/acme", bytes.NewBuffer(payload))
	req.Header.Set("Stripe-Signature", signStripe(payload, testSigningSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"received":true}`, w.Body.String())

	var event models.PaymentEvent
	require.NoError(t, db.Where("event_id = ?", "evt_1").First(&event).Error)
}

func TestWebhookEndpointRejectsBadSignature(t *testing.T) {
	r, db := setupRouter(t)
	saveCredentials(t, r)

	payload := []byte(`{"id":"evt_2","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	req := httptest.NewRequest("POST", "/api/webhooks/stripe/acme", bytes.NewBuffer(payload))
	req.Header.Set("Stripe-Signature", signStripe([]byte("other bytes"), testSigningSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	db.Model(&models.PaymentEvent{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestWebhookEndpointUnknownTenant(t *testing.T) {
	r, _ := setupRouter(t)

	payload := []byte(`{"id":"evt_3","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	req := httptest.NewRequest("POST", "/api/webhooks/stripe/ghost", bytes.NewBuffer(payload))
	req.Header.Set("Stripe-Signature", signStripe(payload, testSigningSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventsListPaginated(t *testing.T) {
	r, db := setupRouter(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.PaymentEvent{
			EventId:   fmt.Sprintf("evt_list_%d", i),
			TenantId:  1,
			EventType: "charge.succeeded",
			Status:    1,
		}).Error)
	}

	req := httptest.NewRequest("GET", "/api/payment-events?page=1&limit=2", nil)
	req.Header.Set("X-Tenant-ID", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count       int64                 `json:"count"`
		CurrentPage int                   `json:"currentPage"`
		NextPage    int                   `json:"nextPage"`
		Data        []models.PaymentEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Count)
	assert.Equal(t, 2, resp.NextPage)
	assert.Len(t, resp.Data, 2)
}
