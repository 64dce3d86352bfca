package services

import (
	"testing"

	"payments-service/internal/crypto"
	"payments-service/internal/models"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepAllDisablesDuplicates(t *testing.T) {
	t.Setenv(crypto.MasterKeyEnv, testMasterKey)
	t.Setenv("BASE_URL", "https://platform.example.com")

	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.Tenant{Name: "Acme", Subdomain: "acme"}).Error)

	skBlob, err := crypto.Encrypt("sk_test_xyz", EncryptionContext)
	require.NoError(t, err)
	whsecBlob, err := crypto.Encrypt("whsec_sweep", EncryptionContext)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.GatewayCredential{
		TenantId:      1,
		PublicKey:     "pk_test_abc",
		SecretKey:     skBlob,
		Currency:      "USD",
		WebhookId:     "we_1",
		WebhookSecret: whsecBlob,
	}).Error)

	callback := CallbackURL("acme")
	api := &fakeEndpointAPI{
		endpoints: []*stripe.WebhookEndpoint{
			{ID: "we_1", URL: callback, Status: "enabled", Created: 1},
			{ID: "we_2", URL: callback, Status: "enabled", Created: 2},
		},
	}

	svc := NewSweepService(db, NewWebhookRegistrar())
	svc.Clients = func(secretKey string) WebhookEndpointAPI {
		assert.Equal(t, "sk_test_xyz", secretKey)
		return api
	}

	svc.SweepAll()

	assert.Equal(t, 1, api.enabledFor(callback))
	assert.Equal(t, "enabled", api.endpoints[0].Status)
	assert.Equal(t, "disabled", api.endpoints[1].Status)
}
