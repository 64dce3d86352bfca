package services

import (
	"errors"
	"fmt"
)

// Error taxonomy for the credential vault and webhook pipeline. Crypto
// failures (missing master key, bad blob, failed AEAD verification) carry
// their own sentinels in internal/crypto.
var (
	// ErrNotConfigured means no gateway credential exists for the tenant.
	// Callers treat this as "payments not set up", not a transient failure.
	ErrNotConfigured = errors.New("payment gateway has not been configured for tenant")

	// ErrUnknownTenant means the subdomain resolved to no tenant.
	ErrUnknownTenant = errors.New("no tenant found for subdomain")

	// ErrInvalidCredential means the provider rejected the secret key as
	// unauthenticated. Distinct from ProviderError so the caller can show a
	// specific "invalid API key" message.
	ErrInvalidCredential = errors.New("payment provider rejected the secret key")

	// ErrSignatureVerification means an inbound webhook signature did not
	// validate against the raw body. The request is rejected outright.
	ErrSignatureVerification = errors.New("webhook signature verification failed")

	// ErrWebhookSecretMissing means the tenant has credentials but no stored
	// signing secret. Operator misconfiguration, surfaced as 500.
	ErrWebhookSecretMissing = errors.New("webhook signing secret is not configured for tenant")

	ErrInvalidPublicKey = errors.New("public key must start with pk_")
	ErrInvalidSecretKey = errors.New("secret key must start with sk_ or rk_")
	ErrInvalidCurrency  = errors.New("currency is not in the supported list")
)

// ProviderError wraps any other remote API failure: network, rate limit,
// provider-side 5xx. The provider's message is kept for diagnosis; no secret
// material is ever attached.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
