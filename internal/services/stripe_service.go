package services

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v82"
	stripeclient "github.com/stripe/stripe-go/v82/client"
)

// DefaultWebhookEvents is the event set every registered endpoint subscribes
// to. Keep in sync with the dispatcher's default handlers.
var DefaultWebhookEvents = []string{
	"payment_intent.succeeded",
	"payment_intent.payment_failed",
	"charge.succeeded",
	"charge.failed",
	"customer.subscription.created",
	"customer.subscription.updated",
	"customer.subscription.deleted",
	"invoice.payment_succeeded",
	"invoice.payment_failed",
}

// WebhookEndpointAPI is the slice of the provider API the registrar needs.
// StripeClient implements it; tests substitute a fake.
type WebhookEndpointAPI interface {
	ListWebhookEndpoints() ([]*stripe.WebhookEndpoint, error)
	CreateWebhookEndpoint(url string, events []string) (*stripe.WebhookEndpoint, error)
	DisableWebhookEndpoint(id string) (*stripe.WebhookEndpoint, error)
}

// StripeClient wraps the Stripe SDK for a single tenant. It is constructed
// fresh per request from the decrypted secret key and holds no state beyond
// the SDK handle; the plaintext key lives only for the request.
type StripeClient struct {
	api *stripeclient.API
}

func NewStripeClient(secretKey string) *StripeClient {
	api := &stripeclient.API{}
	api.Init(secretKey, nil)
	return &StripeClient{api: api}
}

// NewStripeClientFromCredential builds a client without retaining the
// decrypted key on the caller side.
func NewStripeClientFromCredential(secretKey string) WebhookEndpointAPI {
	return NewStripeClient(secretKey)
}

func (c *StripeClient) CreateCustomer(email, name string, metadata map[string]string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	customer, err := c.api.Customers.New(params)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return customer, nil
}

func (c *StripeClient) GetCustomer(id string) (*stripe.Customer, error) {
	customer, err := c.api.Customers.Get(id, nil)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return customer, nil
}

// CreatePaymentIntent creates an intent with a fresh idempotency key so a
// retried save cannot double-charge.
func (c *StripeClient) CreatePaymentIntent(amount int64, currency, customerId string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	if customerId != "" {
		params.Customer = stripe.String(customerId)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.IdempotencyKey = stripe.String(uuid.NewString())

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return intent, nil
}

func (c *StripeClient) GetPaymentIntent(id string) (*stripe.PaymentIntent, error) {
	intent, err := c.api.PaymentIntents.Get(id, nil)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return intent, nil
}

func (c *StripeClient) CreateProduct(name, description string) (*stripe.Product, error) {
	params := &stripe.ProductParams{
		Name: stripe.String(name),
	}
	if description != "" {
		params.Description = stripe.String(description)
	}
	product, err := c.api.Products.New(params)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return product, nil
}

func (c *StripeClient) ListProducts(limit int64) ([]*stripe.Product, error) {
	params := &stripe.ProductListParams{}
	params.Limit = stripe.Int64(limit)

	var products []*stripe.Product
	iter := c.api.Products.List(params)
	for iter.Next() {
		products = append(products, iter.Product())
	}
	if err := iter.Err(); err != nil {
		return nil, wrapStripeErr(err)
	}
	return products, nil
}

func (c *StripeClient) CreateSubscription(customerId, priceId string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerId),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceId)},
		},
	}
	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return sub, nil
}

func (c *StripeClient) GetSubscription(id string) (*stripe.Subscription, error) {
	sub, err := c.api.Subscriptions.Get(id, nil)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return sub, nil
}

func (c *StripeClient) CancelSubscription(id string) (*stripe.Subscription, error) {
	sub, err := c.api.Subscriptions.Cancel(id, nil)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return sub, nil
}

func (c *StripeClient) ListWebhookEndpoints() ([]*stripe.WebhookEndpoint, error) {
	var endpoints []*stripe.WebhookEndpoint
	iter := c.api.WebhookEndpoints.List(&stripe.WebhookEndpointListParams{})
	for iter.Next() {
		endpoints = append(endpoints, iter.WebhookEndpoint())
	}
	if err := iter.Err(); err != nil {
		return nil, wrapStripeErr(err)
	}
	return endpoints, nil
}

func (c *StripeClient) CreateWebhookEndpoint(url string, events []string) (*stripe.WebhookEndpoint, error) {
	params := &stripe.WebhookEndpointParams{
		URL:           stripe.String(url),
		EnabledEvents: stripe.StringSlice(events),
	}
	endpoint, err := c.api.WebhookEndpoints.New(params)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return endpoint, nil
}

func (c *StripeClient) DisableWebhookEndpoint(id string) (*stripe.WebhookEndpoint, error) {
	params := &stripe.WebhookEndpointParams{
		Disabled: stripe.Bool(true),
	}
	endpoint, err := c.api.WebhookEndpoints.Update(id, params)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return endpoint, nil
}

func (c *StripeClient) DeleteWebhookEndpoint(id string) error {
	if _, err := c.api.WebhookEndpoints.Del(id, nil); err != nil {
		return wrapStripeErr(err)
	}
	return nil
}

// wrapStripeErr maps SDK errors into the service taxonomy. A 401 from the
// provider means the secret key itself is bad.
func wrapStripeErr(err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		if sErr.HTTPStatusCode == http.StatusUnauthorized {
			return ErrInvalidCredential
		}
		return &ProviderError{Message: sErr.Msg, Err: err}
	}
	return &ProviderError{Message: err.Error(), Err: err}
}
