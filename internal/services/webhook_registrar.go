package services

import (
	"log"
)

// ReconcileResult reports what Reconcile found or created. When an enabled
// endpoint already exists for the callback URL, WebhookSecret is the
// previously stored secret passed by the caller: the provider never re-exposes
// the signing secret of an existing endpoint.
type ReconcileResult struct {
	WebhookId     string
	WebhookSecret string
	Created       bool
}

// WebhookRegistrar keeps remote webhook registration in step with a tenant's
// callback URL. Credential saves can be repeated, so reconciliation must not
// create duplicate endpoints.
type WebhookRegistrar struct{}

func NewWebhookRegistrar() *WebhookRegistrar {
	return &WebhookRegistrar{}
}

// Reconcile lists the endpoints registered on the provider account and
// returns the one whose URL exactly equals callbackUrl and whose status is
// enabled. If none matches, it creates an endpoint subscribed to
// DefaultWebhookEvents and returns the newly issued id and signing secret.
func (r *WebhookRegistrar) Reconcile(api WebhookEndpointAPI, callbackUrl, storedSecret string) (*ReconcileResult, error) {
	endpoints, err := api.ListWebhookEndpoints()
	if err != nil {
		return nil, err
	}

	for _, ep := range endpoints {
		if ep.URL == callbackUrl && ep.Status == "enabled" {
			return &ReconcileResult{
				WebhookId:     ep.ID,
				WebhookSecret: storedSecret,
			}, nil
		}
	}

	created, err := api.CreateWebhookEndpoint(callbackUrl, DefaultWebhookEvents)
	if err != nil {
		return nil, err
	}
	log.Printf("Registered webhook endpoint %s for %s", created.ID, callbackUrl)

	return &ReconcileResult{
		WebhookId:     created.ID,
		WebhookSecret: created.Secret,
		Created:       true,
	}, nil
}

// SweepDuplicates disables surplus enabled endpoints pointing at callbackUrl.
// The stored endpoint (keepId) survives; with no stored id the earliest
// created one does. Two concurrent saves can race list-then-create against
// the provider, so the sweep runs periodically to undo any extra endpoint.
func (r *WebhookRegistrar) SweepDuplicates(api WebhookEndpointAPI, callbackUrl, keepId string) (int, error) {
	endpoints, err := api.ListWebhookEndpoints()
	if err != nil {
		return 0, err
	}

	keep := keepId
	if keep == "" {
		var earliest int64
		for _, ep := range endpoints {
			if ep.URL != callbackUrl || ep.Status != "enabled" {
				continue
			}
			if keep == "" || ep.Created < earliest {
				keep = ep.ID
				earliest = ep.Created
			}
		}
	}

	disabled := 0
	for _, ep := range endpoints {
		if ep.URL != callbackUrl || ep.Status != "enabled" || ep.ID == keep {
			continue
		}
		if _, err := api.DisableWebhookEndpoint(ep.ID); err != nil {
			return disabled, err
		}
		log.Printf("Disabled duplicate webhook endpoint %s for %s", ep.ID, callbackUrl)
		disabled++
	}
	return disabled, nil
}
