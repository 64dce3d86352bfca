package services

import (
	"encoding/json"
	"fmt"
	"log"

	"payments-service/internal/models"

	"github.com/hibiken/asynq"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"
)

// Task type (copied from worker/tasks.go to avoid cycle)
const TypePaymentEvent = "payment-event"

// PaymentEventPayload is the asynq task body handed to the worker after a
// verified event has been recorded.
type PaymentEventPayload struct {
	EventId   string `json:"eventId"`
	TenantId  uint   `json:"tenantId"`
	EventType string `json:"eventType"`
}

// TaskEnqueuer is the slice of asynq.Client the dispatcher needs.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EventHandler processes one verified event for one tenant. Handlers must
// return promptly; longer work goes through the task queue.
type EventHandler func(tenantId uint, event *stripe.Event) error

type handlerEntry struct {
	handle EventHandler
	// critical handlers fail the HTTP response on error so the provider
	// retries; everything else is logged and the event is still acked.
	critical bool
}

// WebhookService verifies inbound provider callbacks and dispatches verified
// events. Pipeline per request: resolve tenant by subdomain, decrypt the
// stored signing secret, verify the signature over the raw body, dispatch by
// event type.
type WebhookService struct {
	DB       *gorm.DB
	Tenants  *TenantService
	Settings *SettingsService
	Queue    TaskEnqueuer
	handlers map[string]handlerEntry
}

func NewWebhookService(db *gorm.DB, tenants *TenantService, settings *SettingsService, queue TaskEnqueuer) *WebhookService {
	return &WebhookService{
		DB:       db,
		Tenants:  tenants,
		Settings: settings,
		Queue:    queue,
		handlers: make(map[string]handlerEntry),
	}
}

// Register binds an event type to a handler. Critical handlers propagate
// their failure to the provider; non-critical failures are logged only.
func (s *WebhookService) Register(eventType string, critical bool, handler EventHandler) {
	s.handlers[eventType] = handlerEntry{handle: handler, critical: critical}
}

// RegisterDefaults binds every event type in DefaultWebhookEvents to the
// queue handoff handler.
func (s *WebhookService) RegisterDefaults() {
	for _, eventType := range DefaultWebhookEvents {
		s.Register(eventType, false, s.enqueueEvent)
	}
}

type WebhookResult struct {
	Received bool `json:"received"`
}

// Process runs the verification pipeline over the exact bytes as transmitted.
// Re-serializing parsed JSON before verification would break signatures, so
// payload must be the raw request body.
func (s *WebhookService) Process(subdomain string, payload []byte, sigHeader string) (*WebhookResult, error) {
	tenant, err := s.Tenants.FindBySubdomain(subdomain)
	if err != nil {
		return nil, err
	}

	cred, err := s.Settings.Load(tenant.ID)
	if err != nil {
		return nil, err
	}
	if cred.WebhookSecret == "" {
		return nil, ErrWebhookSecretMissing
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, cred.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.logWebhook(tenant.ID, "Invalid signature", err.Error(), 0, "")
		return nil, fmt.Errorf("%w: %v", ErrSignatureVerification, err)
	}

	entry, ok := s.handlers[string(event.Type)]
	if !ok {
		// Providers add event types over time; an unrecognized type must not
		// start failing delivery.
		log.Printf("Unhandled webhook event type %s for tenant %d", event.Type, tenant.ID)
		s.logWebhook(tenant.ID, "Unhandled event type: "+string(event.Type), nil, 1, event.ID)
		return &WebhookResult{Received: true}, nil
	}

	s.recordEvent(tenant.ID, &event, payload)

	if err := entry.handle(tenant.ID, &event); err != nil {
		s.logWebhook(tenant.ID, "Handler failed for "+string(event.Type), err.Error(), 0, event.ID)
		if entry.critical {
			return nil, err
		}
		log.Printf("Webhook handler for %s failed (acked anyway): %v", event.Type, err)
	} else {
		s.logWebhook(tenant.ID, "Event dispatched", nil, 1, event.ID)
	}

	return &WebhookResult{Received: true}, nil
}

// enqueueEvent is the default handler: hand the event to the worker so the
// HTTP response stays prompt.
func (s *WebhookService) enqueueEvent(tenantId uint, event *stripe.Event) error {
	if s.Queue == nil {
		return nil
	}
	data, err := json.Marshal(PaymentEventPayload{
		EventId:   event.ID,
		TenantId:  tenantId,
		EventType: string(event.Type),
	})
	if err != nil {
		return err
	}
	_, err = s.Queue.Enqueue(asynq.NewTask(TypePaymentEvent, data))
	return err
}

// recordEvent persists the verified event exactly once per provider event id.
func (s *WebhookService) recordEvent(tenantId uint, event *stripe.Event, payload []byte) {
	record := models.PaymentEvent{
		EventId:   event.ID,
		TenantId:  tenantId,
		EventType: string(event.Type),
		Payload:   string(payload),
	}
	if err := s.DB.Where("event_id = ?", event.ID).FirstOrCreate(&record).Error; err != nil {
		log.Printf("Failed to record payment event %s: %v", event.ID, err)
	}
}

func (s *WebhookService) logWebhook(tenantId uint, request string, response interface{}, status int, eventId string) {
	respBytes, _ := json.Marshal(response)
	entry := models.WebhookLog{
		TenantId:    tenantId,
		Request:     request,
		Response:    string(respBytes),
		Status:      status,
		RequestType: "Webhook",
		EventId:     eventId,
		Provider:    "stripe",
	}
	s.DB.Create(&entry)
}
