package consumers

import (
	"encoding/json"
	"fmt"
	"log"

	"payments-service/internal/models"

	"gorm.io/gorm"
)

// PaymentEventDTO matches the task payload enqueued by the webhook dispatcher.
type PaymentEventDTO struct {
	EventId   string `json:"eventId"`
	TenantId  uint   `json:"tenantId"`
	EventType string `json:"eventType"`
}

// EventProcessor applies verified provider events to local state. It runs on
// the worker, after the webhook response has already been acknowledged, so a
// failure here is retried by the queue, not by the provider.
type EventProcessor struct {
	DB *gorm.DB
}

func NewEventProcessor(db *gorm.DB) *EventProcessor {
	return &EventProcessor{DB: db}
}

func (p *EventProcessor) ProcessPaymentEvent(dto PaymentEventDTO) error {
	var event models.PaymentEvent
	if err := p.DB.Where("event_id = ?", dto.EventId).First(&event).Error; err != nil {
		log.Printf("Payment event %s not found, skipping: %v", dto.EventId, err)
		return nil
	}

	if event.Status == 1 {
		log.Printf("Payment event %s already processed", dto.EventId)
		return nil
	}

	comment := commentFor(dto.EventType, event.Payload)
	if err := p.DB.Model(&models.PaymentEvent{}).Where("event_id = ?", dto.EventId).Updates(map[string]interface{}{
		"status":  1,
		"comment": comment,
	}).Error; err != nil {
		return fmt.Errorf("failed to update payment event %s: %w", dto.EventId, err)
	}

	p.logProcessed(dto, comment)
	return nil
}

// commentFor summarizes the outcome recorded for each event type. The object
// id is pulled from the stored payload when present.
func commentFor(eventType, payload string) string {
	objectId := ""
	var envelope struct {
		Data struct {
			Object struct {
				ID string `json:"id"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err == nil {
		objectId = envelope.Data.Object.ID
	}

	var desc string
	switch eventType {
	case "payment_intent.succeeded":
		desc = "Payment completed"
	case "payment_intent.payment_failed":
		desc = "Payment failed"
	case "charge.succeeded":
		desc = "Charge completed"
	case "charge.failed":
		desc = "Charge failed"
	case "customer.subscription.created":
		desc = "Subscription started"
	case "customer.subscription.updated":
		desc = "Subscription updated"
	case "customer.subscription.deleted":
		desc = "Subscription cancelled"
	case "invoice.payment_succeeded":
		desc = "Invoice paid"
	case "invoice.payment_failed":
		desc = "Invoice payment failed"
	default:
		desc = "Processed"
	}

	if objectId != "" {
		return fmt.Sprintf("%s (%s)", desc, objectId)
	}
	return desc
}

func (p *EventProcessor) logProcessed(dto PaymentEventDTO, comment string) {
	entry := models.WebhookLog{
		TenantId:    dto.TenantId,
		Request:     "Worker: " + dto.EventType,
		Response:    comment,
		Status:      1,
		RequestType: "Task",
		EventId:     dto.EventId,
		Provider:    "stripe",
	}
	p.DB.Create(&entry)
}
