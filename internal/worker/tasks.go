package worker

import (
	"encoding/json"

	"payments-service/internal/consumers"

	"github.com/hibiken/asynq"
)

// Task Types
const (
	TypePaymentEvent = "payment-event"
)

// Task Creators

func NewPaymentEventTask(payload consumers.PaymentEventDTO) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePaymentEvent, data), nil
}
