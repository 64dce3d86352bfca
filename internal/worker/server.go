package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"payments-service/internal/consumers"

	"github.com/hibiken/asynq"
)

type Worker struct {
	Processor *consumers.EventProcessor
}

func NewWorker(processor *consumers.EventProcessor) *Worker {
	return &Worker{
		Processor: processor,
	}
}

func (w *Worker) HandlePaymentEvent(ctx context.Context, t *asynq.Task) error {
	var p consumers.PaymentEventDTO
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	return w.Processor.ProcessPaymentEvent(p)
}

func StartWorker(redisOpt asynq.RedisClientOpt, processor *consumers.EventProcessor) {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	worker := NewWorker(processor)
	mux := asynq.NewServeMux()

	mux.HandleFunc(TypePaymentEvent, worker.HandlePaymentEvent)

	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}
