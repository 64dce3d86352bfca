package consumers

import (
	"testing"

	"payments-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PaymentEvent{}, &models.WebhookLog{}))
	return db
}

func TestProcessPaymentEvent(t *testing.T) {
	db := setupTestDB(t)
	processor := NewEventProcessor(db)

	require.NoError(t, db.Create(&models.PaymentEvent{
		EventId:   "evt_1",
		TenantId:  1,
		EventType: "payment_intent.succeeded",
		Payload:   `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_42"}}}`,
	}).Error)

	err := processor.ProcessPaymentEvent(PaymentEventDTO{
		EventId:   "evt_1",
		TenantId:  1,
		EventType: "payment_intent.succeeded",
	})
	require.NoError(t, err)

	var event models.PaymentEvent
	require.NoError(t, db.Where("event_id = ?", "evt_1").First(&event).Error)
	assert.Equal(t, 1, event.Status)
	assert.Equal(t, "Payment completed (pi_42)", event.Comment)

	var logEntry models.WebhookLog
	require.NoError(t, db.Where("event_id = ?", "evt_1").First(&logEntry).Error)
	assert.Equal(t, "Task", logEntry.RequestType)
}

func TestProcessPaymentEventIdempotent(t *testing.T) {
	db := setupTestDB(t)
	processor := NewEventProcessor(db)

	require.NoError(t, db.Create(&models.PaymentEvent{
		EventId:   "evt_2",
		TenantId:  1,
		EventType: "charge.failed",
		Payload:   `{"data":{"object":{"id":"ch_7"}}}`,
	}).Error)

	dto := PaymentEventDTO{EventId: "evt_2", TenantId: 1, EventType: "charge.failed"}
	require.NoError(t, processor.ProcessPaymentEvent(dto))
	require.NoError(t, processor.ProcessPaymentEvent(dto))

	// second run is a no-op, only one log entry written
	var count int64
	db.Model(&models.WebhookLog{}).Where("event_id = ?", "evt_2").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestProcessPaymentEventMissingRecord(t *testing.T) {
	db := setupTestDB(t)
	processor := NewEventProcessor(db)

	// unknown events are skipped, not retried forever
	err := processor.ProcessPaymentEvent(PaymentEventDTO{EventId: "evt_ghost", TenantId: 1, EventType: "charge.succeeded"})
	assert.NoError(t, err)
}
