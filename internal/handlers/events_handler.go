package handlers

import (
	"net/http"
	"strconv"

	"payments-service/internal/models"
	"payments-service/pkg/common"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// EventsHandler exposes the received-event audit trail for diagnostics.
type EventsHandler struct {
	DB *gorm.DB
}

func NewEventsHandler(db *gorm.DB) *EventsHandler {
	return &EventsHandler{DB: db}
}

func (h *EventsHandler) List(c *gin.Context) {
	tenantId, ok := tenantIdFrom(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := func(db *gorm.DB) *gorm.DB {
		q := db.Where("tenant_id = ?", tenantId)
		if eventType := c.Query("type"); eventType != "" {
			q = q.Where("event_type = ?", eventType)
		}
		return q
	}

	var total int64
	if err := filter(h.DB.Model(&models.PaymentEvent{})).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count events"})
		return
	}

	var events []models.PaymentEvent
	if err := filter(h.DB).Order("created_at desc").Offset((page - 1) * limit).Limit(limit).Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
		return
	}

	c.JSON(http.StatusOK, common.PaginateResponse(events, total, page, limit, ""))
}
