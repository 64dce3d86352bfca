package handlers

import (
	"io"
	"net/http"

	"payments-service/internal/services"

	"github.com/gin-gonic/gin"
)

const webhookBodyLimit = 1 << 20 // 1MiB

// WebhookHandler receives provider callbacks. Signature verification is the
// authentication mechanism for this endpoint; the body must reach the
// verifier untouched.
type WebhookHandler struct {
	Webhooks *services.WebhookService
}

func NewWebhookHandler(webhooks *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{Webhooks: webhooks}
}

func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	subdomain := c.Param("subdomain")

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, webhookBodyLimit)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	result, err := h.Webhooks.Process(subdomain, payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		status, message := statusFor(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, result)
}
