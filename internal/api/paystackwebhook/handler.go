package paystackwebhook

import (
	"io"
	"net/http"

	"billsponsor-app/internal/domain/apperr"
	"billsponsor-app/internal/domain/webhooks"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 65536

type Handler struct {
	processor *webhooks.Processor
}

func NewHandler(processor *webhooks.Processor) *Handler {
	return &Handler{processor: processor}
}

// Handle is the single Paystack callback endpoint. The body must reach
// the processor untouched: the signature is an HMAC-SHA512 of the raw
// bytes. Idempotent no-ops (replays, unknown event kinds) return 200 so
// the provider stops redelivering.
func (h *Handler) Handle(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	signature := c.GetHeader("x-paystack-signature")
	if err := h.processor.Handle(c.Request.Context(), payload, signature); err != nil {
		switch {
		case apperr.IsAuthentication(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		case apperr.IsValidation(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed payload"})
		default:
			// Retryable on the provider side.
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
