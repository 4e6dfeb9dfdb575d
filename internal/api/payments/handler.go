package payments

import (
	"net/http"
	"time"

	"billsponsor-app/database"
	"billsponsor-app/internal/domain/apperr"
	"billsponsor-app/internal/domain/payments"
	"billsponsor-app/internal/domain/users"
	"billsponsor-app/internal/domain/webhooks"
	"billsponsor-app/internal/infra/paystack"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	client    *paystack.Client
	processor *webhooks.Processor
	targets   payments.TargetStore
}

func NewHandler(client *paystack.Client, processor *webhooks.Processor, targets payments.TargetStore) *Handler {
	return &Handler{client: client, processor: processor, targets: targets}
}

type initializeInput struct {
	Amount   float64 `json:"amount" binding:"required,gt=0"`
	BillID   *uint   `json:"bill_id"`
	BundleID *uint   `json:"bundle_id"`
}

// InitializePayment creates the pending Payment row and hands the payer
// a provider redirect URL. The payment stays pending until the webhook
// (or verify) finalizes it.
func (h *Handler) InitializePayment(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var input initializeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid payment fields"})
		return
	}
	if (input.BillID == nil) == (input.BundleID == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide exactly one of bill_id or bundle_id"})
		return
	}

	var payer users.User
	if err := database.DB.Where("id = ?", userID).First(&payer).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	var target payments.Target
	if input.BillID != nil {
		target = payments.BillTarget(*input.BillID)
	} else {
		target = payments.BundleTarget(*input.BundleID)
	}

	// A charge against a target that doesn't exist would finalize into a
	// payment whose side effects can never apply.
	if err := payments.CheckTarget(c.Request.Context(), h.targets, target); err != nil {
		if apperr.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate payment target"})
		return
	}

	payment, err := payments.NewPayment(userID, input.Amount, target, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := database.DB.Create(payment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment"})
		return
	}

	metadata := map[string]interface{}{
		"user_id":   userID,
		"reference": payment.Reference,
	}
	if input.BillID != nil {
		metadata["bill_id"] = *input.BillID
	}
	if input.BundleID != nil {
		metadata["bundle_id"] = *input.BundleID
	}

	result, err := h.client.InitializeTransaction(c.Request.Context(), payer.Email, input.Amount, payment.Reference, metadata)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to initialize transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reference":         payment.Reference,
		"authorization_url": result.AuthorizationURL,
	})
}

// VerifyPayment pulls the provider's view of a charge and applies it
// through the same idempotent path the webhook uses; a charge already
// finalized by the webhook is a no-op here.
func (h *Handler) VerifyPayment(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference is required"})
		return
	}

	result, err := h.client.VerifyTransaction(c.Request.Context(), reference)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to verify transaction"})
		return
	}

	if result.Status == "success" {
		var paidAt *time.Time
		if t, err := time.Parse(time.RFC3339, result.PaidAt); err == nil {
			paidAt = &t
		}
		if err := h.processor.ConfirmCharge(c.Request.Context(), reference, result.Channel, paidAt); err != nil {
			if apperr.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply verified payment"})
			return
		}
	}

	var payment payments.Payment
	if err := database.DB.Where("reference = ?", reference).First(&payment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": payment.Status, "payment": payment, "provider_status": result.Status})
}

// GetPaymentHistory lists the caller's payments, newest first.
func (h *Handler) GetPaymentHistory(c *gin.Context) {
	userID := c.GetUint("user_id")
	var history []payments.Payment
	if err := database.DB.Where("payer_id = ?", userID).Order("created_at DESC").Find(&history).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}
	c.JSON(http.StatusOK, history)
}
