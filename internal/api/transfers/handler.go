package transfers

import (
	"errors"
	"net/http"

	"billsponsor-app/database"
	"billsponsor-app/internal/domain/apperr"
	"billsponsor-app/internal/domain/bundles"
	"billsponsor-app/internal/domain/payments"
	"billsponsor-app/internal/domain/settlement"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	dispatcher *settlement.Dispatcher
}

func NewHandler(dispatcher *settlement.Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

// RetryDisbursement is the operator path for a bundle whose automatic
// settlement batch failed. It refuses to run unless the bundle is
// fully-funded, and refuses when a previous batch already went out
// (pending or successful recipients exist), so a retry can never
// double-pay merchants.
func (h *Handler) RetryDisbursement(c *gin.Context) {
	var bundle bundles.BillBundle
	err := database.DB.
		Preload("MerchantDetails").
		Where("id = ?", c.Param("id")).
		First(&bundle).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bundle not found"})
		return
	}
	if bundle.Status != bundles.StatusFullyFunded {
		c.JSON(http.StatusConflict, gin.H{"error": "Bundle is not fully funded"})
		return
	}

	var inFlight int64
	database.DB.Model(&payments.TransferRecipient{}).
		Where("bundle_id = ? AND status IN ?", bundle.ID,
			[]payments.RecipientStatus{payments.RecipientPending, payments.RecipientSuccess}).
		Count(&inFlight)
	if inFlight > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "A disbursement batch is already in flight for this bundle"})
		return
	}

	result, err := h.dispatcher.DispatchWithResult(c.Request.Context(), &bundle)
	if err != nil {
		var submission *apperr.DisbursementSubmissionError
		if errors.As(err, &submission) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Transfer batch submission failed"})
			return
		}
		if apperr.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to dispatch disbursement"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListRecipients shows the payout lines and their outcomes for a bundle.
func (h *Handler) ListRecipients(c *gin.Context) {
	var recipients []payments.TransferRecipient
	if err := database.DB.Where("bundle_id = ?", c.Param("id")).Find(&recipients).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list recipients"})
		return
	}
	c.JSON(http.StatusOK, recipients)
}
