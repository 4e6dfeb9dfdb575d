package relationships

import (
	"net/http"
	"strconv"
	"time"

	"billsponsor-app/database"
	"billsponsor-app/internal/domain/apperr"
	"billsponsor-app/internal/domain/bundles"
	"billsponsor-app/internal/domain/ledger"
	"billsponsor-app/internal/domain/payments"
	"billsponsor-app/internal/domain/relationships"
	"billsponsor-app/internal/domain/spending"
	"billsponsor-app/internal/domain/users"
	"billsponsor-app/internal/infra/paystack"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	ledger *ledger.Ledger
	client *paystack.Client
}

func NewHandler(l *ledger.Ledger, client *paystack.Client) *Handler {
	return &Handler{ledger: l, client: client}
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id64, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id64 == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return uint(id64), true
}

type createRelationshipInput struct {
	RelatedUserID uint   `json:"related_user_id" binding:"required"`
	Type          string `json:"type" binding:"required"`
	CustomType    string `json:"custom_type"`
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
}

func (h *Handler) CreateRelationship(c *gin.Context) {
	userID := c.GetUint("user_id")

	var input createRelationshipInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid relationship fields"})
		return
	}
	if input.RelatedUserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot create a relationship with yourself"})
		return
	}

	var related users.User
	if err := database.DB.Where("id = ?", input.RelatedUserID).First(&related).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Related user not found"})
		return
	}

	var existing relationships.Relationship
	err := database.DB.
		Where("creator_id = ? AND related_user_id = ?", userID, input.RelatedUserID).
		First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Relationship already exists between these users"})
		return
	}

	rel := relationships.Relationship{
		CreatorID:     userID,
		RelatedUserID: input.RelatedUserID,
		Type:          relationships.RelationshipType(input.Type),
		CustomType:    input.CustomType,
		Name:          input.Name,
		Status:        relationships.StatusPending,
		Description:   input.Description,
	}
	if err := database.DB.Create(&rel).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create relationship"})
		return
	}

	c.JSON(http.StatusCreated, rel)
}

func (h *Handler) ListRelationships(c *gin.Context) {
	userID := c.GetUint("user_id")
	var rels []relationships.Relationship
	err := database.DB.
		Where("creator_id = ? OR related_user_id = ?", userID, userID).
		Find(&rels).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list relationships"})
		return
	}
	c.JSON(http.StatusOK, rels)
}

func (h *Handler) GetRelationship(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var rel relationships.Relationship
	if err := database.DB.Where("id = ?", id).First(&rel).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Relationship not found"})
		return
	}
	c.JSON(http.StatusOK, rel)
}

type respondInput struct {
	Accept bool `json:"accept"`
}

// RespondToRelationship lets the related user accept or reject a
// pending request. Spending rules only bind once the relationship is
// active.
func (h *Handler) RespondToRelationship(c *gin.Context) {
	userID := c.GetUint("user_id")
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input respondInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	var rel relationships.Relationship
	if err := database.DB.Where("id = ?", id).First(&rel).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Relationship not found"})
		return
	}
	if rel.RelatedUserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the invited user can respond"})
		return
	}
	if rel.Status != relationships.StatusPending {
		c.JSON(http.StatusConflict, gin.H{"error": "Relationship already responded to"})
		return
	}

	next := relationships.StatusActive
	if !input.Accept {
		next = relationships.StatusRejected
	}
	if err := database.DB.Model(&rel).Update("status", next).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update relationship"})
		return
	}
	rel.Status = next
	c.JSON(http.StatusOK, rel)
}

func (h *Handler) DeleteRelationship(c *gin.Context) {
	userID := c.GetUint("user_id")
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var rel relationships.Relationship
	if err := database.DB.Where("id = ?", id).First(&rel).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Relationship not found"})
		return
	}
	if rel.CreatorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the creator can delete this relationship"})
		return
	}

	database.DB.Where("relationship_id = ?", id).Delete(&relationships.SpendingControl{})
	if err := database.DB.Delete(&rel).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete relationship"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type controlInput struct {
	DailyLimit         *float64 `json:"daily_limit"`
	WeeklyLimit        *float64 `json:"weekly_limit"`
	MonthlyLimit       *float64 `json:"monthly_limit"`
	PerRequestLimit    *float64 `json:"per_request_limit"`
	AutoApproveLimit   *float64 `json:"auto_approve_limit"`
	IsActive           *bool    `json:"is_active"`
	NotifyOnApproach   *bool    `json:"notify_on_approach"`
	ApproachPercentage *int     `json:"approach_percentage"`
}

// UpsertSpendingControl creates or updates the one control attached to
// a relationship. Creator only.
func (h *Handler) UpsertSpendingControl(c *gin.Context) {
	userID := c.GetUint("user_id")
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var rel relationships.Relationship
	if err := database.DB.Where("id = ?", id).First(&rel).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Relationship not found"})
		return
	}
	if rel.CreatorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the relationship creator can set spending controls"})
		return
	}

	var input controlInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid spending control payload"})
		return
	}
	if input.ApproachPercentage != nil && (*input.ApproachPercentage < 1 || *input.ApproachPercentage > 99) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "approach_percentage must be between 1 and 99"})
		return
	}
	for _, limit := range []*float64{input.DailyLimit, input.WeeklyLimit, input.MonthlyLimit, input.PerRequestLimit, input.AutoApproveLimit} {
		if limit != nil && *limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Limits must be greater than zero"})
			return
		}
	}

	var control relationships.SpendingControl
	err := database.DB.Where("relationship_id = ?", id).First(&control).Error
	if err != nil {
		control = relationships.SpendingControl{RelationshipID: id, IsActive: true, ApproachPercentage: 80}
	}

	if input.DailyLimit != nil {
		control.DailyLimit = input.DailyLimit
	}
	if input.WeeklyLimit != nil {
		control.WeeklyLimit = input.WeeklyLimit
	}
	if input.MonthlyLimit != nil {
		control.MonthlyLimit = input.MonthlyLimit
	}
	if input.PerRequestLimit != nil {
		control.PerRequestLimit = input.PerRequestLimit
	}
	if input.AutoApproveLimit != nil {
		control.AutoApproveLimit = input.AutoApproveLimit
	}
	if input.IsActive != nil {
		control.IsActive = *input.IsActive
	}
	if input.NotifyOnApproach != nil {
		control.NotifyOnApproach = *input.NotifyOnApproach
	}
	if input.ApproachPercentage != nil {
		control.ApproachPercentage = *input.ApproachPercentage
	}

	if err := database.DB.Save(&control).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save spending control"})
		return
	}
	c.JSON(http.StatusOK, control)
}

func (h *Handler) GetSpendingControl(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var control relationships.SpendingControl
	if err := database.DB.Where("relationship_id = ?", id).First(&control).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No spending control for this relationship"})
		return
	}
	c.JSON(http.StatusOK, control)
}

// evaluateForRelationship loads the active control and the month-to-date
// history, then runs the pure limit check.
func (h *Handler) evaluateForRelationship(c *gin.Context, relationshipID uint, amount float64) (spending.Decision, error) {
	now := time.Now().UTC()

	var control relationships.SpendingControl
	var controlRef *relationships.SpendingControl
	err := database.DB.
		Where("relationship_id = ? AND is_active = ?", relationshipID, true).
		First(&control).Error
	if err == nil {
		controlRef = &control
	}

	// Start of month covers the daily and weekly windows too.
	history, err := h.ledger.Window(c.Request.Context(), relationshipID, spending.StartOfMonth(now))
	if err != nil {
		return spending.Decision{}, err
	}

	return spending.Evaluate(controlRef, amount, history, now), nil
}

type checkInput struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// CheckSpendingLimits is the advisory pre-check a client can run before
// initiating a contribution.
func (h *Handler) CheckSpendingLimits(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input checkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}

	var rel relationships.Relationship
	if err := database.DB.Where("id = ?", id).First(&rel).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Relationship not found"})
		return
	}

	decision, err := h.evaluateForRelationship(c, id, input.Amount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check limits"})
		return
	}
	c.JSON(http.StatusOK, decision)
}

type contributeInput struct {
	Amount   float64 `json:"amount" binding:"required,gt=0"`
	BundleID uint    `json:"bundle_id" binding:"required"`
	Category string  `json:"category"`
	Message  string  `json:"message"`
}

// Contribute runs the spending-limit check and, when allowed, starts a
// charge against the bundle attributed to this relationship. The
// contribution row itself is appended when the charge succeeds. The
// check is advisory: a concurrent contribution can slip in between
// check and charge, and that window is accepted by design.
func (h *Handler) Contribute(c *gin.Context) {
	userID := c.GetUint("user_id")
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input contributeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid contribution fields"})
		return
	}

	var rel relationships.Relationship
	if err := database.DB.Where("id = ?", id).First(&rel).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Relationship not found"})
		return
	}
	if rel.CreatorID != userID && rel.RelatedUserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not part of this relationship"})
		return
	}
	if !rel.Active() {
		c.JSON(http.StatusConflict, gin.H{"error": "Relationship is not active"})
		return
	}

	decision, err := h.evaluateForRelationship(c, id, input.Amount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check limits"})
		return
	}
	if !decision.Allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": decision.Reason, "decision": decision})
		return
	}

	var bundle bundles.BillBundle
	if err := database.DB.Select("id").Where("id = ?", input.BundleID).First(&bundle).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bundle not found"})
		return
	}

	var payer users.User
	if err := database.DB.Where("id = ?", userID).First(&payer).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	relID := id
	payment, err := payments.NewPayment(userID, input.Amount, payments.BundleTarget(input.BundleID), &relID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payment.Category = input.Category
	payment.Message = input.Message
	if err := database.DB.Create(payment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment"})
		return
	}

	metadata := map[string]interface{}{
		"relationship_id": relID,
		"bundle_id":       input.BundleID,
		"category":        input.Category,
		"message":         input.Message,
	}
	result, err := h.client.InitializeTransaction(c.Request.Context(), payer.Email, input.Amount, payment.Reference, metadata)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to initialize transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reference":         payment.Reference,
		"authorization_url": result.AuthorizationURL,
		"decision":          decision,
	})
}

func (h *Handler) ListContributions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	contributions, err := h.ledger.Window(c.Request.Context(), id, time.Time{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contributions"})
		return
	}
	c.JSON(http.StatusOK, contributions)
}

func (h *Handler) ContributionStats(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	stats, err := h.ledger.StatsFor(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ThankContribution flips the thanked flag on a contribution.
func (h *Handler) ThankContribution(c *gin.Context) {
	id, ok := paramID(c, "contributionId")
	if !ok {
		return
	}
	if err := h.ledger.MarkThanked(c.Request.Context(), id); err != nil {
		if apperr.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contribution not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update contribution"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "thanked"})
}
