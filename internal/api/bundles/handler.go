package bundles

import (
	"fmt"
	"net/http"
	"time"

	"billsponsor-app/config"
	"billsponsor-app/database"
	"billsponsor-app/internal/domain/bills"
	"billsponsor-app/internal/domain/bundles"
	"billsponsor-app/internal/domain/notifications"
	"billsponsor-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

const linkTTL = 30 * 24 * time.Hour

type createBundleInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	BillIDs     []uint `json:"bill_ids" binding:"required,min=1"`
}

// CreateBundle groups bills into a shareable bundle. The total amount
// and the merchant bank details are snapshotted here; later edits to a
// bill or a merchant profile never change what an in-flight bundle owes
// or where settlement pays out.
func CreateBundle(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var input createBundleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid bundle fields"})
		return
	}

	var ownedBills []bills.Bill
	if err := database.DB.Where("id IN ?", input.BillIDs).Find(&ownedBills).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bills"})
		return
	}
	if len(ownedBills) != len(input.BillIDs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "One or more bills do not exist"})
		return
	}

	var total float64
	details := make([]bundles.MerchantDetail, 0, len(ownedBills))
	for _, bill := range ownedBills {
		if bill.OwnerID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("Bill %d does not belong to you", bill.ID)})
			return
		}
		if bill.MerchantAccountNumber == "" || bill.MerchantBankCode == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Bill %d is missing merchant bank details", bill.ID)})
			return
		}
		total += bill.Amount
		details = append(details, bundles.MerchantDetail{
			BillID:        bill.ID,
			AccountName:   bill.MerchantAccountName,
			AccountNumber: bill.MerchantAccountNumber,
			BankCode:      bill.MerchantBankCode,
			Amount:        bill.Amount,
			Category:      string(bill.Category),
		})
	}

	bundle := bundles.BillBundle{
		Title:           input.Title,
		Description:     input.Description,
		OwnerID:         userID,
		Bills:           ownedBills,
		MerchantDetails: details,
		TotalAmount:     total,
		Status:          bundles.StatusPending,
		ShareableLink:   bundles.NewLinkToken(),
		LinkExpiresAt:   time.Now().UTC().Add(linkTTL),
	}
	if err := database.DB.Create(&bundle).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create bundle"})
		return
	}

	c.JSON(http.StatusCreated, bundle)
}

func GetBundle(c *gin.Context) {
	var bundle bundles.BillBundle
	err := database.DB.
		Preload("Bills").
		Preload("Sponsors").
		Preload("MerchantDetails").
		Where("id = ?", c.Param("id")).
		First(&bundle).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bundle not found"})
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// GetBundleByLink resolves a shareable link token. Sponsors land here
// without auth; an expired link is a 410, not a 404.
func GetBundleByLink(c *gin.Context) {
	var bundle bundles.BillBundle
	err := database.DB.
		Preload("Bills").
		Where("shareable_link = ?", c.Param("token")).
		First(&bundle).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bundle not found"})
		return
	}
	if bundle.LinkExpired(time.Now().UTC()) {
		c.JSON(http.StatusGone, gin.H{"error": "This bundle link has expired"})
		return
	}
	c.JSON(http.StatusOK, bundle)
}

type shareInput struct {
	SponsorEmail string `json:"sponsor_email" binding:"required,email"`
}

func ShareWithSponsor(c *gin.Context) {
	userID := c.GetUint("user_id")

	var input shareInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sponsor_email is required"})
		return
	}

	var bundle bundles.BillBundle
	if err := database.DB.Preload("Sponsors").Where("id = ?", c.Param("id")).First(&bundle).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bundle not found"})
		return
	}
	if bundle.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can share this bundle"})
		return
	}

	var sponsor users.User
	if err := database.DB.Where("email = ?", input.SponsorEmail).First(&sponsor).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sponsor not found"})
		return
	}
	if bundle.HasSponsor(sponsor.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "Sponsor already added to this bundle"})
		return
	}

	entry := bundles.Sponsor{
		BundleID: bundle.ID,
		UserID:   sponsor.ID,
		Status:   bundles.SponsorPending,
	}
	if err := database.DB.Create(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add sponsor"})
		return
	}

	link := fmt.Sprintf("%s/bundles/%s", config.FRONTEND_URL, bundle.ShareableLink)
	go func() {
		if err := notifications.SendBundleLinkEmail(sponsor.Email, bundle.Title, link, sponsor.FirstName); err != nil {
			fmt.Println("⚠️ failed to send bundle invite email:", err)
		}
	}()

	c.JSON(http.StatusOK, gin.H{"status": "shared", "sponsor_id": sponsor.ID})
}
