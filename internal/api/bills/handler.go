package bills

import (
	"net/http"
	"time"

	"billsponsor-app/database"
	"billsponsor-app/internal/domain/bills"

	"github.com/gin-gonic/gin"
)

type createBillInput struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	DueDate     string  `json:"due_date" binding:"required"`
	Category    string  `json:"category" binding:"required"`

	MerchantAccountName   string `json:"merchant_account_name" binding:"required"`
	MerchantAccountNumber string `json:"merchant_account_number" binding:"required"`
	MerchantBankCode      string `json:"merchant_bank_code" binding:"required"`
}

func CreateBill(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var input createBillInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid bill fields"})
		return
	}
	if !bills.ValidCategory(bills.BillCategory(input.Category)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	}
	dueDate, err := time.Parse("2006-01-02", input.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "due_date must be YYYY-MM-DD"})
		return
	}

	bill := bills.Bill{
		OwnerID:               userID,
		Title:                 input.Title,
		Description:           input.Description,
		Amount:                input.Amount,
		DueDate:               dueDate,
		Status:                bills.BillStatusPending,
		Category:              bills.BillCategory(input.Category),
		MerchantAccountName:   input.MerchantAccountName,
		MerchantAccountNumber: input.MerchantAccountNumber,
		MerchantBankCode:      input.MerchantBankCode,
	}
	if err := database.DB.Create(&bill).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create bill"})
		return
	}

	c.JSON(http.StatusCreated, bill)
}

func GetBill(c *gin.Context) {
	var bill bills.Bill
	if err := database.DB.Where("id = ?", c.Param("id")).First(&bill).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bill not found"})
		return
	}
	c.JSON(http.StatusOK, bill)
}

func ListBills(c *gin.Context) {
	userID := c.GetUint("user_id")
	var results []bills.Bill
	if err := database.DB.Where("owner_id = ?", userID).Order("due_date ASC").Find(&results).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list bills"})
		return
	}
	c.JSON(http.StatusOK, results)
}

type updateBillInput struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Amount      *float64 `json:"amount"`
	DueDate     *string  `json:"due_date"`
}

func UpdateBill(c *gin.Context) {
	userID := c.GetUint("user_id")

	var bill bills.Bill
	if err := database.DB.Where("id = ?", c.Param("id")).First(&bill).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bill not found"})
		return
	}
	if bill.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can update this bill"})
		return
	}
	if bill.Terminal() {
		c.JSON(http.StatusConflict, gin.H{"error": "A paid bill cannot be modified"})
		return
	}

	var input updateBillInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bill payload"})
		return
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Amount != nil {
		if *input.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be greater than zero"})
			return
		}
		updates["amount"] = *input.Amount
	}
	if input.DueDate != nil {
		dueDate, err := time.Parse("2006-01-02", *input.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "due_date must be YYYY-MM-DD"})
			return
		}
		updates["due_date"] = dueDate
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&bill).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update bill"})
			return
		}
	}

	c.JSON(http.StatusOK, bill)
}

func DeleteBill(c *gin.Context) {
	userID := c.GetUint("user_id")

	var bill bills.Bill
	if err := database.DB.Where("id = ?", c.Param("id")).First(&bill).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bill not found"})
		return
	}
	if bill.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can delete this bill"})
		return
	}
	if bill.Terminal() {
		c.JSON(http.StatusConflict, gin.H{"error": "A paid bill cannot be deleted"})
		return
	}

	if err := database.DB.Delete(&bill).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete bill"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
