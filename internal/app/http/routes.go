package routes

import (
	authapi "billsponsor-app/internal/api/auth"
	billsapi "billsponsor-app/internal/api/bills"
	bundlesapi "billsponsor-app/internal/api/bundles"
	paymentsapi "billsponsor-app/internal/api/payments"
	"billsponsor-app/internal/api/paystackwebhook"
	relationshipsapi "billsponsor-app/internal/api/relationships"
	transfersapi "billsponsor-app/internal/api/transfers"
	"billsponsor-app/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers collects the wired API handlers main builds at startup.
type Handlers struct {
	Webhook       *paystackwebhook.Handler
	Payments      *paymentsapi.Handler
	Relationships *relationshipsapi.Handler
	Transfers     *transfersapi.Handler
}

func RegisterRoutes(r *gin.Engine, h *Handlers) {
	// The webhook stays outside the sanitizer: its signature covers the
	// raw body.
	r.POST("/webhook/paystack", h.Webhook.Handle)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Sponsors open share links without an account.
	r.GET("/bundles/link/:token", bundlesapi.GetBundleByLink)

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())
	public.POST("/register", authapi.Register)
	public.POST("/login", authapi.Login)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware())

	auth.POST("/bills", billsapi.CreateBill)
	auth.GET("/bills", billsapi.ListBills)
	auth.GET("/bills/:id", billsapi.GetBill)
	auth.PUT("/bills/:id", billsapi.UpdateBill)
	auth.DELETE("/bills/:id", billsapi.DeleteBill)

	auth.POST("/bundles", bundlesapi.CreateBundle)
	auth.GET("/bundles/:id", bundlesapi.GetBundle)
	auth.POST("/bundles/:id/share", bundlesapi.ShareWithSponsor)

	auth.POST("/payments/initialize", h.Payments.InitializePayment)
	auth.GET("/payments/verify", h.Payments.VerifyPayment)
	auth.GET("/payments", h.Payments.GetPaymentHistory)

	auth.POST("/relationships", h.Relationships.CreateRelationship)
	auth.GET("/relationships", h.Relationships.ListRelationships)
	auth.GET("/relationships/:id", h.Relationships.GetRelationship)
	auth.POST("/relationships/:id/respond", h.Relationships.RespondToRelationship)
	auth.DELETE("/relationships/:id", h.Relationships.DeleteRelationship)

	auth.PUT("/relationships/:id/spending-control", h.Relationships.UpsertSpendingControl)
	auth.GET("/relationships/:id/spending-control", h.Relationships.GetSpendingControl)
	auth.POST("/relationships/:id/check-limits", h.Relationships.CheckSpendingLimits)

	auth.POST("/relationships/:id/contribute", h.Relationships.Contribute)
	auth.GET("/relationships/:id/contributions", h.Relationships.ListContributions)
	auth.GET("/relationships/:id/contributions/stats", h.Relationships.ContributionStats)
	auth.POST("/contributions/:contributionId/thank", h.Relationships.ThankContribution)

	// Operator routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole("admin"))
	admin.POST("/bundles/:id/disburse", h.Transfers.RetryDisbursement)
	admin.GET("/bundles/:id/recipients", h.Transfers.ListRecipients)
}
