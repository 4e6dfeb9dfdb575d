package main

import (
	"context"
	"log"
	"os"
	"time"

	"billsponsor-app/config"
	"billsponsor-app/database"
	paymentsapi "billsponsor-app/internal/api/payments"
	"billsponsor-app/internal/api/paystackwebhook"
	relationshipsapi "billsponsor-app/internal/api/relationships"
	transfersapi "billsponsor-app/internal/api/transfers"
	routes "billsponsor-app/internal/app/http"
	"billsponsor-app/internal/domain/funding"
	"billsponsor-app/internal/domain/ledger"
	"billsponsor-app/internal/domain/notifications"
	"billsponsor-app/internal/domain/settlement"
	"billsponsor-app/internal/domain/webhooks"
	"billsponsor-app/internal/infra/paystack"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadEnv()
	database.InitDB()

	client := paystack.NewClient(config.PAYSTACK_SECRET_KEY, config.PAYSTACK_BASE_URL)
	notifier := notifications.NewNotifier(database.DB)

	contributionLedger := ledger.New(database.NewContributionStore(database.DB))
	dispatcher := settlement.NewDispatcher(
		client,
		database.NewRecipientStore(database.DB),
		config.PAYSTACK_SOURCE,
		config.CURRENCY,
	)
	tracker := funding.NewTracker(database.NewBundleStore(database.DB), dispatcher, notifier)
	processor := webhooks.NewProcessor(
		config.PAYSTACK_SECRET_KEY,
		database.NewPaymentStore(database.DB),
		tracker,
		contributionLedger,
		notifier,
	)

	// Expire lapsed, under-funded bundles once an hour.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if n, err := tracker.ExpireStale(ctx, time.Now().UTC()); err != nil {
				log.Println("⚠️ expiry sweep failed:", err)
			} else if n > 0 {
				log.Printf("ℹ️ expiry sweep closed %d bundles", n)
			}
			cancel()
		}
	}()

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("CORS_ORIGIN")},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, &routes.Handlers{
		Webhook:       paystackwebhook.NewHandler(processor),
		Payments:      paymentsapi.NewHandler(client, processor, database.NewTargetStore(database.DB)),
		Relationships: relationshipsapi.NewHandler(contributionLedger, client),
		Transfers:     transfersapi.NewHandler(dispatcher),
	})

	r.Run(":" + config.PORT)
}
