package database

import (
	"fmt"
	"log"
	"os"

	"billsponsor-app/internal/domain/bills"
	"billsponsor-app/internal/domain/bundles"
	"billsponsor-app/internal/domain/notifications"
	"billsponsor-app/internal/domain/payments"
	"billsponsor-app/internal/domain/relationships"
	"billsponsor-app/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("❌ DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("❌ Failed to connect to database:", err)
	}

	DB = db

	if err := DB.AutoMigrate(
		// core
		&users.User{},
		&bills.Bill{},
		&bundles.BillBundle{},
		&bundles.Sponsor{},
		&bundles.MerchantDetail{},

		// money movement
		&payments.Payment{},
		&payments.TransferRecipient{},

		// sponsorship
		&relationships.Relationship{},
		&relationships.SpendingControl{},
		&relationships.Contribution{},

		// notifications
		&notifications.Notification{},
	); err != nil {
		log.Fatal("❌ AutoMigrate error:", err)
	}

	fmt.Println("✅ Connected and migrated successfully")
}
