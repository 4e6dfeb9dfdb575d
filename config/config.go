package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	PORT       string
	DB_URL     string
	JWT_SECRET string

	PAYSTACK_SECRET_KEY string
	PAYSTACK_BASE_URL   string
	PAYSTACK_SOURCE     string
	CURRENCY            string

	FRONTEND_URL string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")

	PAYSTACK_SECRET_KEY = mustEnv("PAYSTACK_SECRET_KEY")
	PAYSTACK_BASE_URL = getEnv("PAYSTACK_BASE_URL", "")
	PAYSTACK_SOURCE = getEnv("PAYSTACK_SOURCE", "balance")
	CURRENCY = getEnv("CURRENCY", "NGN")

	FRONTEND_URL = getEnv("FRONTEND_URL", "http://localhost:5173")
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
