package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the service reads from the environment.
type Config struct {
	ServerPort string

	// DatabaseDSN empty means the in-memory stores are used instead of
	// Postgres (useful for local runs without a database).
	DatabaseDSN string

	AsaasBaseURL       string
	AsaasAPIToken      string
	PaymentDescription string
	SplitWalletID      string
	SplitFixedValue    float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		ServerPort:         getEnv("SERVER_PORT", "8081"),
		DatabaseDSN:        getEnv("DATABASE_DSN", ""),
		AsaasBaseURL:       getEnv("ASAAS_BASE_URL", "https://api.asaas.com"),
		AsaasAPIToken:      getEnv("ASAAS_API_TOKEN", ""),
		PaymentDescription: getEnv("PAYMENT_DESCRIPTION", "Grupo Sollution - Consultoria"),
		SplitWalletID:      getEnv("SPLIT_WALLET_ID", "48548710-9baa-4ec1-a11f-9010193527c6"),
		SplitFixedValue:    getEnvFloat("SPLIT_FIXED_VALUE", 300),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("invalid float for %s, using default: %v", key, err)
		return defaultValue
	}
	return f
}
