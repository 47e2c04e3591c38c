package env

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// LoadEnvironmentVariables loads the .env file or crashes the program with an error
func LoadEnvironmentVariables() {
	if err := godotenv.Load(".env"); err != nil {
		fmt.Fprintf(os.Stderr, ".env error: %s\n", err)
		os.Exit(1)
	}
}

// Get returns an environment variable, or the fallback when it is unset or empty.
func Get(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

// InitialCash is the cash balance given to newly registered users.
func InitialCash() (decimal.Decimal, error) {
	cash, err := decimal.NewFromString(Get("INITIAL_CASH", "10000.00"))

	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid INITIAL_CASH: %w", err)
	}

	if cash.IsNegative() {
		return decimal.Zero, fmt.Errorf("INITIAL_CASH must not be negative")
	}

	return cash, nil
}
