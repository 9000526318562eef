// config/policy.go
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/tripledger/travel_backend/models"
)

// DefaultFinancePolicy builds the fallback finance policy from environment
// variables. It is used until an admin saves a finance_policy document in
// the settings collection.
func DefaultFinancePolicy() models.FinancePolicy {
	return models.FinancePolicy{
		DefaultCommissionRate: envFloat("DEFAULT_COMMISSION_RATE", 10.0),
		MinCommissionRate:     envFloat("MIN_COMMISSION_RATE", 0.0),
		MaxCommissionRate:     envFloat("MAX_COMMISSION_RATE", 50.0),
		DefaultPaymentTerms:   envInt("DEFAULT_PAYMENT_TERMS_DAYS", 30),
		ServiceFeeMode:        envString("CANCELLATION_FEE_MODE", models.ServiceFeeModeFlat),
		ServiceFeeValue:       envFloat("CANCELLATION_FEE_VALUE", 0.0),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Warning: invalid %s value %q, using %.2f", key, raw, fallback)
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value %q, using %d", key, raw, fallback)
		return fallback
	}
	return v
}
