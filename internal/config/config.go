package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port             string
	DBConn           string
	LogLevel         string
	AnnualRate       decimal.Decimal
	PenaltySurcharge decimal.Decimal
	RateFeedURL      string
	SMTPHost         string
	SMTPPort         string
	SMTPUsername     string
	SMTPPassword     string
	SenderEmail      string
	ReminderDays     int
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBConn:       getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=bank sslmode=disable"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		RateFeedURL:  getEnv("RATE_FEED_URL", "https://api.bancentral.gov.do/estadisticas/tasas-interes"),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "no-reply@real-bank.do"),
		ReminderDays: 7,
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}

	rate, err := decimal.NewFromString(getEnv("ANNUAL_RATE", "0.05"))
	if err != nil {
		return nil, fmt.Errorf("ANNUAL_RATE must be a decimal ratio: %w", err)
	}
	cfg.AnnualRate = rate

	surcharge, err := decimal.NewFromString(getEnv("PENALTY_SURCHARGE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("PENALTY_SURCHARGE must be a decimal amount: %w", err)
	}
	cfg.PenaltySurcharge = surcharge

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
