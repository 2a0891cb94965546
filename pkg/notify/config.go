package notify

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds the webhook client settings. One automation-service base
// URL serves every bot; per-bot routes derive from the bot slug.
type Config struct {
	WebhookBase string
	Timeout     time.Duration

	// Outbound pacing, to avoid hammering the automation service when a
	// thread fans out.
	RatePerSecond float64
	Burst         int

	Logger *logrus.Logger
}

func NewConfig(logger *logrus.Logger) (*Config, error) {
	rate, _ := strconv.ParseFloat(getEnvOrDefault("BOT_WEBHOOK_RATE", "5"), 64)
	burst, _ := strconv.Atoi(getEnvOrDefault("BOT_WEBHOOK_BURST", "10"))
	timeoutSecs, _ := strconv.Atoi(getEnvOrDefault("BOT_WEBHOOK_TIMEOUT", "15"))

	cfg := &Config{
		WebhookBase:   getEnvOrDefault("BOT_WEBHOOK_BASE", "https://neveleren.app.n8n.cloud/webhook"),
		Timeout:       time.Duration(timeoutSecs) * time.Second,
		RatePerSecond: rate,
		Burst:         burst,
		Logger:        logger,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.WebhookBase == "" {
		return fmt.Errorf("webhook base URL is required")
	}
	if c.RatePerSecond <= 0 {
		return fmt.Errorf("webhook rate must be positive")
	}
	if c.Burst < 1 {
		return fmt.Errorf("webhook burst must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
