package openai

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

type Config struct {
	APIKey      string
	Logger      *logrus.Logger
	Temperature float64
	MaxTokens   int
	Model       string
}

// NewConfig reads OpenAI settings from the environment. An empty API key
// is not an error here; callers check Enabled and skip the client.
func NewConfig(logger *logrus.Logger) *Config {
	return &Config{
		APIKey:      os.Getenv("OPENAI_API_KEY"),
		Model:       os.Getenv("OPENAI_MODEL"),
		Temperature: 0.7,
		MaxTokens:   500,
		Logger:      logger,
	}
}

// Enabled reports whether an API key was configured.
func (c *Config) Enabled() bool {
	return c.APIKey != ""
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 500
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	return nil
}
