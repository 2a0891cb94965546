package wireconfig

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the application-level configuration, parsed from the
// environment. Database and webhook client settings live with their
// packages.
type Config struct {
	Port            int           `env:"WIRE_PORT" envDefault:"8080"`
	BaseURL         string        `env:"WIRE_BASE_URL" envDefault:"http://localhost:8080"`
	Environment     string        `env:"WIRE_ENV" envDefault:"development"`
	Creator         string        `env:"WIRE_CREATOR" envDefault:"lamienq"`
	RoutineSecret   string        `env:"BOT_ROUTINE_SECRET" envDefault:"wire-daily-routine"`
	ServiceSecret   string        `env:"WIRE_API_SECRET"`
	RoutineInterval time.Duration `env:"WIRE_ROUTINE_INTERVAL" envDefault:"24h"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment config: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the routine secret check is enforced.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
