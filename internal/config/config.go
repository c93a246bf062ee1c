package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	InstanceID  string `env:"INSTANCE_ID"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`

	HistoryWindow         int `env:"HISTORY_WINDOW" envDefault:"50"`
	HistoryTTLSeconds     int `env:"HISTORY_TTL_SECONDS" envDefault:"600"`
	LoadTimeoutSeconds    int `env:"LOAD_TIMEOUT_SECONDS" envDefault:"10"`
	LoginGraceSeconds     int `env:"LOGIN_GRACE_SECONDS" envDefault:"10"`
	SessionIdleMinutes    int `env:"SESSION_IDLE_MINUTES" envDefault:"30"`
	AutoReplyThreshold    int `env:"AUTO_REPLY_THRESHOLD" envDefault:"0"`
	ActionRateLimitPerMin int `env:"ACTION_RATE_LIMIT_PER_MIN" envDefault:"120"`

	AINames   []string `env:"AI_NAMES" envSeparator:"," envDefault:"assistant"`
	AIBaseURL string   `env:"AI_BASE_URL" envDefault:""`
	AIModel   string   `env:"AI_MODEL" envDefault:""`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) HistoryTTL() time.Duration {
	return time.Duration(c.HistoryTTLSeconds) * time.Second
}

func (c *Config) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutSeconds) * time.Second
}

func (c *Config) LoginGrace() time.Duration {
	return time.Duration(c.LoginGraceSeconds) * time.Second
}

func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("HISTORY_WINDOW must be positive")
	}

	if isProduction {
		if err := validateSecret("JWT_SECRET", c.JWTSecret); err != nil {
			return err
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
