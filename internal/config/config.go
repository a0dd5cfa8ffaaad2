package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	ListenAddr  string `env:"VITRINE_LISTEN_ADDR" envDefault:":8080"`
	Development bool   `env:"VITRINE_DEVELOPMENT" envDefault:"false"`
	LogLevel    string `env:"VITRINE_LOG_LEVEL" envDefault:"info"`
	LogPath     string `env:"VITRINE_LOG_PATH" envDefault:"./logs/vitrine.log"`

	ViaCEPBaseURL string        `env:"VITRINE_VIACEP_BASE_URL" envDefault:"https://viacep.com.br/ws"`
	LookupTimeout time.Duration `env:"VITRINE_LOOKUP_TIMEOUT" envDefault:"10s"`

	StoreBackend   string        `env:"VITRINE_STORE_BACKEND" envDefault:"memory"`
	SelectionTTL   time.Duration `env:"VITRINE_SELECTION_TTL" envDefault:"15m"`
	RedisAddr      string        `env:"VITRINE_REDIS_ADDR"`
	RedisDB        int           `env:"VITRINE_REDIS_DB" envDefault:"0"`
	RedisPassword  string        `env:"VITRINE_REDIS_PASSWORD"`
	RedisPrefix    string        `env:"VITRINE_REDIS_PREFIX" envDefault:"vitrine:"`
	RedisRetention time.Duration `env:"VITRINE_REDIS_RETENTION" envDefault:"0"`

	AssetsDir   string `env:"VITRINE_ASSETS_DIR" envDefault:"./assets"`
	S3Endpoint  string `env:"VITRINE_S3_ENDPOINT"`
	S3Region    string `env:"VITRINE_S3_REGION" envDefault:"us-east-1"`
	S3Bucket    string `env:"VITRINE_S3_BUCKET"`
	S3Prefix    string `env:"VITRINE_S3_PREFIX" envDefault:"assets/"`
	S3AccessKey string `env:"VITRINE_S3_ACCESS_KEY"`
	S3SecretKey string `env:"VITRINE_S3_SECRET_KEY"`

	SessionCookieName    string        `env:"VITRINE_SESSION_COOKIE" envDefault:"vitrine_session"`
	SessionIdleTimeout   time.Duration `env:"VITRINE_SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	SessionSweepSchedule string        `env:"VITRINE_SESSION_SWEEP_SCHEDULE" envDefault:"@every 1m"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("VITRINE_REDIS_ADDR is required for the redis store backend")
		}
		if c.RedisRetention > 0 && c.RedisRetention <= c.SelectionTTL {
			return errors.New("VITRINE_REDIS_RETENTION must exceed VITRINE_SELECTION_TTL")
		}
	default:
		return fmt.Errorf("unknown VITRINE_STORE_BACKEND %q", c.StoreBackend)
	}
	if c.SelectionTTL <= 0 {
		return errors.New("VITRINE_SELECTION_TTL must be positive")
	}
	if c.S3Configured() && (c.S3Endpoint == "" || c.S3AccessKey == "" || c.S3SecretKey == "") {
		return errors.New("S3 endpoint/access/secret are required when VITRINE_S3_BUCKET is set")
	}
	if strings.TrimSpace(c.SessionCookieName) == "" {
		return errors.New("VITRINE_SESSION_COOKIE must not be empty")
	}
	return nil
}

// S3Configured reports whether product images are served from a bucket.
func (c Config) S3Configured() bool {
	return c.S3Bucket != ""
}
