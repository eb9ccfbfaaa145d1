package config

import (
	"errors"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	Host      string `env:"HOST,default=0.0.0.0"`
	Port      int    `env:"PORT,default=8080"`
	DBPath    string `env:"DB_PATH,default=goboard.db"`
	AppSecret string `env:"APP_SECRET"`

	// Empty admits any origin (local development); deployments set the
	// frontend origin here.
	AllowedOrigin string `env:"ALLOWED_ORIGIN"`

	// WebSocket channel limits.
	MaxFrameBytes  int64         `env:"MAX_FRAME_BYTES,default=32768"`
	SendQueueDepth int           `env:"SEND_QUEUE_DEPTH,default=256"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT,default=10s"`
}

func Load() (*Config, error) {
	// Missing .env is fine, real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, err
	}

	if cfg.AppSecret == "" {
		return nil, errors.New("APP_SECRET must be set")
	}

	return &cfg, nil
}
