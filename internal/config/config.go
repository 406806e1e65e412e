package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr        string        `env:"LISTEN_ADDR" envDefault:":8080"`
	DBPath            string        `env:"DB_PATH" envDefault:"/data/db/images.db"`
	BaseURL           string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	JWTSecret         string        `env:"JWT_SECRET"`
	LinkSecret        string        `env:"LINK_SECRET"`
	MaxUploadBytes    int64         `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
	MaxPixels         int64         `env:"MAX_PIXELS" envDefault:"89478485"`
	TrustProxyHeaders bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
	Workers           int           `env:"WORKERS" envDefault:"4"`
	StepTimeout       time.Duration `env:"STEP_TIMEOUT" envDefault:"30s"`
	TiersFile         string        `env:"TIERS_FILE"`

	Storage StorageConfig `envPrefix:"STORAGE_"`
	MinIO   MinIOConfig   `envPrefix:"MINIO_"`
}

type StorageConfig struct {
	Backend string `env:"BACKEND" envDefault:"filesystem"`
	Path    string `env:"PATH" envDefault:"/data/images"`
}

type MinIOConfig struct {
	Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"images"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	if cfg.LinkSecret == "" {
		cfg.LinkSecret = cfg.JWTSecret
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
