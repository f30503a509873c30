// Package config содержит логику чтения конфигурации кофейного магазина.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress      = "localhost:8080"
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress       string        `env:"RUN_ADDRESS"`
	DatabaseURI      string        `env:"DATABASE_URI"`
	JWTSecret        string        `env:"JWT_SECRET"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL"`
	AdminEmail       string        `env:"ADMIN_EMAIL"`
	AdminPassword    string        `env:"ADMIN_PASSWORD"`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envCfg := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.JWTSecret, "s", "", "access token signing secret")
	flag.StringVar(&cfg.JWTRefreshSecret, "rs", "", "refresh token signing secret")
	flag.DurationVar(&cfg.AccessTokenTTL, "access-ttl", defaultAccessTokenTTL, "access token lifetime")
	flag.DurationVar(&cfg.RefreshTokenTTL, "refresh-ttl", defaultRefreshTokenTTL, "refresh token lifetime")

	flag.Parse()

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.JWTSecret != "" {
		cfg.JWTSecret = envCfg.JWTSecret
	}
	if envCfg.JWTRefreshSecret != "" {
		cfg.JWTRefreshSecret = envCfg.JWTRefreshSecret
	}
	if envCfg.AccessTokenTTL > 0 {
		cfg.AccessTokenTTL = envCfg.AccessTokenTTL
	}
	if envCfg.RefreshTokenTTL > 0 {
		cfg.RefreshTokenTTL = envCfg.RefreshTokenTTL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	// Секрет refresh-токенов обязан отличаться от секрета access-токенов.
	if cfg.JWTRefreshSecret == "" || cfg.JWTRefreshSecret == cfg.JWTSecret {
		cfg.JWTRefreshSecret = cfg.JWTSecret + ":refresh"
	}

	return cfg, nil
}
