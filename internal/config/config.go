// Package config содержит логику чтения конфигурации сервиса.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress     string `env:"RUN_ADDRESS"`
	DatabaseURI    string `env:"DATABASE_URI"`
	SQLitePath     string `env:"SQLITE_PATH"`
	TenantsFile    string `env:"TENANTS_FILE"`
	SecretKey      string `env:"SECRET_KEY"`
	Timezone       string `env:"TIMEZONE"`
	KafkaBrokers   string `env:"KAFKA_BROKERS"`
	KafkaTopic     string `env:"KAFKA_TOPIC"`
	RedisAddr      string `env:"REDIS_ADDR"`
	LoginRateLimit int    `env:"LOGIN_RATE_LIMIT"`
	TrustProxy     bool   `env:"TRUST_PROXY"`
	OTLPEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	LogLevel       string `env:"LOG_LEVEL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "PostgreSQL URI; SQLite is used when empty")
	flag.StringVar(&cfg.SQLitePath, "s", "data/barbershop.db", "SQLite database file")
	flag.StringVar(&cfg.TenantsFile, "t", "tenants.yaml", "tenants file")
	flag.StringVar(&cfg.SecretKey, "k", "", "session signing key; random when empty")
	flag.StringVar(&cfg.Timezone, "tz", "Local", "time zone that defines today")
	flag.StringVar(&cfg.KafkaBrokers, "b", "", "comma-separated Kafka brokers; publishing is off when empty")
	flag.StringVar(&cfg.KafkaTopic, "topic", "appointments.completed", "Kafka topic for completion events")
	flag.StringVar(&cfg.RedisAddr, "redis", "", "Redis address for login rate limiting")
	flag.IntVar(&cfg.LoginRateLimit, "login-limit", 10, "login attempts per minute per address")
	flag.BoolVar(&cfg.TrustProxy, "trust-proxy", false, "take the client address from X-Forwarded-For")
	flag.StringVar(&cfg.OTLPEndpoint, "otel", "", "OTLP gRPC collector address")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log level")

	flag.Parse()

	// Значения из окружения перекрывают флаги; незаданные переменные поля не трогают.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location возвращает часовой пояс, в котором определяется текущая дата.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
