package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	Database Database `envPrefix:"DATABASE_"`
	Auth     Auth     `envPrefix:"AUTH_"`
	Payments Payments `envPrefix:"PAYMENTS_"`
	Paypal   Paypal   `envPrefix:"PAYPAL_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

type Database struct {
	Driver          string        `env:"DRIVER" envDefault:"sqlite"` // sqlite, mysql, postgres
	URL             string        `env:"URL" envDefault:"marketplace.db"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"50"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Payments struct {
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

type Paypal struct {
	BaseApiURL   string `env:"BASE_API_URL" envDefault:"https://api-m.sandbox.paypal.com"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Currency     string `env:"CURRENCY" envDefault:"USD"`
}

// Enabled reports whether PayPal checkout credentials are configured.
func (p Paypal) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// Load reads .env (if any) into the process environment and parses Config from it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

func (h HTTPServer) Addr() string {
	return h.Host + ":" + h.Port
}
