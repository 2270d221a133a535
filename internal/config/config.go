package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Registrar"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"registrar"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		Secret   string        `envconfig:"JWT_SECRET" required:"true"`
		TokenTTL time.Duration `envconfig:"JWT_TTL" default:"12h"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	}

	Uploads struct {
		Dir      string `envconfig:"UPLOADS_DIR" default:"./uploads"`
		MaxBytes int64  `envconfig:"UPLOADS_MAX_BYTES" default:"5242880"`
	}

	// Redis is optional; an empty address disables the report cache.
	Redis struct {
		Addr       string        `envconfig:"REDIS_ADDR"`
		Password   string        `envconfig:"REDIS_PASSWORD"`
		DB         int           `envconfig:"REDIS_DB" default:"0"`
		SummaryTTL time.Duration `envconfig:"REDIS_SUMMARY_TTL" default:"30s"`
	}

	// Kafka is optional; no brokers disables lifecycle event publishing.
	Kafka struct {
		Brokers []string `envconfig:"KAFKA_BROKERS"`
		Topic   string   `envconfig:"KAFKA_TOPIC" default:"registrar.transactions"`
	}

	SendGrid struct {
		APIKey    string `envconfig:"SENDGRID_API_KEY"`
		FromEmail string `envconfig:"SENDGRID_FROM_EMAIL" default:"registrar@localhost"`
		FromName  string `envconfig:"SENDGRID_FROM_NAME" default:"Office of the Registrar"`
	}

	Slip struct {
		Institution string `envconfig:"SLIP_INSTITUTION" default:"Office of the University Registrar"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
