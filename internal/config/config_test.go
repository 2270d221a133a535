package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/registrar/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Auth.Secret)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, int64(5<<20), cfg.Uploads.MaxBytes)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "registrar.transactions", cfg.Kafka.Topic)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	_, err := config.Load()
	assert.Error(t, err)
}

func TestConfig_ConnectionString(t *testing.T) {
	var cfg config.Config
	cfg.DB.User = "registrar"
	cfg.DB.Password = "pw"
	cfg.DB.Host = "db"
	cfg.DB.Port = 5433
	cfg.DB.Name = "records"

	assert.Equal(t, "postgres://registrar:pw@db:5433/records?sslmode=disable", cfg.ConnectionString())
}
