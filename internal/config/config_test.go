package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Contract.StoreTimeout)
	assert.Equal(t, 30*24*time.Hour, cfg.Contract.ExpiryWindow)
	assert.True(t, cfg.Contract.AllowWitnessNameMatch)
	assert.Equal(t, "contracts", cfg.NATS.SubjectPrefix)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CONTRACT_STORE_TIMEOUT", "750ms")
	t.Setenv("CONTRACT_WITNESS_NAME_MATCH", "false")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "leases")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Contract.StoreTimeout)
	assert.False(t, cfg.Contract.AllowWitnessNameMatch)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Contains(t, cfg.Database.GetDSN(), "host=db")
	assert.Contains(t, cfg.Database.GetDSN(), "dbname=leases")
}

func TestMalformedEnvFallsBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("CONTRACT_EXPIRY_WINDOW", "a month")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*24*time.Hour, cfg.Contract.ExpiryWindow)
}
