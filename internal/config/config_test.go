package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_USER_ID", "42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.HTTPPort)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, "42", cfg.Bot.AdminUserID)
	assert.True(t, cfg.Bot.CashOutAdminOnly)
	assert.Equal(t, "10", cfg.Bot.DefaultFeePercent)
	assert.Equal(t, 30*time.Second, cfg.Rates.CacheTTL)
	assert.Equal(t, 5, cfg.Dispatcher.Workers)
	assert.Equal(t, 0, cfg.DB.RetryAttempts)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.MongoDB.Enabled)
	assert.False(t, cfg.APIEnabled())
}

func TestLoad_MissingAdmin(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_USER_ID", "")

	cfg, err := Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_UnknownStorageDriver(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_USER_ID", "42")
	t.Setenv("STORAGE_DRIVER", "redis")

	_, err := Load()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_DRIVER")
}

func TestLoad_KafkaBrokersList(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_USER_ID", "42")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.APIEnabled())
}

func TestDBConfig_DSN(t *testing.T) {
	d := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "ipn", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=ipn sslmode=disable", d.DSN())
	assert.Equal(t, "postgres://u:p@db:5432/ipn?sslmode=disable", d.MigrationURL())
}
