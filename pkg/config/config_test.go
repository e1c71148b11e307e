package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamvault/upload-gateway/pkg/errors"
	"github.com/streamvault/upload-gateway/pkg/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("GIN_MODE", "")

	cfg, err := LoadConfig(logger.Discard())
	require.NoError(t, err)

	require.Equal(t, EnvProduction, cfg.Env)
	require.Equal(t, StorageProviderMinIO, cfg.Storage.Provider)
	require.Equal(t, "localhost:9000", cfg.Storage.Endpoint)
	require.Equal(t, 7*24*time.Hour, cfg.Storage.URLTTL)
	require.Equal(t, PublisherRabbitMQ, cfg.Bus.Publisher)
	require.Equal(t, 30*time.Second, cfg.Bus.RequestTimeout)
	require.Equal(t, LedgerNone, cfg.Ledger.Provider)
	require.Equal(t, int64(0), cfg.Server.MaxUploadBytes)
	require.Equal(t, "release", cfg.Server.GinMode)
	require.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("STORAGE_PROVIDER", "GCS")
	t.Setenv("STORAGE_BUCKET", "media-originals")
	t.Setenv("STORAGE_URL_TTL", "24h")
	t.Setenv("BUS_PUBLISHER", "stdout")
	t.Setenv("BUS_REQUEST_TIMEOUT", "5s")
	t.Setenv("SERVER_MAX_UPLOAD_BYTES", "1073741824")
	t.Setenv("LEDGER_PROVIDER", "redis")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadConfig(logger.Discard())
	require.NoError(t, err)

	require.Equal(t, StorageProviderGCS, cfg.Storage.Provider)
	require.Equal(t, "media-originals", cfg.Storage.Bucket)
	require.Equal(t, 24*time.Hour, cfg.Storage.URLTTL)
	require.Equal(t, PublisherStdout, cfg.Bus.Publisher)
	require.Equal(t, 5*time.Second, cfg.Bus.RequestTimeout)
	require.Equal(t, int64(1<<30), cfg.Server.MaxUploadBytes)
	require.Equal(t, LedgerRedis, cfg.Ledger.Provider)
	require.Equal(t, 3, cfg.Ledger.RedisDB)
}

func TestLoadConfigRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"ttl over seven days":       {"STORAGE_URL_TTL": "200h"},
		"unknown storage":           {"STORAGE_PROVIDER": "ftp"},
		"pubsub without project":    {"BUS_PUBLISHER": "pubsub"},
		"firestore without project": {"LEDGER_PROVIDER": "firestore"},
		"negative upload limit":     {"SERVER_MAX_UPLOAD_BYTES": "-1"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("PROJECT_ID", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(logger.Discard())
			require.Error(t, err)
			require.True(t, errors.Is(err, errors.ErrorTypeConfiguration))
		})
	}
}
