package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ADMIN_PASSWORD", "12345")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123")
}

func TestLoad(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, MetadataSQLite, cfg.MetadataBackend)
	assert.Equal(t, BlobLocal, cfg.BlobBackend)
	assert.False(t, cfg.CookieSecure)
}

func TestLoadCustomValues(t *testing.T) {
	setRequired(t)
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("METADATA_BACKEND", "Blob")
	t.Setenv("BLOB_BACKEND", "minio")
	t.Setenv("MINIO_ACCESS_KEY", "minioadmin")
	t.Setenv("MINIO_SECRET_KEY", "minioadmin")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("PUBLIC_BLOB_BASE_URL", "https://cdn.example.com/images/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://example.com,https://www.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, MetadataBlob, cfg.MetadataBackend)
	assert.Equal(t, BlobMinio, cfg.BlobBackend)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, "https://cdn.example.com/images", cfg.PublicBlobBaseURL)
	assert.Equal(t, []string{"https://example.com", "https://www.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing password", env: map[string]string{"ADMIN_PASSWORD": ""}},
		{name: "short secret", env: map[string]string{"SESSION_SECRET": "short"}},
		{name: "ttl too long", env: map[string]string{"SESSION_TTL": "48h"}},
		{name: "ttl too short", env: map[string]string{"SESSION_TTL": "10m"}},
		{name: "unknown metadata backend", env: map[string]string{"METADATA_BACKEND": "redis"}},
		{name: "mongo without uri", env: map[string]string{"METADATA_BACKEND": "mongo"}},
		{name: "postgres without url", env: map[string]string{"METADATA_BACKEND": "postgres"}},
		{name: "minio without keys", env: map[string]string{"BLOB_BACKEND": "minio"}},
		{name: "unknown blob backend", env: map[string]string{"BLOB_BACKEND": "s3"}},
		{name: "bad duration", env: map[string]string{"SESSION_TTL": "forever"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadAcceptsPasswordHashOnly(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ADMIN_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123")

	_, err := Load()
	assert.NoError(t, err)
}
