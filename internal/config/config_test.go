package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BACKEND_URL", "")
	t.Setenv("OUTBOX_INTERVAL_SECONDS", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, time.Minute, cfg.Outbox.Interval)
	assert.Equal(t, 5, cfg.Outbox.MaxAttempts)
	assert.False(t, cfg.FirebaseEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BACKEND_URL", "http://backend:9000")
	t.Setenv("BACKEND_TIMEOUT_SECONDS", "3")
	t.Setenv("OUTBOX_ENABLED", "false")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://backend:9000", cfg.Backend.URL)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.False(t, cfg.Outbox.Enabled)
	assert.Equal(t, 0, cfg.Redis.DB, "invalid numbers fall back to the default")
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_OutboxOperators(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("OUTBOX_OPERATORS", " ops-1, ,ops-2 ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"ops-1", "ops-2"}, cfg.Outbox.Operators)
}

func TestLoadBackend(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("FIREBASE_PROJECT_ID", "")
	t.Setenv("BACKEND_URL", "http://backend:9000")
	t.Setenv("BACKEND_TIMEOUT_SECONDS", "4")

	backend, err := LoadBackend()
	require.NoError(t, err, "a backend client needs no auth settings")
	assert.Equal(t, "http://backend:9000", backend.URL)
	assert.Equal(t, 4*time.Second, backend.Timeout)

	t.Setenv("BACKEND_TIMEOUT_SECONDS", "0")
	_, err = LoadBackend()
	assert.ErrorContains(t, err, "BACKEND_TIMEOUT_SECONDS")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Backend: BackendConfig{URL: "http://localhost:8000", Timeout: time.Second},
			JWT:     JWTConfig{Secret: "secret"},
			Outbox:  OutboxConfig{Enabled: true, Interval: time.Minute},
			Log:     LogConfig{Format: "text"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing backend", mutate: func(c *Config) { c.Backend.URL = "" }, wantErr: "BACKEND_URL"},
		{name: "missing auth", mutate: func(c *Config) { c.JWT.Secret = "" }, wantErr: "JWT_SECRET"},
		{name: "firebase replaces jwt", mutate: func(c *Config) {
			c.JWT.Secret = ""
			c.Firebase = FirebaseConfig{ProjectID: "p", PrivateKey: "k", ClientEmail: "e"}
		}},
		{name: "partial firebase", mutate: func(c *Config) { c.Firebase.ProjectID = "p" }, wantErr: "FIREBASE_PRIVATE_KEY"},
		{name: "otel without endpoint", mutate: func(c *Config) { c.OTEL.Enabled = true }, wantErr: "OTEL_EXPORTER_OTLP_ENDPOINT"},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
