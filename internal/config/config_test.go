package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "file", cfg.StorageBackend)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.InsightCacheTTL)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, ":3000", cfg.Addr())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/ink.db")
	t.Setenv("LLM_TIMEOUT", "5s")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 8088, cfg.Port)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "postgres without dsn",
			env:     map[string]string{"STORAGE_BACKEND": "postgres"},
			wantErr: "POSTGRES_DSN",
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"STORAGE_BACKEND": "redis"},
			wantErr: "StorageBackend",
		},
		{
			name:    "unknown env",
			env:     map[string]string{"APP_ENV": "qa"},
			wantErr: "Env",
		},
		{
			name:    "production with default secret",
			env:     map[string]string{"APP_ENV": "production"},
			wantErr: "JWT_SECRET",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ProductionWithSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}
