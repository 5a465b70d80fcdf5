package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `{
	"port": 8080,
	"jwt_secret": "secret",
	"audit_salt": "salt",
	"database": {"host": "localhost", "user": "rag", "dbname": "rag"},
	"ai": {
		"generators": [{"name": "primary", "provider": "openai", "model": "gpt-4o-mini", "data": {"api_key": "x"}}],
		"embedders": [{"name": "embed", "provider": "gemini", "model": "gemini-embedding-001", "data": {"api_key": "y"}}]
	}
}`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, 72, cfg.JWTTTLHours)
	require.Equal(t, 60, cfg.PipelineTimeoutSeconds)
	require.Equal(t, 5, cfg.RAG.Owner.TopK)
	require.Equal(t, 0.5, cfg.RAG.Owner.Threshold)
	require.Equal(t, 8, cfg.RAG.Share.TopK)
	require.Equal(t, 0.3, cfg.RAG.Share.Threshold)
	require.Equal(t, 3, cfg.RateLimit.Share.Requests)
	require.Equal(t, 3600, cfg.RateLimit.Share.WindowSeconds)
	require.Equal(t, 10000, cfg.RateLimit.MaxEntries)
	require.Equal(t, 10, cfg.Share.MinTokenLen)
	require.Equal(t, 64, cfg.Share.MaxTokenLen)
	require.Equal(t, "local", cfg.SourceStore.Type)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing secret", body: `{"port": 1, "audit_salt": "s", "database": {"dsn": "x"}}`},
		{name: "missing salt", body: `{"port": 1, "jwt_secret": "s", "database": {"dsn": "x"}}`},
		{name: "missing database", body: `{"port": 1, "jwt_secret": "s", "audit_salt": "s"}`},
		{name: "missing providers", body: `{"port": 1, "jwt_secret": "s", "audit_salt": "s", "database": {"dsn": "x"}}`},
		{name: "malformed json", body: `{"port":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
