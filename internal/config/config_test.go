package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateConfigEnv unsets every LEARNPREVIEW_ variable so tests don't inherit
// values from the host environment. t.Cleanup restores the originals.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, EnvPrefix+"_") {
			continue
		}
		orig := os.Getenv(key)
		t.Cleanup(func() { os.Setenv(key, orig) })
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load(NewViper())

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8787", cfg.ListenAddr)
	assert.Equal(t, "learnpreview.db", cfg.DBPath)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Equal(t, "OpenPublishing.Build", cfg.CheckName)
	assert.Equal(t, 50, cfg.CacheSize)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.InitialDelay)
	assert.InDelta(t, 2.0, cfg.Retry.Factor, 0)
	assert.Equal(t, "MicrosoftDocs", cfg.Ops.Org)
	assert.Equal(t, []string{"dotnet/docs", "dotnet/docs-aspire", "dotnet/docs-desktop"}, cfg.Ops.KnownRepos)
	assert.Equal(t, "main", cfg.Ops.Branch)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.False(t, cfg.HasBootstrapToken())

	key, err := cfg.SecretKeyBytes()
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestLoad_Environment(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("LEARNPREVIEW_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("LEARNPREVIEW_POLL_INTERVAL", "30s")
	t.Setenv("LEARNPREVIEW_GITHUB_TOKEN", "  ghp_test123 ")
	t.Setenv("LEARNPREVIEW_RETRY_ATTEMPTS", "5")
	t.Setenv("LEARNPREVIEW_OPS_KNOWN_REPOS", "contoso/docs, fabrikam/handbook,")
	t.Setenv("LEARNPREVIEW_LOG_FORMAT", "json")

	cfg, err := Load(NewViper())

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, "ghp_test123", cfg.GitHub.Token)
	assert.True(t, cfg.HasBootstrapToken())
	assert.Equal(t, 5, cfg.Retry.Attempts)
	assert.Equal(t, []string{"contoso/docs", "fabrikam/handbook"}, cfg.Ops.KnownRepos)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ConfigFile(t *testing.T) {
	isolateConfigEnv(t)
	path := filepath.Join(t.TempDir(), "learnpreview.yaml")
	content := `
check_name: Docs.Build
cache_size: 10
ops:
  org: Contoso
  known_repos:
    - fabrikam/docs
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := NewViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	t.Setenv("LEARNPREVIEW_CACHE_SIZE", "20")
	cfg, err := Load(v)

	require.NoError(t, err)
	assert.Equal(t, "Docs.Build", cfg.CheckName)
	assert.Equal(t, 20, cfg.CacheSize, "environment overrides the file")
	assert.Equal(t, "Contoso", cfg.Ops.Org)
	assert.Equal(t, []string{"fabrikam/docs"}, cfg.Ops.KnownRepos)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "bad duration", key: "LEARNPREVIEW_POLL_INTERVAL", value: "soon", wantErr: "decode config"},
		{name: "zero interval", key: "LEARNPREVIEW_POLL_INTERVAL", value: "0s", wantErr: "poll_interval"},
		{name: "zero cache", key: "LEARNPREVIEW_CACHE_SIZE", value: "0", wantErr: "cache_size"},
		{name: "small factor", key: "LEARNPREVIEW_RETRY_FACTOR", value: "0.5", wantErr: "retry.factor"},
		{name: "log format", key: "LEARNPREVIEW_LOG_FORMAT", value: "xml", wantErr: "log.format"},
		{name: "short secret", key: "LEARNPREVIEW_SECRET_KEY", value: "tooshort", wantErr: "secret_key"},
		{name: "bad hex secret", key: "LEARNPREVIEW_SECRET_KEY", value: strings.Repeat("zz", 32), wantErr: "not valid hex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(NewViper())

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_SecretKeyBytes(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantLen int
		wantErr bool
	}{
		{name: "empty", key: "", wantLen: 0},
		{name: "hex", key: strings.Repeat("ab", 32), wantLen: 32},
		{name: "raw", key: strings.Repeat("k", 32), wantLen: 32},
		{name: "wrong length", key: strings.Repeat("k", 16), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{SecretKey: tt.key}

			key, err := cfg.SecretKeyBytes()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, key, tt.wantLen)
		})
	}
}
