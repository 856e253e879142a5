package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
log:
  level: warn
token_source:
  type: redis
  redis:
    addr: localhost:6379
    key: soap:token
  cache_ttl: 30s
proxies:
  Echo:
    endpoint: https://svc.example/echo
    receive_timeout: 10s
    key_type: symmetric
    token_handlers: [saml2, jwt]
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, constants.TokenSourceRedis, cfg.TokenSource.Type)
	assert.Equal(t, 30*time.Second, cfg.TokenSource.CacheTTL)
	assert.Equal(t, "token", cfg.TokenSource.Vault.Field)

	// viper lower-cases map keys
	echo, ok := cfg.Proxies["echo"]
	require.True(t, ok)
	assert.Equal(t, "https://svc.example/echo", echo.Endpoint)
	assert.Equal(t, 10*time.Second, echo.ReceiveTimeout)
	assert.Equal(t, constants.KeyTypeSymmetric, echo.KeyType)
	assert.Equal(t, []string{"saml2", "jwt"}, echo.TokenHandlers)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	t.Setenv("SOAPPROXY_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *errors.AppError
	}{
		{
			name:    "empty endpoint",
			content: "proxies:\n  Foo:\n    endpoint: \"\"\n    key_type: bearer\n",
			want:    errors.ErrInvalidEndpoint,
		},
		{
			name:    "unknown key type",
			content: "proxies:\n  Foo:\n    endpoint: https://x\n    key_type: asymmetric\n",
			want:    errors.ErrInvalidConfiguration,
		},
		{
			name:    "unknown token handler",
			content: "proxies:\n  Foo:\n    endpoint: https://x\n    token_handlers: [saml2, kerberos]\n",
			want:    errors.ErrInvalidConfiguration,
		},
		{
			name:    "sampling rate out of range",
			content: "tracing:\n  sampling_rate: 2\n",
			want:    errors.ErrInvalidConfiguration,
		},
		{
			name:    "static source without token",
			content: "token_source:\n  type: static\n",
			want:    errors.ErrInvalidConfiguration,
		},
		{
			name:    "unknown source",
			content: "token_source:\n  type: ldap\n",
			want:    errors.ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, errors.HasCode(err, errors.CodeConfiguration))
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfiguration))
}
