package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Full(t *testing.T) {
	t.Setenv("TEST_TABLECHAT_TOKEN", "tok-123")

	cfg, err := Parse([]byte(`
api:
  base_url: https://console.example.com/api
  ws_url: wss://live.example.com
  token: ${TEST_TABLECHAT_TOKEN}
  timeout: 5s
ui:
  locale: de-DE
  mobile_breakpoint: 80
storage:
  dir: /tmp/tablechat-test
logging:
  level: debug
`))

	require.NoError(t, err)
	assert.Equal(t, "https://console.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, "wss://live.example.com", cfg.API.WSURL)
	assert.Equal(t, "tok-123", cfg.API.Token)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 80, cfg.UI.MobileBreakpoint)
	assert.True(t, cfg.UI.LocaleValue().German())
	assert.Equal(t, "/tmp/tablechat-test/contacts", cfg.ContactsDir())
	assert.Equal(t, "/tmp/tablechat-test/state.db", cfg.StatePath())
	assert.Equal(t, "/tmp/tablechat-test/tablechat.log", cfg.Logging.Path)
}

func TestParse_Defaults(t *testing.T) {
	t.Setenv("TABLECHAT_API_URL", "http://localhost:8000/api")
	t.Setenv("TABLECHAT_TOKEN", "from-env")

	cfg, err := Parse(nil)

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", cfg.API.BaseURL)
	assert.Equal(t, "from-env", cfg.API.Token)
	assert.Equal(t, DefaultTimeout, cfg.API.Timeout)
	assert.Equal(t, DefaultMobileBreakpoint, cfg.UI.MobileBreakpoint)
	assert.False(t, cfg.UI.LocaleValue().German())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, DefaultDir(), cfg.Storage.Dir)
}

func TestParse_Errors(t *testing.T) {
	t.Setenv("TABLECHAT_API_URL", "")

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing base url", `ui: {locale: en}`, "api.base_url is required"},
		{"bad timeout", "api: {base_url: http://x, timeout: soon}", "parsing api.timeout"},
		{"negative timeout", "api: {base_url: http://x, timeout: -1s}", "api.timeout must be positive"},
		{"bad locale", "api: {base_url: http://x}\nui: {locale: '!!'}", "ui.locale"},
		{"bad level", "api: {base_url: http://x}\nlogging: {level: loud}", "logging.level"},
		{"bad yaml", "api: [", "parsing config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.ErrorContains(t, err, "reading config file")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: http://localhost:8000/api\nstorage:\n  dir: ~/tc\n"), 0644))

	cfg, err := Load(path)

	require.NoError(t, err)
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "tc"), cfg.Storage.Dir)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TC_A", "alpha")
	assert.Equal(t, "x-alpha-", expandEnv("x-${TC_A}-${TC_UNSET_VAR}"))
	assert.Equal(t, "$TC_A", expandEnv("$TC_A"))
}
