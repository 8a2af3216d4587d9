package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_URL", "WEBHOOK_SECRET", "MESSAGES_DEFAULT_LIMIT", "MESSAGES_MAX_LIMIT", "RATE_LIMIT_WHITELIST"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "sqlite:////data/app.db", cfg.DatabaseURL)
	assert.Equal(t, 50, cfg.MessagesDefaultPage)
	assert.Equal(t, 100, cfg.MessagesMaxPage)
	assert.Equal(t, 4096, cfg.MaxTextLength)
	assert.False(t, cfg.SecretConfigured())
	assert.Empty(t, cfg.RateLimitWhitelist)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "testsecret")
	t.Setenv("MESSAGES_MAX_LIMIT", "20")
	t.Setenv("MESSAGES_DEFAULT_LIMIT", "500")
	t.Setenv("RATE_LIMIT_WHITELIST", " 10.0.0.1, ,192.168.0.0/16")

	cfg := Load()
	assert.True(t, cfg.SecretConfigured())
	assert.Equal(t, 20, cfg.MessagesMaxPage)
	assert.Equal(t, 20, cfg.MessagesDefaultPage)
	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, cfg.RateLimitWhitelist)
}

func TestStoreDriver(t *testing.T) {
	cases := []struct {
		url    string
		driver string
		dsn    string
		err    bool
	}{
		{url: "sqlite:////data/app.db", driver: "sqlite3", dsn: "/data/app.db"},
		{url: "sqlite:///./local.db", driver: "sqlite3", dsn: "./local.db"},
		{url: "postgres://u:p@localhost/db", driver: "pgx", dsn: "postgres://u:p@localhost/db"},
		{url: "postgresql://localhost/db", driver: "pgx", dsn: "postgresql://localhost/db"},
		{url: "sqlite:///", err: true},
		{url: "mysql://localhost/db", err: true},
	}

	for _, tc := range cases {
		cfg := &Config{DatabaseURL: tc.url}
		driver, dsn, err := cfg.StoreDriver()
		if tc.err {
			assert.Error(t, err, tc.url)
			continue
		}
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.driver, driver)
		assert.Equal(t, tc.dsn, dsn)
	}
}
