package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
app:
  name: billdesk
  env: production
server:
  port: 9090
freshdesk:
  domain: mademedia
  api_key: test-key
  ticket_ttl: 30m
contracts:
  workbook_path: /data/contracts.xlsx
billing:
  saas_products: ["BlocksOffice", "MonkeyWrench"]
  unbillable_statuses: ["Free", "90 Days", "Invoice"]
auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"
  users:
    - username: petra
      name: Petra Admin
      password_hash: "$2a$10$fakefakefakefakefakefake"
      client_code: admin
      role: admin
`

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	require.NoError(t, LoadFromFile(writeConfig(t, validYAML)))

	c := Get()
	require.NotNil(t, c)
	assert.True(t, c.App.IsProduction())
	assert.Equal(t, "0.0.0.0:9090", c.Server.GetServerAddr())
	assert.Equal(t, "mademedia", c.Freshdesk.Domain)
	assert.Equal(t, 30*time.Minute, c.Freshdesk.TicketTTL)
	// Defaults fill the gaps.
	assert.Equal(t, 7*24*time.Hour, c.Freshdesk.DirectoryTTL)
	assert.Equal(t, "local", c.Cache.Backend)
	assert.Equal(t, []string{"Made Media Inc.", "Made Media Ltd."}, c.Export.Territories)

	require.Len(t, c.Auth.Users, 1)
	assert.Equal(t, "admin", c.Auth.Users[0].ClientCode)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.Freshdesk.Domain = "mademedia"
		c.Freshdesk.APIKey = "key"
		c.Contracts.WorkbookPath = "contracts.xlsx"
		c.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
		return c
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing api key", func(t *testing.T) {
		c := base()
		c.Freshdesk.APIKey = ""
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "freshdesk.api_key")
	})

	t.Run("short jwt secret", func(t *testing.T) {
		c := base()
		c.Auth.JWTSecret = "short"
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "32 characters")
	})

	t.Run("redis backend needs addr", func(t *testing.T) {
		c := base()
		c.Cache.Backend = "redis"
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache.redis.addr")
	})

	t.Run("unknown backend", func(t *testing.T) {
		c := base()
		c.Cache.Backend = "memcached"
		assert.Error(t, c.Validate())
	})

	t.Run("duplicate usernames", func(t *testing.T) {
		c := base()
		c.Auth.Users = []UserConfig{
			{Username: "sam", PasswordHash: "x", ClientCode: "AVI"},
			{Username: "sam", PasswordHash: "y", ClientCode: "ZOO"},
		}
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate username")
	})

	t.Run("user without client code", func(t *testing.T) {
		c := base()
		c.Auth.Users = []UserConfig{{Username: "sam", PasswordHash: "x"}}
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "client_code")
	})
}

func TestLoadRepeatsFirstError(t *testing.T) {
	// Load runs once per process; a failed first load must keep
	// reporting its error on retry, never nil with no config set.
	dir := t.TempDir()
	first := Load(dir)
	require.Error(t, first)
	assert.EqualError(t, Load(dir), first.Error())
}

func TestLoadFromFileRejectsInvalid(t *testing.T) {
	err := LoadFromFile(writeConfig(t, "app:\n  name: billdesk\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
