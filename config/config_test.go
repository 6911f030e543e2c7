package config

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, time.Hour, cfg.AccessTTL)
	assert.Equal(t, 168*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.True(t, cfg.AuthzAdminOverride)
	assert.Zero(t, cfg.JWTLeeway)
	assert.Equal(t, 120, cfg.UserRateLimit)
	assert.Equal(t, time.Minute, cfg.UserRateWindow)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("JWT_LEEWAY", "5s")
	t.Setenv("AUTHZ_ADMIN_OVERRIDE", "false")
	t.Setenv("BCRYPT_COST", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg := Load()
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 5*time.Second, cfg.JWTLeeway)
	assert.False(t, cfg.AuthzAdminOverride)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := Load()
		c.Env = "development"
		return c
	}

	c := base()
	c.Env = "production"
	assert.ErrorContains(t, c.Validate(), "development JWT secrets")

	c = base()
	c.JWTRefreshSecret = c.JWTAccessSecret
	assert.ErrorContains(t, c.Validate(), "must differ")

	c = base()
	c.JWTAccessSecret = ""
	assert.ErrorContains(t, c.Validate(), "required")

	c = base()
	c.StorageDriver = "mongo"
	assert.ErrorContains(t, c.Validate(), "unknown STORAGE_DRIVER")

	c = base()
	c.AccessTTL = 0
	assert.ErrorContains(t, c.Validate(), "must be positive")
}

func TestPostgresDSN_EscapesCredentials(t *testing.T) {
	cfg := &Config{
		DBUser:     "app",
		DBPassword: "p@ss:w/rd?#",
		DBHost:     "db.internal",
		DBPort:     "5433",
		DBName:     "authdb",
		DBSSLMode:  "require",
	}
	dsn := cfg.PostgresDSN()

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "app", u.User.Username())
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss:w/rd?#", pw)
	assert.Equal(t, "db.internal:5433", u.Host)
	assert.Equal(t, "/authdb", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}
