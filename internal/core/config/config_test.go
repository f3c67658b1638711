package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadE(t *testing.T) {
	p := writeYAML(t, `
app:
  http:
    port: 9090
jwt:
  secret: s3cret
  accessTokenTTLMin: 15
db:
  driver: mysql
cors:
  allowOrigins: [http://a.test, http://b.test]
`)
	c, err := LoadE(p)
	require.NoError(t, err)

	assert.Equal(t, 9090, c.App.HTTP.Port)
	assert.Equal(t, 8081, c.App.Admin.Port)
	assert.Equal(t, "s3cret", c.JWT.Secret)
	assert.Equal(t, 15*time.Minute, c.AccessTokenTTL())
	assert.Equal(t, "mysql", c.DB.Driver)
	assert.Equal(t, "cv_session", c.Session.CookieName)
	assert.Equal(t, "@every 1h", c.Worker.ReconcileCron)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.CORS.AllowOrigins)
	assert.False(t, c.IsProduction())
}

func TestLoadEEnvOverride(t *testing.T) {
	p := writeYAML(t, "jwt:\n  secret: from-file\n")
	t.Setenv("APP_JWT_SECRET", "from-env")
	t.Setenv("APP_APP_ENV", "production")

	c, err := LoadE(p)
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.JWT.Secret)
	assert.True(t, c.IsProduction())
}

func TestLoadERequiresSecret(t *testing.T) {
	p := writeYAML(t, "app:\n  name: x\n")
	_, err := LoadE(p)
	assert.Error(t, err)
}

func TestLoadEMissingFile(t *testing.T) {
	_, err := LoadE(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
