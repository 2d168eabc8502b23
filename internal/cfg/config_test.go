package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("ALGOFLOW_CONFIG", "")
	c := FromEnv()
	assert.Equal(t, ":8080", c.Listen)
	assert.Equal(t, "algoflow.db", c.DBURL)
	assert.Equal(t, 24*time.Hour, c.AccessTokenTTL)
	assert.Equal(t, []string{"*"}, c.CORSOrigins)
	assert.False(t, c.Debug)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ALGOFLOW_LISTEN", ":9090")
	t.Setenv("ALGOFLOW_JWT_SIGNING_KEY", "s3cret")
	t.Setenv("ALGOFLOW_ACCESS_TOKEN_TTL", "30m")
	t.Setenv("ALGOFLOW_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("ALGOFLOW_DEBUG", "true")

	c := FromEnv()
	assert.Equal(t, ":9090", c.Listen)
	assert.Equal(t, []byte("s3cret"), c.JWTSigningKey)
	assert.Equal(t, 30*time.Minute, c.AccessTokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)
	assert.True(t, c.Debug)
}

func TestFromEnvIgnoresBadValues(t *testing.T) {
	t.Setenv("ALGOFLOW_ACCESS_TOKEN_TTL", "forever")
	t.Setenv("ALGOFLOW_DEBUG", "maybe")

	c := FromEnv()
	assert.Equal(t, 24*time.Hour, c.AccessTokenTTL)
	assert.False(t, c.Debug)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "algoflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":7000"
db_url: "postgres://localhost/algoflow"
jwt_signing_key: "from-file"
access_token_ttl: 1h
cors_origins: ["https://app.example"]
log_format: json
`), 0o600))
	t.Setenv("ALGOFLOW_LISTEN", ":7001")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7001", c.Listen)
	assert.Equal(t, "postgres://localhost/algoflow", c.DBURL)
	assert.Equal(t, []byte("from-file"), c.JWTSigningKey)
	assert.Equal(t, time.Hour, c.AccessTokenTTL)
	assert.Equal(t, []string{"https://app.example"}, c.CORSOrigins)
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, "algoflow", c.JWTIssuer)
}

func TestLoadFromEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "algoflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"2.0.0\"\n"), 0o600))
	t.Setenv("ALGOFLOW_CONFIG", path)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", c.Version)
}

func TestLoadWithoutFileUsesEnv(t *testing.T) {
	t.Setenv("ALGOFLOW_CONFIG", "")
	t.Setenv("ALGOFLOW_DB_URL", "postgres://db/algoflow")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, FromEnv(), c)
	assert.Equal(t, "postgres://db/algoflow", c.DBURL)
	assert.Equal(t, ":8080", c.Listen)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}
