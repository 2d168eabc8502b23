// Package cfg provides configuration for the algoflow server.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds server configuration.
type Config struct {
	// Listen is the address to listen on (e.g., ":8080").
	Listen string `yaml:"listen"`
	// DBURL is the database URL (SQLite path or Postgres URL).
	DBURL string `yaml:"db_url"`
	// JWTSigningKey is the key used to sign JWTs.
	JWTSigningKey []byte `yaml:"-"`
	// JWTIssuer is the JWT issuer claim.
	JWTIssuer string `yaml:"jwt_issuer"`
	// AccessTokenTTL is how long access tokens are valid.
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
	// CORSOrigins lists the origins allowed to call the API. "*" allows any.
	CORSOrigins []string `yaml:"cors_origins"`
	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`
	// Debug enables debug logging.
	Debug bool `yaml:"debug"`
	// Version is the server version string.
	Version string `yaml:"version"`
}

// fileConfig is the YAML shape. The signing key is a string there.
type fileConfig struct {
	Config        `yaml:",inline"`
	JWTSigningKey string `yaml:"jwt_signing_key"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Listen:         ":8080",
		DBURL:          "algoflow.db",
		JWTSigningKey:  []byte("dev-secret-key-change-in-production"),
		JWTIssuer:      "algoflow",
		AccessTokenTTL: 24 * time.Hour,
		CORSOrigins:    []string{"*"},
		LogFormat:      "text",
		Version:        "0.1.0",
	}
}

// FromEnv creates a Config from environment variables.
func FromEnv() *Config {
	cfg := Defaults()
	applyEnv(cfg)
	return cfg
}

// Load reads the YAML file at path, then applies environment overrides.
// An empty path falls back to ALGOFLOW_CONFIG; with neither set the result
// is FromEnv.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ALGOFLOW_CONFIG")
	}
	if path == "" {
		return FromEnv(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	fc := fileConfig{Config: *Defaults()}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg := &fc.Config
	if fc.JWTSigningKey != "" {
		cfg.JWTSigningKey = []byte(fc.JWTSigningKey)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Listen = getEnv("ALGOFLOW_LISTEN", cfg.Listen)
	cfg.DBURL = getEnv("ALGOFLOW_DB_URL", cfg.DBURL)
	cfg.JWTSigningKey = []byte(getEnv("ALGOFLOW_JWT_SIGNING_KEY", string(cfg.JWTSigningKey)))
	cfg.JWTIssuer = getEnv("ALGOFLOW_JWT_ISSUER", cfg.JWTIssuer)
	cfg.AccessTokenTTL = getEnvDuration("ALGOFLOW_ACCESS_TOKEN_TTL", cfg.AccessTokenTTL)
	cfg.CORSOrigins = getEnvList("ALGOFLOW_CORS_ORIGINS", cfg.CORSOrigins)
	cfg.LogFormat = getEnv("ALGOFLOW_LOG_FORMAT", cfg.LogFormat)
	cfg.Debug = getEnvBool("ALGOFLOW_DEBUG", cfg.Debug)
	cfg.Version = getEnv("ALGOFLOW_VERSION", cfg.Version)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated list.
func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, s := range strings.Split(val, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
