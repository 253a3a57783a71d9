package config

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	dErrors "assura/pkg/domain-errors"
)

// Config is the full server configuration. Defaults come from Default,
// an optional YAML or TOML file (CONFIG_FILE) overlays them, and
// environment variables overlay the file.
type Config struct {
	Environment string           `yaml:"environment" toml:"environment"`
	Server      ServerConfig     `yaml:"server" toml:"server"`
	Database    DatabaseConfig   `yaml:"database" toml:"database"`
	Encryption  EncryptionConfig `yaml:"encryption" toml:"encryption"`
	Auth        AuthConfig       `yaml:"auth" toml:"auth"`
	Consent     ConsentConfig    `yaml:"consent" toml:"consent"`
	Logging     LoggingConfig    `yaml:"logging" toml:"logging"`
	SeedDemo    bool             `yaml:"seed_demo_data" toml:"seed_demo_data"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr" toml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout" toml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	TrustedProxies  []string      `yaml:"trusted_proxies" toml:"trusted_proxies"`
}

// DatabaseConfig selects the storage backend. An empty URL means in-memory stores.
type DatabaseConfig struct {
	URL             string        `yaml:"url" toml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns" toml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" toml:"conn_max_lifetime"`
}

// EncryptionConfig holds base64-encoded AES key material.
type EncryptionConfig struct {
	Key string `yaml:"key" toml:"key"`
	IV  string `yaml:"iv" toml:"iv"`
}

// AuthConfig holds the HS256 key used to verify bearer tokens and the
// password given to the seeded administrator.
type AuthConfig struct {
	JWTSigningKey string `yaml:"jwt_signing_key" toml:"jwt_signing_key"`
	AdminPassword string `yaml:"admin_password" toml:"admin_password"`
}

type ConsentConfig struct {
	TermsVersion string `yaml:"terms_version" toml:"terms_version"`
}

type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// Default returns the configuration used when nothing overrides it.
// Key material has no default.
func Default() Config {
	return Config{
		Environment: "development",
		Server: ServerConfig{
			Addr:            ":8080",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Consent: ConsentConfig{TermsVersion: "1.0"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration and validates it. Every failure carries
// CodeConfiguration so main can exit once.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.overlayEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// overlayFile decodes a YAML file, or TOML when the name ends in .toml.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeConfiguration, "read config file")
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, c)
	} else {
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeConfiguration, "parse config file")
	}
	return nil
}

func (c *Config) overlayEnv(getenv func(string) string) {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&c.Environment, "ENVIRONMENT")
	setString(&c.Server.Addr, "ASSURA_ADDR")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Encryption.Key, "ENCRYPTION_KEY")
	setString(&c.Encryption.IV, "ENCRYPTION_IV")
	setString(&c.Auth.JWTSigningKey, "JWT_SIGNING_KEY")
	setString(&c.Auth.AdminPassword, "SEED_ADMIN_PASSWORD")
	setString(&c.Consent.TermsVersion, "CONSENT_TERMS_VERSION")
	setString(&c.Logging.Level, "LOG_LEVEL")

	if v := getenv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Server.RequestTimeout = d
		}
	}
	if v := getenv("TRUSTED_PROXIES"); v != "" {
		c.Server.TrustedProxies = splitList(v)
	}
	if v := getenv("SEED_DEMO_DATA"); v != "" {
		c.SeedDemo = v == "true" || v == "1"
	}
}

// Validate checks that required key material is present and parsable.
// Lengths of the decoded key and IV are checked by the cipher engine.
func (c Config) Validate() error {
	if c.Encryption.Key == "" || c.Encryption.IV == "" {
		return dErrors.New(dErrors.CodeConfiguration, "ENCRYPTION_KEY and ENCRYPTION_IV are required")
	}
	if c.Auth.JWTSigningKey == "" {
		return dErrors.New(dErrors.CodeConfiguration, "JWT_SIGNING_KEY is required")
	}
	if c.Consent.TermsVersion == "" {
		return dErrors.New(dErrors.CodeConfiguration, "consent terms version cannot be empty")
	}
	if c.SeedDemo && c.IsProduction() {
		return dErrors.New(dErrors.CodeConfiguration, "demo data cannot be seeded in production")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyPrefixes parses Server.TrustedProxies. Bare addresses are
// treated as single-host prefixes.
func (c Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.Server.TrustedProxies))
	for _, raw := range c.Server.TrustedProxies {
		if !strings.Contains(raw, "/") {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, fmt.Sprintf("invalid trusted proxy %q", raw))
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, fmt.Sprintf("invalid trusted proxy %q", raw))
		}
		prefixes = append(prefixes, p)
	}
	return prefixes, nil
}

// IsProduction reports whether the server runs outside development.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
