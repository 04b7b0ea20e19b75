// Package config provides configuration loading for trimd.
//
// Configuration precedence (highest to lowest): environment variables,
// YAML config file (~/.config/trimd/config.yaml), hardcoded defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Collection isolation modes. In per-tenant mode each tenant's chunks live in
// their own collection; in shared mode all tenants share one collection and
// isolation is enforced with a tenant_id filter conjunct.
const (
	ModePerTenant = "per_tenant"
	ModeShared    = "shared"
)

// Astra token roles. Reader tokens are used for find, writer tokens for insert.
const (
	RoleReader = "reader"
	RoleWriter = "writer"
)

// ErrNoTenantToken indicates no token is configured for a tenant/role pair.
var ErrNoTenantToken = errors.New("no token configured for tenant")

// Config holds the complete trimd configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	OIDC        OIDCConfig        `koanf:"oidc"`
	Astra       AstraConfig       `koanf:"astra"`
	Collections CollectionsConfig `koanf:"collections"`
	RateLimit   RateLimitConfig   `koanf:"ratelimit"`
	Retrieval   RetrievalConfig   `koanf:"retrieval"`
	Log         LogConfig         `koanf:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// OIDCConfig holds token verification configuration.
type OIDCConfig struct {
	// Issuer is the OIDC issuer URL. The JWKS endpoint is derived as
	// {issuer}/.well-known/jwks.json.
	Issuer   string `koanf:"issuer"`
	Audience string `koanf:"audience"`
	// JWKSRefresh is the minimum interval between JWKS re-fetches.
	JWKSRefresh Duration `koanf:"jwks_refresh"`
}

// AstraConfig holds Astra DB Data API configuration.
type AstraConfig struct {
	DBID     string   `koanf:"db_id"`
	Region   string   `koanf:"region"`
	Keyspace string   `koanf:"keyspace"`
	Timeout  Duration `koanf:"timeout"`

	// TokensJSON is the raw per-tenant token map, shaped as
	// {"acme": {"reader": "...", "writer": "..."}}. Parsed into Tenants
	// during load; the raw value is a Secret so it never reaches logs.
	TokensJSON Secret `koanf:"tokens_json"`

	// Tenants maps tenant ID to its reader/writer tokens.
	Tenants map[string]TenantTokens `koanf:"-"`
}

// TenantTokens holds the per-tenant Astra credentials.
type TenantTokens struct {
	Reader Secret `json:"reader"`
	Writer Secret `json:"writer"`
}

// CollectionsConfig controls collection isolation.
type CollectionsConfig struct {
	// Mode is per_tenant or shared. Fixed for process lifetime.
	Mode string `koanf:"mode"`
	// SharedName is the collection name used in shared mode.
	SharedName string `koanf:"shared_name"`
}

// RateLimitConfig holds the per-subject rate limit.
type RateLimitConfig struct {
	PerMinute int `koanf:"per_minute"`
}

// RetrievalConfig holds query-path tuning.
type RetrievalConfig struct {
	// MaxResults caps the candidate count requested from the store.
	MaxResults int `koanf:"max_results"`
}

// LogConfig holds logging configuration surfaced through the main config.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// BaseURL builds the Data API base URL for the configured database.
func (a AstraConfig) BaseURL() string {
	return fmt.Sprintf("https://%s-%s.apps.astra.datastax.com/api/json/v1/%s",
		a.DBID, a.Region, a.Keyspace)
}

// Token returns the token for a tenant and role (RoleReader or RoleWriter).
func (a AstraConfig) Token(tenantID, role string) (Secret, error) {
	tokens, ok := a.Tenants[tenantID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoTenantToken, tenantID)
	}
	switch role {
	case RoleReader:
		if !tokens.Reader.IsSet() {
			return "", fmt.Errorf("%w: %q has no reader token", ErrNoTenantToken, tenantID)
		}
		return tokens.Reader, nil
	case RoleWriter:
		if !tokens.Writer.IsSet() {
			return "", fmt.Errorf("%w: %q has no writer token", ErrNoTenantToken, tenantID)
		}
		return tokens.Writer, nil
	default:
		return "", fmt.Errorf("unknown token role %q", role)
	}
}

// SharedMode reports whether the shared isolation mode is active.
func (c *Config) SharedMode() bool {
	return c.Collections.Mode == ModeShared
}

// parseTenantTokens parses the raw TOKENS_JSON value into the Tenants map.
func (a *AstraConfig) parseTenantTokens() error {
	if !a.TokensJSON.IsSet() {
		return nil
	}
	tenants := make(map[string]TenantTokens)
	if err := json.Unmarshal([]byte(a.TokensJSON.Value()), &tenants); err != nil {
		return fmt.Errorf("invalid tokens_json: %w", err)
	}
	a.Tenants = tenants
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.OIDC.JWKSRefresh == 0 {
		cfg.OIDC.JWKSRefresh = Duration(15 * time.Minute)
	}
	if cfg.Astra.Region == "" {
		cfg.Astra.Region = "us-east1"
	}
	if cfg.Astra.Keyspace == "" {
		cfg.Astra.Keyspace = "rag"
	}
	if cfg.Astra.Timeout == 0 {
		cfg.Astra.Timeout = Duration(30 * time.Second)
	}
	if cfg.Collections.Mode == "" {
		cfg.Collections.Mode = ModePerTenant
	}
	if cfg.Collections.SharedName == "" {
		cfg.Collections.SharedName = "chunks"
	}
	if cfg.RateLimit.PerMinute == 0 {
		cfg.RateLimit.PerMinute = 60
	}
	if cfg.Retrieval.MaxResults == 0 {
		cfg.Retrieval.MaxResults = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.OIDC.Issuer == "" {
		return errors.New("oidc issuer is required")
	}
	if c.OIDC.Audience == "" {
		return errors.New("oidc audience is required")
	}
	if c.Astra.DBID == "" {
		return errors.New("astra db_id is required")
	}
	if len(c.Astra.Tenants) == 0 {
		return errors.New("at least one tenant token entry is required (set TOKENS_JSON)")
	}
	for tenant, tokens := range c.Astra.Tenants {
		if !tokens.Reader.IsSet() || !tokens.Writer.IsSet() {
			return fmt.Errorf("tenant %q must have both reader and writer tokens", tenant)
		}
	}
	if c.Collections.Mode != ModePerTenant && c.Collections.Mode != ModeShared {
		return fmt.Errorf("invalid collections mode: %q (must be %q or %q)",
			c.Collections.Mode, ModePerTenant, ModeShared)
	}
	if c.Collections.Mode == ModeShared && c.Collections.SharedName == "" {
		return errors.New("shared collection name required in shared mode")
	}
	if c.RateLimit.PerMinute < 1 {
		return fmt.Errorf("rate limit must be positive, got %d", c.RateLimit.PerMinute)
	}
	if c.Retrieval.MaxResults < 1 {
		return fmt.Errorf("retrieval max_results must be positive, got %d", c.Retrieval.MaxResults)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got %q", c.Log.Format)
	}
	return nil
}
