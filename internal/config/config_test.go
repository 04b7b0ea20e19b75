package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// validConfig returns a config that passes Validate.
func validConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.OIDC.Issuer = "https://issuer.example.com"
	cfg.OIDC.Audience = "trimd-api"
	cfg.Astra.DBID = "00000000-0000-0000-0000-000000000000"
	cfg.Astra.Tenants = map[string]TenantTokens{
		"acme": {Reader: "r-token", Writer: "w-token"},
	}
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantMsg: "invalid server port",
		},
		{
			name:    "missing issuer",
			mutate:  func(c *Config) { c.OIDC.Issuer = "" },
			wantMsg: "issuer",
		},
		{
			name:    "missing audience",
			mutate:  func(c *Config) { c.OIDC.Audience = "" },
			wantMsg: "audience",
		},
		{
			name:    "missing db id",
			mutate:  func(c *Config) { c.Astra.DBID = "" },
			wantMsg: "db_id",
		},
		{
			name:    "no tenants",
			mutate:  func(c *Config) { c.Astra.Tenants = nil },
			wantMsg: "tenant token",
		},
		{
			name: "tenant missing writer token",
			mutate: func(c *Config) {
				c.Astra.Tenants = map[string]TenantTokens{"acme": {Reader: "r"}}
			},
			wantMsg: "reader and writer",
		},
		{
			name:    "bad collection mode",
			mutate:  func(c *Config) { c.Collections.Mode = "global" },
			wantMsg: "invalid collections mode",
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.RateLimit.PerMinute = -1 },
			wantMsg: "rate limit",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantMsg: "log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() = %q, want substring %q", err, tt.wantMsg)
			}
		})
	}
}

func TestAstraConfig_Token(t *testing.T) {
	a := AstraConfig{
		Tenants: map[string]TenantTokens{
			"acme": {Reader: "reader-token", Writer: "writer-token"},
		},
	}

	reader, err := a.Token("acme", RoleReader)
	if err != nil {
		t.Fatalf("Token(reader) error = %v", err)
	}
	if reader.Value() != "reader-token" {
		t.Errorf("reader token = %q, want %q", reader.Value(), "reader-token")
	}

	writer, err := a.Token("acme", RoleWriter)
	if err != nil {
		t.Fatalf("Token(writer) error = %v", err)
	}
	if writer.Value() != "writer-token" {
		t.Errorf("writer token = %q, want %q", writer.Value(), "writer-token")
	}

	if _, err := a.Token("zen", RoleReader); err == nil {
		t.Error("Token(unknown tenant) = nil, want error")
	}
	if _, err := a.Token("acme", "admin"); err == nil {
		t.Error("Token(unknown role) = nil, want error")
	}
}

func TestAstraConfig_BaseURL(t *testing.T) {
	a := AstraConfig{DBID: "db123", Region: "us-east1", Keyspace: "rag"}
	want := "https://db123-us-east1.apps.astra.datastax.com/api/json/v1/rag"
	if got := a.BaseURL(); got != want {
		t.Errorf("BaseURL() = %q, want %q", got, want)
	}
}

func TestParseTenantTokens(t *testing.T) {
	a := AstraConfig{
		TokensJSON: Secret(`{"acme":{"reader":"r1","writer":"w1"},"zen":{"reader":"r2","writer":"w2"}}`),
	}
	if err := a.parseTenantTokens(); err != nil {
		t.Fatalf("parseTenantTokens() error = %v", err)
	}
	if len(a.Tenants) != 2 {
		t.Fatalf("len(Tenants) = %d, want 2", len(a.Tenants))
	}
	if a.Tenants["zen"].Writer.Value() != "w2" {
		t.Errorf("zen writer = %q, want %q", a.Tenants["zen"].Writer.Value(), "w2")
	}

	bad := AstraConfig{TokensJSON: Secret(`{"acme":`)}
	if err := bad.parseTenantTokens(); err == nil {
		t.Error("parseTenantTokens(malformed) = nil, want error")
	}
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("super-secret")
	if s.String() != "[REDACTED]" {
		t.Errorf("String() = %q, want [REDACTED]", s.String())
	}
	if s.Value() != "super-secret" {
		t.Errorf("Value() = %q, want raw value", s.Value())
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	if string(data) != `"[REDACTED]"` {
		t.Errorf("MarshalJSON = %s, want \"[REDACTED]\"", data)
	}

	var round Secret
	if err := json.Unmarshal([]byte(`"raw-value"`), &round); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if round.Value() != "raw-value" {
		t.Errorf("round-trip = %q, want %q", round.Value(), "raw-value")
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("45s")); err != nil {
		t.Fatalf("UnmarshalText error = %v", err)
	}
	if d.Duration() != 45*time.Second {
		t.Errorf("Duration() = %v, want 45s", d.Duration())
	}

	if err := d.UnmarshalText([]byte("-5s")); err == nil {
		t.Error("UnmarshalText(-5s) = nil, want error")
	}
	if err := d.UnmarshalText([]byte("nonsense")); err == nil {
		t.Error("UnmarshalText(nonsense) = nil, want error")
	}
}
