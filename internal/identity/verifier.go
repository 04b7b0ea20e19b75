package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/securetrim/trimd/internal/config"
	"github.com/securetrim/trimd/internal/logging"
)

// Verifier turns a raw bearer token into a resolved User.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*User, error)
}

// OIDCVerifier validates RS256 tokens against the issuer's JWKS endpoint.
// Keys are cached and refreshed in the background.
type OIDCVerifier struct {
	issuer   string
	audience string
	jwksURL  string
	cache    *jwk.Cache
	logger   *logging.Logger
}

// NewOIDCVerifier builds a verifier for the configured issuer. The JWKS
// endpoint is derived as {issuer}/.well-known/jwks.json. ctx bounds the
// lifetime of the background key refresh.
func NewOIDCVerifier(ctx context.Context, cfg config.OIDCConfig, logger *logging.Logger) (*OIDCVerifier, error) {
	jwksURL := strings.TrimSuffix(cfg.Issuer, "/") + "/.well-known/jwks.json"

	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(cfg.JWKSRefresh.Duration())); err != nil {
		return nil, fmt.Errorf("failed to register jwks endpoint: %w", err)
	}

	return &OIDCVerifier{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		jwksURL:  jwksURL,
		cache:    cache,
		logger:   logger.Named("identity"),
	}, nil
}

// Verify validates the token's signature, issuer, audience and time claims,
// then resolves the User from its claims.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*User, error) {
	if rawToken == "" {
		return nil, ErrTokenMissing
	}

	keySet, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSUnavailable, err)
	}

	tok, err := jwt.Parse([]byte(rawToken),
		jwt.WithKeySet(keySet),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithValidate(true),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	return UserFromToken(tok)
}

// UserFromToken resolves a User from an already-validated token. The sub and
// tenant claims are required; teams is optional and accepts both array and
// comma-separated forms.
func UserFromToken(tok jwt.Token) (*User, error) {
	subject := tok.Subject()
	if subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrClaimMissing)
	}

	tenantRaw, ok := tok.Get("tenant")
	if !ok {
		return nil, fmt.Errorf("%w: tenant", ErrClaimMissing)
	}
	tenant, ok := tenantRaw.(string)
	if !ok || tenant == "" {
		return nil, fmt.Errorf("%w: tenant", ErrClaimMissing)
	}

	var teams []string
	if teamsRaw, ok := tok.Get("teams"); ok {
		var err error
		teams, err = NormalizeTeams(teamsRaw)
		if err != nil {
			return nil, err
		}
	}

	return &User{
		Subject: subject,
		Tenant:  tenant,
		Teams:   teams,
	}, nil
}
