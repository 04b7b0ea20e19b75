// Package identity resolves the authenticated caller from OIDC-issued JWTs.
// Verification goes through the issuer's JWKS endpoint; the resulting User is
// built per request from verified claims and never persisted.
package identity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTokenMissing indicates no bearer token was presented.
	ErrTokenMissing = errors.New("missing bearer token")

	// ErrTokenInvalid indicates the token failed signature or claim
	// validation.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrClaimMissing indicates a required identity claim is absent or empty.
	ErrClaimMissing = errors.New("required claim missing")

	// ErrJWKSUnavailable indicates the issuer's key set could not be fetched.
	ErrJWKSUnavailable = errors.New("jwks unavailable")
)

// User is the caller identity resolved from a verified token. Immutable for
// the request's lifetime.
type User struct {
	// Subject is the stable user identifier (the sub claim).
	Subject string
	// Tenant scopes every operation the user performs.
	Tenant string
	// Teams the user belongs to, used for restricted-document access.
	Teams []string
}

// NormalizeTeams converts a teams claim into a clean string slice. Issuers
// emit the claim either as a JSON array or as a comma-separated string; both
// are accepted. Entries are trimmed and empties dropped.
func NormalizeTeams(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return cleanTeams(v), nil
	case []interface{}:
		teams := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: teams entry is not a string", ErrTokenInvalid)
			}
			teams = append(teams, s)
		}
		return cleanTeams(teams), nil
	case string:
		return cleanTeams(strings.Split(v, ",")), nil
	default:
		return nil, fmt.Errorf("%w: unsupported teams claim type %T", ErrTokenInvalid, raw)
	}
}

func cleanTeams(teams []string) []string {
	out := make([]string, 0, len(teams))
	for _, t := range teams {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
