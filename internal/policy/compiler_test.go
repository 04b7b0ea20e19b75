package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securetrim/trimd/internal/astra"
	"github.com/securetrim/trimd/internal/identity"
)

const today = "2026-03-15"

func alice() *identity.User {
	return &identity.User{
		Subject: "alice@acme.com",
		Tenant:  "acme",
		Teams:   []string{"finance", "search"},
	}
}

func TestCompile_PerTenantShape(t *testing.T) {
	got := Compile(alice(), today, false)

	want := astra.Or(
		astra.Eq("visibility", "public"),
		astra.Eq("visibility", "internal"),
		astra.And(
			astra.Eq("visibility", "restricted"),
			astra.Or(
				astra.In("allow_users", "alice@acme.com"),
				astra.In("owner_user_ids", "alice@acme.com"),
				astra.In("allow_teams", "finance"),
				astra.In("allow_teams", "search"),
			),
		),
	)

	assert.True(t, got.Equal(want), "compiled filter does not match expected shape")
	require.NoError(t, got.Validate())
}

func TestCompile_SharedModeAppendsTenantConjunct(t *testing.T) {
	perTenant := Compile(alice(), today, false)
	shared := Compile(alice(), today, true)

	want := astra.And(perTenant, astra.Eq("tenant_id", "acme"))
	assert.True(t, shared.Equal(want), "shared mode must wrap the visibility disjunction with a tenant conjunct")
	require.NoError(t, shared.Validate())
}

func TestCompile_NoTeamsOmitsTeamClauses(t *testing.T) {
	user := &identity.User{Subject: "bob@acme.com", Tenant: "acme"}
	got := Compile(user, today, false)

	want := astra.Or(
		astra.Eq("visibility", "public"),
		astra.Eq("visibility", "internal"),
		astra.And(
			astra.Eq("visibility", "restricted"),
			astra.Or(
				astra.In("allow_users", "bob@acme.com"),
				astra.In("owner_user_ids", "bob@acme.com"),
			),
		),
	)

	assert.True(t, got.Equal(want), "zero teams must still produce a valid restricted branch")
	require.NoError(t, got.Validate())
}

func TestCompile_Idempotent(t *testing.T) {
	first := Compile(alice(), today, true)
	second := Compile(alice(), today, true)
	assert.True(t, first.Equal(second))
}

func TestCompile_DoesNotCompileDateOrDenyClauses(t *testing.T) {
	filter := Compile(alice(), today, true)

	var walk func(f *astra.Filter)
	var fields []string
	walk = func(f *astra.Filter) {
		if f.Field != "" {
			fields = append(fields, f.Field)
		}
		for _, sub := range f.Filters {
			walk(sub)
		}
	}
	walk(filter)

	for _, field := range fields {
		assert.NotContains(t, []string{"deny_users", "valid_from", "valid_to"}, field,
			"deny and date checks belong to the enforcer, not the storage predicate")
	}
}
