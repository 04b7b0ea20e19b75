// Package policy implements the two halves of access control: the compiler,
// which turns a caller identity into a storage-level filter, and the
// enforcer, which re-verifies every candidate the store returns. The compiled
// filter is a sound over-approximation of true access rights; exactness is
// the enforcer's job.
package policy

import (
	"github.com/securetrim/trimd/internal/astra"
	"github.com/securetrim/trimd/internal/identity"
)

// Compile builds the storage predicate for a caller. The predicate is a
// disjunction over the three visibility tiers: public and internal match
// unconditionally for any authenticated user, restricted matches only with an
// explicit allow-list, ownership or team grant. The team-overlap clause is
// one membership test per team the user holds and is omitted entirely when
// the user has no teams, so the restricted branch is always structurally
// valid.
//
// In shared mode a top-level tenant_id conjunct scopes every branch to the
// caller's tenant. In per-tenant mode collection naming enforces that
// boundary physically and no conjunct is added.
//
// Date-validity and deny-list checks are never compiled: the store cannot
// express negative array membership and date fields carry no index guarantee.
// Enforce re-verifies them on every candidate. today is part of the contract
// so a future promotion of the date bounds into the predicate does not change
// call sites; the current predicate does not depend on it.
//
// Compile is pure: identical inputs yield structurally equal filters.
func Compile(user *identity.User, today string, sharedMode bool) *astra.Filter {
	grants := []*astra.Filter{
		astra.In("allow_users", user.Subject),
		astra.In("owner_user_ids", user.Subject),
	}
	for _, team := range user.Teams {
		grants = append(grants, astra.In("allow_teams", team))
	}

	visibility := astra.Or(
		astra.Eq("visibility", string(astra.VisibilityPublic)),
		astra.Eq("visibility", string(astra.VisibilityInternal)),
		astra.And(
			astra.Eq("visibility", string(astra.VisibilityRestricted)),
			astra.Or(grants...),
		),
	)

	if !sharedMode {
		return visibility
	}
	return astra.And(visibility, astra.Eq("tenant_id", user.Tenant))
}
