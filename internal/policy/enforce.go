package policy

import (
	"github.com/securetrim/trimd/internal/astra"
	"github.com/securetrim/trimd/internal/identity"
)

// Enforce re-verifies every candidate the store returned and drops the ones
// the caller may not see. Four independent gates run on each document with no
// short-circuit between them: the restricted-ACL recheck, the deny list, and
// both edges of the validity window. Deny and date gates apply to every
// visibility tier, not just restricted. Input order is preserved.
func Enforce(docs []astra.Document, user *identity.User, today string) []astra.Document {
	kept := make([]astra.Document, 0, len(docs))
	for _, doc := range docs {
		if permitted(doc, user, today) {
			kept = append(kept, doc)
		}
	}
	return kept
}

// permitted evaluates all four gates. Every gate runs even after one fails.
func permitted(doc astra.Document, user *identity.User, today string) bool {
	ok := true
	if doc.Visibility == astra.VisibilityRestricted && !restrictedGrant(doc, user) {
		ok = false
	}
	if contains(doc.DenyUsers, user.Subject) {
		ok = false
	}
	// Dates are ISO YYYY-MM-DD strings; lexicographic comparison is
	// chronological. Both bounds are inclusive.
	if doc.ValidFrom != "" && doc.ValidFrom > today {
		ok = false
	}
	if doc.ValidTo != "" && doc.ValidTo < today {
		ok = false
	}
	return ok
}

// restrictedGrant is the exact local form of the compiler's restricted
// branch: allow-list, ownership, or team overlap.
func restrictedGrant(doc astra.Document, user *identity.User) bool {
	if contains(doc.AllowUsers, user.Subject) {
		return true
	}
	if contains(doc.OwnerUserIDs, user.Subject) {
		return true
	}
	for _, team := range user.Teams {
		if contains(doc.AllowTeams, team) {
			return true
		}
	}
	return false
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
