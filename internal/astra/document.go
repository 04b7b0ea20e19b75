package astra

// Visibility is a document's coarse access tier.
type Visibility string

const (
	// VisibilityPublic documents are readable by every authenticated user of
	// the tenant.
	VisibilityPublic Visibility = "public"
	// VisibilityInternal documents are readable by every authenticated user
	// of the tenant. The tier exists so documents can be labeled for future
	// narrowing without a re-ingest.
	VisibilityInternal Visibility = "internal"
	// VisibilityRestricted documents are readable only through an explicit
	// allow-list or ownership grant.
	VisibilityRestricted Visibility = "restricted"
)

// Valid reports whether v is a known visibility tier.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityInternal, VisibilityRestricted:
		return true
	}
	return false
}

// Document is a stored text chunk with its ACL metadata. JSON tags match the
// stored field names. Dates are ISO YYYY-MM-DD strings so lexicographic order
// equals chronological order; empty means unbounded on that side.
type Document struct {
	ID         string     `json:"_id,omitempty"`
	TenantID   string     `json:"tenant_id"`
	DocID      string     `json:"doc_id"`
	Text       string     `json:"text"`
	Visibility Visibility `json:"visibility"`

	AllowTeams   []string `json:"allow_teams,omitempty"`
	AllowUsers   []string `json:"allow_users,omitempty"`
	DenyUsers    []string `json:"deny_users,omitempty"`
	OwnerUserIDs []string `json:"owner_user_ids,omitempty"`

	ValidFrom string `json:"valid_from,omitempty"`
	ValidTo   string `json:"valid_to,omitempty"`

	Similarity float64 `json:"$similarity,omitempty"`
}
