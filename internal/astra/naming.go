package astra

import (
	"fmt"
	"regexp"

	"github.com/securetrim/trimd/internal/config"
)

// tenantIDPattern constrains tenant IDs so derived collection names stay valid
// Data API identifiers.
var tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_]{0,39}$`)

// CollectionName resolves the collection for a tenant under the configured
// isolation mode. In per-tenant mode each tenant gets "chunks_<tenant>"; in
// shared mode every tenant shares one collection and isolation is the query
// filter's job.
func CollectionName(mode, sharedName, tenantID string) (string, error) {
	if !tenantIDPattern.MatchString(tenantID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTenantID, tenantID)
	}
	switch mode {
	case config.ModeShared:
		if sharedName == "" {
			return "", fmt.Errorf("shared collection name is empty")
		}
		return sharedName, nil
	case config.ModePerTenant:
		return "chunks_" + tenantID, nil
	default:
		return "", fmt.Errorf("unknown collection mode %q", mode)
	}
}
