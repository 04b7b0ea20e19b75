package astra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securetrim/trimd/internal/config"
)

func TestCollectionName(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		shared   string
		tenantID string
		want     string
		wantErr  error
	}{
		{"per tenant", config.ModePerTenant, "chunks", "acme", "chunks_acme", nil},
		{"per tenant with underscore", config.ModePerTenant, "chunks", "acme_corp", "chunks_acme_corp", nil},
		{"shared ignores tenant in name", config.ModeShared, "chunks", "acme", "chunks", nil},
		{"empty tenant", config.ModePerTenant, "chunks", "", "", ErrInvalidTenantID},
		{"uppercase tenant", config.ModePerTenant, "chunks", "Acme", "", ErrInvalidTenantID},
		{"path traversal tenant", config.ModePerTenant, "chunks", "../other", "", ErrInvalidTenantID},
		{"shared mode validates tenant too", config.ModeShared, "chunks", "not/a/tenant", "", ErrInvalidTenantID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CollectionName(tt.mode, tt.shared, tt.tenantID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectionName_UnknownMode(t *testing.T) {
	_, err := CollectionName("sharded", "chunks", "acme")
	require.Error(t, err)
}
