package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securetrim/trimd/internal/astra"
	"github.com/securetrim/trimd/internal/config"
	"github.com/securetrim/trimd/internal/identity"
	"github.com/securetrim/trimd/internal/logging"
	"github.com/securetrim/trimd/internal/policy"
)

const today = "2026-03-15"

// fakeStore scripts store responses per call.
type fakeStore struct {
	findReqs  []astra.FindRequest
	findDocs  [][]astra.Document
	findErrs  []error
	insertTo  []string
	insertVec []bool
	insertIDs []string
	insertErr []error
}

func (f *fakeStore) Find(ctx context.Context, req astra.FindRequest) ([]astra.Document, error) {
	call := len(f.findReqs)
	f.findReqs = append(f.findReqs, req)
	var docs []astra.Document
	var err error
	if call < len(f.findDocs) {
		docs = f.findDocs[call]
	}
	if call < len(f.findErrs) {
		err = f.findErrs[call]
	}
	return docs, err
}

func (f *fakeStore) Insert(ctx context.Context, collection string, doc astra.Document, vectorize bool) (string, error) {
	call := len(f.insertTo)
	f.insertTo = append(f.insertTo, collection)
	f.insertVec = append(f.insertVec, vectorize)
	id := "storage-id"
	var err error
	if call < len(f.insertIDs) {
		id = f.insertIDs[call]
	}
	if call < len(f.insertErr) {
		err = f.insertErr[call]
	}
	return id, err
}

func testConfig(mode string) *config.Config {
	return &config.Config{
		Collections: config.CollectionsConfig{Mode: mode, SharedName: "chunks"},
		Retrieval:   config.RetrievalConfig{MaxResults: 8},
	}
}

func newService(store Store, mode string) *Service {
	return NewService(store, testConfig(mode), policy.FixedClock(today), logging.NewTestLogger().Logger)
}

func alice() *identity.User {
	return &identity.User{Subject: "alice@acme.com", Tenant: "acme", Teams: []string{"finance"}}
}

func TestQuery_ProjectsEnforcedResultsInOrder(t *testing.T) {
	store := &fakeStore{
		findDocs: [][]astra.Document{{
			{DocID: "d1", TenantID: "acme", Visibility: astra.VisibilityPublic, Text: "one"},
			{DocID: "d2", TenantID: "acme", Visibility: astra.VisibilityRestricted, AllowTeams: []string{"sales"}, Text: "hidden"},
			{DocID: "d3", TenantID: "acme", Visibility: astra.VisibilityRestricted, AllowTeams: []string{"finance"}, Text: "three"},
		}},
	}
	svc := newService(store, config.ModePerTenant)

	result, err := svc.Query(context.Background(), alice(), "quarterly numbers")
	require.NoError(t, err)

	assert.Equal(t, []Match{
		{DocID: "d1", Visibility: astra.VisibilityPublic},
		{DocID: "d3", Visibility: astra.VisibilityRestricted},
	}, result.Matches)
	assert.Equal(t, []ContextChunk{
		{DocID: "d1", Text: "one"},
		{DocID: "d3", Text: "three"},
	}, result.PromptContext)

	require.Len(t, store.findReqs, 1)
	req := store.findReqs[0]
	assert.Equal(t, "chunks_acme", req.Collection)
	assert.Equal(t, "acme", req.TenantID)
	assert.Equal(t, "quarterly numbers", req.Vectorize)
	assert.Equal(t, 8, req.Limit)

	want := policy.Compile(alice(), today, false)
	assert.True(t, req.Filter.Equal(want), "find must carry the compiled predicate")
}

func TestQuery_SharedModeFilterAndCollection(t *testing.T) {
	store := &fakeStore{findDocs: [][]astra.Document{{}}}
	svc := newService(store, config.ModeShared)

	_, err := svc.Query(context.Background(), alice(), "question")
	require.NoError(t, err)

	require.Len(t, store.findReqs, 1)
	assert.Equal(t, "chunks", store.findReqs[0].Collection)

	want := policy.Compile(alice(), today, true)
	assert.True(t, store.findReqs[0].Filter.Equal(want))
}

func TestQuery_RetriesUnrankedOnEmbeddingFailure(t *testing.T) {
	store := &fakeStore{
		findErrs: []error{astra.ErrEmbeddingUnavailable, nil},
		findDocs: [][]astra.Document{nil, {
			{DocID: "d1", TenantID: "acme", Visibility: astra.VisibilityPublic, Text: "one"},
		}},
	}
	svc := newService(store, config.ModePerTenant)

	result, err := svc.Query(context.Background(), alice(), "question")
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)

	require.Len(t, store.findReqs, 2)
	assert.Equal(t, "question", store.findReqs[0].Vectorize)
	assert.Empty(t, store.findReqs[1].Vectorize, "retry must be unranked")
}

func TestQuery_StoreFailurePropagates(t *testing.T) {
	store := &fakeStore{findErrs: []error{astra.ErrStoreUnavailable}}
	svc := newService(store, config.ModePerTenant)

	_, err := svc.Query(context.Background(), alice(), "question")
	require.ErrorIs(t, err, astra.ErrStoreUnavailable)
	assert.Len(t, store.findReqs, 1, "no retry for non-embedding failures")
}

func TestQuery_CollectionMissingPropagates(t *testing.T) {
	store := &fakeStore{findErrs: []error{astra.ErrCollectionMissing}}
	svc := newService(store, config.ModePerTenant)

	_, err := svc.Query(context.Background(), alice(), "question")
	require.ErrorIs(t, err, astra.ErrCollectionMissing)
}

func TestIngest_Stores(t *testing.T) {
	store := &fakeStore{insertIDs: []string{"id-1"}}
	svc := newService(store, config.ModePerTenant)

	receipt, err := svc.Ingest(context.Background(), alice(), astra.Document{
		TenantID: "acme", DocID: "doc-1", Text: "text", Visibility: astra.VisibilityPublic,
	})
	require.NoError(t, err)
	assert.Equal(t, "chunks_acme", receipt.Collection)
	assert.Equal(t, "doc-1", receipt.DocID)
	assert.Equal(t, "id-1", receipt.StorageID)
	assert.False(t, receipt.Degraded)

	require.Len(t, store.insertVec, 1)
	assert.True(t, store.insertVec[0], "first attempt carries the embedding request")
}

func TestIngest_TenantMismatch(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, config.ModePerTenant)

	_, err := svc.Ingest(context.Background(), alice(), astra.Document{
		TenantID: "zen", DocID: "doc-1", Text: "text", Visibility: astra.VisibilityPublic,
	})
	require.ErrorIs(t, err, ErrTenantMismatch)
	assert.Empty(t, store.insertTo, "no write attempted on tenant mismatch")
}

func TestIngest_DegradedRetry(t *testing.T) {
	store := &fakeStore{
		insertErr: []error{astra.ErrEmbeddingUnavailable, nil},
		insertIDs: []string{"", "id-2"},
	}
	svc := newService(store, config.ModePerTenant)

	receipt, err := svc.Ingest(context.Background(), alice(), astra.Document{
		TenantID: "acme", DocID: "doc-2", Text: "text", Visibility: astra.VisibilityPublic,
	})
	require.NoError(t, err)
	assert.True(t, receipt.Degraded)
	assert.Equal(t, "id-2", receipt.StorageID)

	require.Len(t, store.insertVec, 2)
	assert.True(t, store.insertVec[0])
	assert.False(t, store.insertVec[1], "retry must strip the embedding request")
}

func TestIngest_CollectionMissingNotRetried(t *testing.T) {
	store := &fakeStore{insertErr: []error{astra.ErrCollectionMissing}}
	svc := newService(store, config.ModePerTenant)

	_, err := svc.Ingest(context.Background(), alice(), astra.Document{
		TenantID: "acme", DocID: "doc-3", Text: "text", Visibility: astra.VisibilityPublic,
	})
	require.ErrorIs(t, err, astra.ErrCollectionMissing)
	assert.Len(t, store.insertTo, 1, "collection provisioning is out-of-band, never retried")
}
