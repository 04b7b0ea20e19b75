package astra

import "errors"

var (
	// ErrCollectionMissing indicates the target collection has not been
	// provisioned in the keyspace. Not retryable.
	ErrCollectionMissing = errors.New("collection does not exist")

	// ErrEmbeddingUnavailable indicates the store cannot compute server-side
	// embeddings ($vectorize). Callers may retry the operation without
	// vectorization.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreUnavailable indicates the store could not be reached or timed
	// out. Retryable.
	ErrStoreUnavailable = errors.New("document store unavailable")

	// ErrInvalidTenantID indicates a tenant ID unusable for collection naming.
	ErrInvalidTenantID = errors.New("invalid tenant ID")

	// ErrInvalidFilter indicates a structurally malformed filter expression.
	ErrInvalidFilter = errors.New("invalid filter expression")
)
