// Package retrieval orchestrates the two request paths: similarity query with
// access trimming, and document ingestion. Both paths degrade rather than
// fail when the store's embedding subsystem is unavailable.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/securetrim/trimd/internal/astra"
	"github.com/securetrim/trimd/internal/config"
	"github.com/securetrim/trimd/internal/identity"
	"github.com/securetrim/trimd/internal/logging"
	"github.com/securetrim/trimd/internal/policy"
)

// ErrTenantMismatch indicates an ingest targeting a tenant other than the
// caller's. No write is attempted.
var ErrTenantMismatch = errors.New("document tenant does not match token tenant")

// Store is the document-store surface the service consumes.
type Store interface {
	Find(ctx context.Context, req astra.FindRequest) ([]astra.Document, error)
	Insert(ctx context.Context, collection string, doc astra.Document, vectorize bool) (string, error)
}

// Match is the auditable view of one surviving candidate.
type Match struct {
	DocID      string           `json:"doc_id"`
	Visibility astra.Visibility `json:"visibility"`
}

// ContextChunk is the consumable view of one surviving candidate.
type ContextChunk struct {
	DocID string `json:"doc_id"`
	Text  string `json:"text"`
}

// Result carries the two parallel projections of the surviving set, both in
// store ranking order.
type Result struct {
	Matches       []Match        `json:"matches"`
	PromptContext []ContextChunk `json:"prompt_context"`
}

// IngestReceipt reports where a document landed. Degraded marks a write that
// succeeded without server-side embedding and is not yet searchable by
// similarity.
type IngestReceipt struct {
	Collection string
	DocID      string
	StorageID  string
	Degraded   bool
}

// Service wires the policy layer to the store.
type Service struct {
	store  Store
	cfg    *config.Config
	clock  policy.Clock
	logger *logging.Logger
}

// NewService builds the orchestrator. clock defaults to UTC when nil.
func NewService(store Store, cfg *config.Config, clock policy.Clock, logger *logging.Logger) *Service {
	if clock == nil {
		clock = policy.UTCClock{}
	}
	return &Service{
		store:  store,
		cfg:    cfg,
		clock:  clock,
		logger: logger.Named("retrieval"),
	}
}

// Query runs a security-trimmed similarity search. If the store cannot rank
// (embedding subsystem unavailable) the find is retried once unranked;
// ranking is a quality enhancement, not a correctness requirement. Every
// candidate the store returns passes through the enforcer before projection.
func (s *Service) Query(ctx context.Context, user *identity.User, question string) (*Result, error) {
	today := s.clock.Today()
	filter := policy.Compile(user, today, s.cfg.SharedMode())

	collection, err := astra.CollectionName(s.cfg.Collections.Mode, s.cfg.Collections.SharedName, user.Tenant)
	if err != nil {
		return nil, err
	}

	req := astra.FindRequest{
		TenantID:   user.Tenant,
		Collection: collection,
		Filter:     filter,
		Vectorize:  question,
		Limit:      s.cfg.Retrieval.MaxResults,
	}

	docs, err := s.store.Find(ctx, req)
	if errors.Is(err, astra.ErrEmbeddingUnavailable) {
		s.logger.Warn(ctx, "similarity ranking unavailable, retrying unranked",
			zap.String("collection", collection))
		req.Vectorize = ""
		docs, err = s.store.Find(ctx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("find failed: %w", err)
	}

	kept := policy.Enforce(docs, user, today)
	s.logger.Debug(ctx, "query trimmed",
		zap.String("collection", collection),
		zap.Int("candidates", len(docs)),
		zap.Int("survivors", len(kept)))

	result := &Result{
		Matches:       make([]Match, 0, len(kept)),
		PromptContext: make([]ContextChunk, 0, len(kept)),
	}
	for _, doc := range kept {
		result.Matches = append(result.Matches, Match{DocID: doc.DocID, Visibility: doc.Visibility})
		result.PromptContext = append(result.PromptContext, ContextChunk{DocID: doc.DocID, Text: doc.Text})
	}
	return result, nil
}

// Ingest writes one document into the caller's tenant space. The write
// carries a server-side embedding request; if the embedding subsystem is
// unconfigured the write is retried once without it and the receipt marked
// degraded. A missing collection is fatal and not retried.
func (s *Service) Ingest(ctx context.Context, user *identity.User, doc astra.Document) (*IngestReceipt, error) {
	if doc.TenantID != user.Tenant {
		return nil, fmt.Errorf("%w: token tenant %q, document tenant %q",
			ErrTenantMismatch, user.Tenant, doc.TenantID)
	}

	collection, err := astra.CollectionName(s.cfg.Collections.Mode, s.cfg.Collections.SharedName, doc.TenantID)
	if err != nil {
		return nil, err
	}

	degraded := false
	storageID, err := s.store.Insert(ctx, collection, doc, true)
	if errors.Is(err, astra.ErrEmbeddingUnavailable) {
		s.logger.Warn(ctx, "embedding unavailable, storing without vectorization",
			zap.String("collection", collection),
			zap.String("doc_id", doc.DocID))
		degraded = true
		storageID, err = s.store.Insert(ctx, collection, doc, false)
	}
	if err != nil {
		return nil, fmt.Errorf("insert failed: %w", err)
	}

	s.logger.Info(ctx, "document stored",
		zap.String("collection", collection),
		zap.String("doc_id", doc.DocID),
		zap.Bool("degraded", degraded))

	return &IngestReceipt{
		Collection: collection,
		DocID:      doc.DocID,
		StorageID:  storageID,
		Degraded:   degraded,
	}, nil
}
