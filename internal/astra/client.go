// Package astra is a client for the DataStax Astra DB Data API, the JSON over
// HTTPS document interface. It covers the two commands the service needs,
// find and insertOne, with per-tenant token selection and a typed filter
// expression tree. Similarity ranking and embeddings are server-side: a find
// sorted on the $vectorize pseudo-field embeds the query text inside the
// store, and an insert carrying $vectorize embeds the document text.
package astra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/securetrim/trimd/internal/config"
	"github.com/securetrim/trimd/internal/logging"
)

// findProjection lists the stored fields the service reads back. ACL metadata
// is always included so enforcement can re-verify every candidate locally.
var findProjection = map[string]int{
	"_id": 1, "tenant_id": 1, "doc_id": 1, "text": 1, "visibility": 1,
	"allow_teams": 1, "allow_users": 1, "deny_users": 1, "owner_user_ids": 1,
	"valid_from": 1, "valid_to": 1,
}

// Client talks to one Astra database/keyspace. Safe for concurrent use.
type Client struct {
	cfg     config.AstraConfig
	baseURL string
	http    *http.Client
	logger  *logging.Logger
}

// NewClient builds a client from config. Request timeouts come from
// cfg.Timeout.
func NewClient(cfg config.AstraConfig, logger *logging.Logger) *Client {
	return &Client{
		cfg:     cfg,
		baseURL: cfg.BaseURL(),
		http:    &http.Client{Timeout: cfg.Timeout.Duration()},
		logger:  logger.Named("astra"),
	}
}

// FindRequest describes a find command against one collection.
type FindRequest struct {
	TenantID   string
	Collection string
	Filter     *Filter
	// Vectorize is the query text for similarity ranking. Empty runs the
	// find unranked.
	Vectorize string
	Limit     int
}

// apiError is one entry of the Data API errors array.
type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

type apiResponse struct {
	Data *struct {
		Documents []Document `json:"documents"`
	} `json:"data"`
	Status struct {
		InsertedIDs []string `json:"insertedIds"`
	} `json:"status"`
	Errors []apiError `json:"errors"`
}

// Find runs a find command with the tenant's reader token. A response that
// carries documents alongside errors is treated as partial success: the
// documents are returned and the errors logged, since every candidate is
// re-verified locally anyway.
func (c *Client) Find(ctx context.Context, req FindRequest) ([]Document, error) {
	token, err := c.cfg.Token(req.TenantID, config.RoleReader)
	if err != nil {
		return nil, err
	}

	find := map[string]interface{}{
		"projection": findProjection,
		"options":    map[string]interface{}{"limit": req.Limit},
	}
	if req.Filter != nil {
		if err := req.Filter.Validate(); err != nil {
			return nil, err
		}
		find["filter"] = req.Filter
	}
	if req.Vectorize != "" {
		find["sort"] = map[string]string{"$vectorize": req.Vectorize}
	}

	resp, err := c.command(ctx, req.Collection, token, map[string]interface{}{"find": find})
	if err != nil {
		return nil, err
	}

	var docs []Document
	if resp.Data != nil {
		docs = resp.Data.Documents
	}
	if len(resp.Errors) > 0 {
		if len(docs) == 0 {
			return nil, classify(resp.Errors[0])
		}
		c.logger.Warn(ctx, "find returned partial results",
			zap.String("collection", req.Collection),
			zap.Int("documents", len(docs)),
			zap.String("first_error", resp.Errors[0].ErrorCode))
	}
	return docs, nil
}

// Insert stores one document with the tenant's writer token and returns the
// storage ID. With vectorize set the document text is embedded server-side;
// callers downgrade to vectorize=false when the embedding service is not
// configured.
func (c *Client) Insert(ctx context.Context, collection string, doc Document, vectorize bool) (string, error) {
	token, err := c.cfg.Token(doc.TenantID, config.RoleWriter)
	if err != nil {
		return "", err
	}

	fields, err := documentFields(doc)
	if err != nil {
		return "", err
	}
	if _, ok := fields["_id"]; !ok {
		fields["_id"] = uuid.NewString()
	}
	if vectorize {
		fields["$vectorize"] = doc.Text
	}

	resp, err := c.command(ctx, collection, token, map[string]interface{}{
		"insertOne": map[string]interface{}{"document": fields},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Errors) > 0 {
		return "", classify(resp.Errors[0])
	}
	if len(resp.Status.InsertedIDs) == 0 {
		return "", fmt.Errorf("%w: insert acknowledged without an ID", ErrStoreUnavailable)
	}
	return resp.Status.InsertedIDs[0], nil
}

// command POSTs one Data API command to a collection endpoint.
func (c *Client) command(ctx context.Context, collection string, token config.Secret, body map[string]interface{}) (*apiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}

	endpoint := c.baseURL + "/" + collection
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Cassandra-Token", token.Value())

	httpResp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: request timed out: %v", ErrStoreUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrStoreUnavailable, err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrStoreUnavailable, httpResp.StatusCode)
	}

	var resp apiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrStoreUnavailable, err)
	}
	return &resp, nil
}

// classify maps a Data API error entry onto the package's sentinel errors.
func classify(e apiError) error {
	switch e.ErrorCode {
	case "COLLECTION_NOT_EXIST":
		return fmt.Errorf("%w: %s", ErrCollectionMissing, e.Message)
	case "EMBEDDING_SERVICE_NOT_CONFIGURED":
		return fmt.Errorf("%w: %s", ErrEmbeddingUnavailable, e.Message)
	}
	msg := strings.ToLower(e.Message)
	if strings.Contains(msg, "vectorize") || strings.Contains(msg, "embedding") {
		return fmt.Errorf("%w: %s", ErrEmbeddingUnavailable, e.Message)
	}
	return fmt.Errorf("%w: %s (%s)", ErrStoreUnavailable, e.Message, e.ErrorCode)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

// documentFields flattens a Document into the JSON field map insertOne
// expects, so pseudo-fields like $vectorize can be attached.
func documentFields(doc Document) (map[string]interface{}, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	fields := make(map[string]interface{})
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	delete(fields, "$similarity")
	return fields, nil
}
