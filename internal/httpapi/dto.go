package httpapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/securetrim/trimd/internal/astra"
)

// IngestRequest is the ingest request body. Dates are ISO YYYY-MM-DD.
type IngestRequest struct {
	TenantID     string   `json:"tenant_id" validate:"required"`
	DocID        string   `json:"doc_id" validate:"required"`
	Text         string   `json:"text" validate:"required"`
	Visibility   string   `json:"visibility" validate:"required,oneof=public internal restricted"`
	AllowTeams   []string `json:"allow_teams"`
	AllowUsers   []string `json:"allow_users"`
	DenyUsers    []string `json:"deny_users"`
	OwnerUserIDs []string `json:"owner_user_ids"`
	ValidFrom    string   `json:"valid_from" validate:"omitempty,datetime=2006-01-02"`
	ValidTo      string   `json:"valid_to" validate:"omitempty,datetime=2006-01-02"`
}

// document maps the request body onto the storage model.
func (r IngestRequest) document() astra.Document {
	return astra.Document{
		TenantID:     r.TenantID,
		DocID:        r.DocID,
		Text:         r.Text,
		Visibility:   astra.Visibility(r.Visibility),
		AllowTeams:   r.AllowTeams,
		AllowUsers:   r.AllowUsers,
		DenyUsers:    r.DenyUsers,
		OwnerUserIDs: r.OwnerUserIDs,
		ValidFrom:    r.ValidFrom,
		ValidTo:      r.ValidTo,
	}
}

// IngestResponse acknowledges a stored document. Status is "stored" or
// "stored_degraded".
type IngestResponse struct {
	Status     string `json:"status"`
	Collection string `json:"collection"`
	DocID      string `json:"doc_id"`
	Degraded   bool   `json:"degraded"`
}

// QueryRequest is the query request body.
type QueryRequest struct {
	Question string `json:"question" validate:"required"`
}

// requestValidator adapts validator/v10 to echo's Validator interface.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	return &requestValidator{validate: validator.New()}
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
