package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/securetrim/trimd/internal/astra"
	"github.com/securetrim/trimd/internal/config"
	"github.com/securetrim/trimd/internal/identity"
	"github.com/securetrim/trimd/internal/retrieval"
)

// errorBody is the error response shape. Code carries a machine-readable
// marker for errors callers are expected to act on.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps domain errors onto HTTP responses. Authentication failures
// are reported without detail beyond their class; operational failures
// include an actionable code.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, identity.ErrTokenMissing):
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "missing bearer token"})
	case errors.Is(err, identity.ErrTokenExpired):
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "token expired"})
	case errors.Is(err, identity.ErrTokenInvalid), errors.Is(err, identity.ErrClaimMissing):
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "invalid token"})
	case errors.Is(err, retrieval.ErrTenantMismatch):
		return c.JSON(http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.Is(err, astra.ErrCollectionMissing):
		return c.JSON(http.StatusInternalServerError, errorBody{
			Error: "collection not provisioned for tenant; provision it and retry",
			Code:  "collection_missing",
		})
	case errors.Is(err, astra.ErrStoreUnavailable), errors.Is(err, identity.ErrJWKSUnavailable):
		return c.JSON(http.StatusBadGateway, errorBody{Error: "upstream unavailable, retry later"})
	case errors.Is(err, astra.ErrInvalidTenantID):
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, config.ErrNoTenantToken):
		return c.JSON(http.StatusInternalServerError, errorBody{
			Error: "tenant has no store credentials configured",
			Code:  "tenant_not_provisioned",
		})
	default:
		var vErr validator.ValidationErrors
		if errors.As(err, &vErr) {
			return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: vErr.Error()})
		}
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
