package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIngest(c echo.Context) error {
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "malformed request body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	ctx := c.Request().Context()
	receipt, err := s.svc.Ingest(ctx, currentUser(c), req.document())
	if err != nil {
		s.logger.Error(ctx, "ingest failed",
			zap.String("doc_id", req.DocID),
			zap.Error(err))
		return writeError(c, err)
	}

	status := "stored"
	if receipt.Degraded {
		status = "stored_degraded"
	}
	return c.JSON(http.StatusCreated, IngestResponse{
		Status:     status,
		Collection: receipt.Collection,
		DocID:      receipt.DocID,
		Degraded:   receipt.Degraded,
	})
}

func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "malformed request body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	ctx := c.Request().Context()
	result, err := s.svc.Query(ctx, currentUser(c), req.Question)
	if err != nil {
		s.logger.Error(ctx, "query failed", zap.Error(err))
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
