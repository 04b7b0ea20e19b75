// Package httpapi is the inbound HTTP surface: bearer-authenticated ingest
// and query endpoints plus unauthenticated health and metrics.
package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/securetrim/trimd/internal/astra"
	"github.com/securetrim/trimd/internal/config"
	"github.com/securetrim/trimd/internal/identity"
	"github.com/securetrim/trimd/internal/logging"
	"github.com/securetrim/trimd/internal/ratelimit"
	"github.com/securetrim/trimd/internal/retrieval"
)

// Retriever is the orchestration surface the handlers consume.
type Retriever interface {
	Query(ctx context.Context, user *identity.User, question string) (*retrieval.Result, error)
	Ingest(ctx context.Context, user *identity.User, doc astra.Document) (*retrieval.IngestReceipt, error)
}

// Server hosts the HTTP API.
type Server struct {
	echo    *echo.Echo
	cfg     *config.Config
	logger  *logging.Logger
	svc     Retriever
	verify  identity.Verifier
	limiter *ratelimit.Limiter
	metrics *Metrics
}

// NewServer wires routes and middleware. The auth and rate-limit middleware
// guard only the two API endpoints; health and metrics stay open.
func NewServer(cfg *config.Config, logger *logging.Logger, svc Retriever, verifier identity.Verifier, limiter *ratelimit.Limiter, metrics *Metrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	s := &Server{
		echo:    e,
		cfg:     cfg,
		logger:  logger.Named("http"),
		svc:     svc,
		verify:  verifier,
		limiter: limiter,
		metrics: metrics,
	}

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(s.requestContext)
	e.Use(s.observe)

	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("", s.authenticate, s.rateLimit)
	api.POST("/ingest", s.handleIngest)
	api.POST("/query", s.handleQuery)

	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.logger.Info(context.Background(), "server starting", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
