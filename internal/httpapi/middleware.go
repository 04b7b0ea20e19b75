package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/securetrim/trimd/internal/identity"
	"github.com/securetrim/trimd/internal/logging"
)

const userKey = "trimd.user"

// currentUser reads the authenticated user placed by the auth middleware.
func currentUser(c echo.Context) *identity.User {
	user, _ := c.Get(userKey).(*identity.User)
	return user
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requestContext threads the request ID and logger into the request context
// so downstream log lines correlate.
func (s *Server) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := req.Context()

		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		ctx = logging.WithRequestID(ctx, requestID)
		ctx = logging.WithLogger(ctx, s.logger)

		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

// observe records access logs and request metrics.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		elapsed := time.Since(start)
		req := c.Request()
		status := c.Response().Status
		path := c.Path()
		if path == "" {
			path = req.URL.Path
		}

		s.metrics.requestsTotal.WithLabelValues(req.Method, path, httpStatusLabel(status)).Inc()
		s.metrics.requestDuration.WithLabelValues(req.Method, path).Observe(elapsed.Seconds())

		if path != "/health" && path != "/metrics" {
			s.logger.Info(req.Context(), "request handled",
				zap.String("method", req.Method),
				zap.String("path", path),
				zap.Int("status", status),
				zap.Duration("duration", elapsed))
		}
		return nil
	}
}

// authenticate verifies the bearer token and resolves the caller. The user is
// stored on the echo context and its principal threaded into the request
// context for log correlation.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		raw := bearerToken(req)
		if raw == "" {
			s.metrics.authFailures.Inc()
			return writeError(c, identity.ErrTokenMissing)
		}

		user, err := s.verify.Verify(req.Context(), raw)
		if err != nil {
			s.metrics.authFailures.Inc()
			return writeError(c, err)
		}

		c.Set(userKey, user)
		ctx := logging.WithPrincipal(req.Context(), &logging.Principal{
			Tenant:  user.Tenant,
			Subject: user.Subject,
		})
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

// rateLimit enforces the per-subject budget. Runs after authenticate.
func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := currentUser(c)
		if user == nil {
			return writeError(c, identity.ErrTokenMissing)
		}
		if !s.limiter.Allow(user.Subject) {
			s.metrics.rateLimited.Inc()
			return c.JSON(http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
		}
		return next(c)
	}
}

func httpStatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
