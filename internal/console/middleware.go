// Package console exposes the session-gated JSON API the presentation
// layer drives: OAuth client CRUD, consent revocation, identity search.
package console

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/lukyapp/ory-hydra-console/internal/session"
)

const (
	requestIDContextKey = "console_request_id"
	operatorContextKey  = "console_operator_email"
)

// SessionAuth answers "who is the caller" from the request's cookie.
type SessionAuth interface {
	SessionFrom(c echo.Context) (*session.Record, bool)
}

// RateLimitConfig bounds per-IP request rates on the API surface.
type RateLimitConfig struct {
	Rate      rate.Limit
	Burst     int
	ExpiresIn time.Duration
}

// DefaultRateLimitConfig is generous for a human-driven console but
// stops runaway scripted callers.
var DefaultRateLimitConfig = RateLimitConfig{
	Rate:      rate.Limit(10),
	Burst:     30,
	ExpiresIn: 5 * time.Minute,
}

// RequestIDMiddleware tags every request so handler logs can be
// correlated.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, requestID string) {
			c.Set(requestIDContextKey, requestID)
		},
	})
}

// RequestLogger writes one structured line per request.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			log.Info().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("elapsed", time.Since(start)).
				Str("request_id", requestIDFromContext(c)).
				Msg("request")
			return nil
		}
	}
}

// RequireAdmin gates a route group: no session is 401, a session whose
// email is not on the allow-list is 403. Both outcomes precede any
// validation or upstream call.
func RequireAdmin(auth SessionAuth, isAdmin func(email string) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			record, ok := auth.SessionFrom(c)
			if !ok {
				return writeError(c, http.StatusUnauthorized, "Unauthorized")
			}
			if !isAdmin(record.Email) {
				log.Warn().
					Str("email", record.Email).
					Str("path", c.Request().URL.Path).
					Str("request_id", requestIDFromContext(c)).
					Msg("non-admin session rejected")
				return writeError(c, http.StatusForbidden, "Forbidden")
			}
			c.Set(operatorContextKey, record.Email)
			return next(c)
		}
	}
}

// RateLimitMiddleware applies the echo memory-store limiter keyed by
// caller IP.
func RateLimitMiddleware(config RateLimitConfig) echo.MiddlewareFunc {
	if config.Rate <= 0 {
		config.Rate = DefaultRateLimitConfig.Rate
	}
	if config.Burst <= 0 {
		config.Burst = DefaultRateLimitConfig.Burst
	}
	if config.ExpiresIn <= 0 {
		config.ExpiresIn = DefaultRateLimitConfig.ExpiresIn
	}

	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      config.Rate,
		Burst:     config.Burst,
		ExpiresIn: config.ExpiresIn,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			ip := strings.TrimSpace(c.RealIP())
			if ip == "" {
				ip = "unknown"
			}
			return ip, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return writeError(c, http.StatusForbidden, "Forbidden")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return writeError(c, http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

// OperatorFromContext returns the allow-listed email RequireAdmin
// stashed for the request.
func OperatorFromContext(c echo.Context) string {
	if email, ok := c.Get(operatorContextKey).(string); ok {
		return email
	}
	return ""
}

func requestIDFromContext(c echo.Context) string {
	if value, ok := c.Get(requestIDContextKey).(string); ok && value != "" {
		return value
	}
	return strings.TrimSpace(c.Response().Header().Get(echo.HeaderXRequestID))
}
