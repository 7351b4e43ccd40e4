package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cafe/internal/access"
	"cafe/internal/apperr"
	"cafe/internal/auth"
	"cafe/internal/monitoring"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID tags every request with an id, reusing the caller's X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger writes one structured line per completed request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}

		username := "anonymous"
		if id, ok := access.IdentityFrom(c.Request.Context()); ok {
			username = id.Username
		}

		event.
			Str("request_id", c.GetString(requestIDKey)).
			Str("user", username).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request completed")
	}
}

// Instrument records request count and latency by matched route.
func Instrument(metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// Authenticate resolves Bearer or Basic credentials to an identity on the
// request context. Requests without credentials pass through anonymously and
// are refused later by the access gate where a capability is required.
func Authenticate(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		var (
			id  access.Identity
			err error
		)
		switch {
		case strings.HasPrefix(header, "Bearer "):
			id, err = svc.VerifyToken(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
		case strings.HasPrefix(header, "Basic "):
			username, password, ok := c.Request.BasicAuth()
			if !ok {
				err = apperr.Unauthenticated("authenticate", "malformed basic credentials")
				break
			}
			id, err = svc.Authenticate(c.Request.Context(), username, password)
		default:
			err = apperr.Unauthenticated("authenticate", "unsupported authorization scheme")
		}
		if err != nil {
			c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Message(err)})
			return
		}

		c.Request = c.Request.WithContext(access.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}
