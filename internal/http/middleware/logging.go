// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides the correlation id injector, the structured access log,
// and panic recovery:
//
//   - RequestID() reuses X-Request-ID or generates a UUID and echoes it back.
//   - Logger() attaches a request-scoped zerolog.Logger (see LoggerFrom) and
//     emits one access line per request at a level chosen by outcome. The
//     query string and headers are scrubbed by a Redactor first.
//   - Recovery() turns panics into the standard JSON 500 envelope.
//
// Recommended order: RequestID, Locale, Logger, Recovery, so every log line
// and error body carries the correlation id and the negotiated locale.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-polyglot/internal/locale"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"
	// maxQueryLogLength caps the logged raw query in bytes.
	maxQueryLogLength = 1024
)

// RequestID attaches (or propagates) a correlation identifier per request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// RequestIDFrom returns the correlation id set by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	return asString(v)
}

// Logger writes one structured access line per request.
//
// Level: error when gin collected errors or the status is 5xx, warn for 4xx,
// info otherwise. The route pattern is logged instead of the raw path when a
// route matched. maskHeaders extends the headers that are never logged in
// clear.
func Logger(maskHeaders ...string) gin.HandlerFunc {
	rd := NewRedactor(maskHeaders...)
	return func(c *gin.Context) {
		start := time.Now()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		loc, _ := locale.FromContext(c.Request.Context())

		l := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("locale", loc).
			Str("method", c.Request.Method).
			Str("path", route).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("query", truncate(rd.String(c.Request.URL.RawQuery), maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		status := c.Writer.Status()
		done := l.With().
			Interface("headers", rd.Headers(c.Request.Header)).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Logger()

		switch {
		case len(c.Errors) > 0:
			done.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= http.StatusInternalServerError:
			done.Error().Msg("request")
		case status >= http.StatusBadRequest:
			done.Warn().Msg("request")
		default:
			done.Info().Msg("request")
		}
	}
}

// Recovery logs a recovered panic with its stack and, when nothing was
// written yet, responds with the JSON 500 envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := RequestIDFrom(c)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// Logger() is not installed. The result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// truncate cuts s to max bytes and appends an ellipsis; max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
