// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key request header on create
// endpoints and stashes the key for handlers. Replay and persistence are the
// handler's job.
package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header clients use to make a create
// safe to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplayed marks a response served from a recorded result.
const HeaderIdempotentReplayed = "Idempotent-Replayed"

const ctxKeyIdemKey = "idem.key"

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyOptions configures Idempotency. Zero values select a 200-byte
// limit and a token-character pattern.
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
}

// Idempotency validates the Idempotency-Key header when present. Invalid
// keys are rejected with 400; valid keys are available via
// IdempotencyKeyFrom. Requests without the header pass through.
func Idempotency(opts IdempotencyOptions) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)
		c.Next()
	}
}

// IdempotencyKeyFrom returns the key validated by Idempotency.
func IdempotencyKeyFrom(c *gin.Context) (string, bool) {
	v, _ := c.Get(ctxKeyIdemKey)
	s := asString(v)
	return s, s != ""
}

// IdempotencyScope names the operation a key belongs to: method and path.
func IdempotencyScope(c *gin.Context) string {
	return c.Request.Method + " " + c.Request.URL.Path
}
