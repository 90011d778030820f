// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file negotiates the ambient locale of a request. The first non-empty
// source wins:
//
//  1. ?locale= query parameter
//  2. X-Locale header
//  3. Accept-Language, matched against the supported set
//  4. the registry's default locale
//
// The result is stored on the request context (locale.WithLocale) where the
// translation engine's ContextProvider finds it, and echoed as
// Content-Language. Explicit values are passed through unvalidated; write
// paths validate them against the registry.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-polyglot/internal/locale"
)

const (
	localeQuery  = "locale"
	localeHeader = "X-Locale"
)

// Locale installs the negotiated locale on every request.
func Locale(reg *locale.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		loc := strings.TrimSpace(c.Query(localeQuery))
		if loc == "" {
			loc = strings.TrimSpace(c.GetHeader(localeHeader))
		}
		if loc == "" {
			loc = reg.Negotiate(c.GetHeader("Accept-Language"))
		}
		if loc == "" {
			loc = reg.Default()
		}

		c.Request = c.Request.WithContext(locale.WithLocale(c.Request.Context(), loc))
		c.Header("Content-Language", strings.ReplaceAll(loc, "_", "-"))
		c.Next()
	}
}
