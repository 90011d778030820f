package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// Search terms and header values can carry personal data, so the access log
// scrubs them before writing. UUIDs are replaced first: the phone pattern
// would otherwise match their digit runs.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+(?:@|%40)[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .+-]?)?(?:\(?\d{2,4}\)?[ .+-]?)?\d{3,4}[ .+-]?\d{4}\b`)
)

// alwaysMasked headers are never logged in clear.
var alwaysMasked = []string{"authorization", "cookie", "set-cookie", "idempotency-key"}

// Redactor scrubs identifiers from strings and masks sensitive headers.
type Redactor struct {
	masked map[string]struct{}
}

// NewRedactor masks the built-in sensitive headers plus extra (matched
// case-insensitively).
func NewRedactor(extra ...string) *Redactor {
	r := &Redactor{masked: make(map[string]struct{}, len(alwaysMasked)+len(extra))}
	for _, h := range append(append([]string{}, alwaysMasked...), extra...) {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.masked[h] = struct{}{}
		}
	}
	return r
}

// String replaces UUIDs, email addresses and phone numbers in s.
func (r *Redactor) String(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// Headers flattens h for logging. Masked headers become "[REDACTED]", the
// rest go through String.
func (r *Redactor) Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.masked[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.String(strings.Join(vv, ", "))
	}
	return out
}
