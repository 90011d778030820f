package middleware

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedactor_String(t *testing.T) {
	rd := NewRedactor()
	cases := []struct{ in, want string }{
		{"", ""},
		{"q=hello&page=2&page_size=20", "q=hello&page=2&page_size=20"},
		{"q=jane@example.com", "q=[REDACTED:email]"},
		{"q=jane%40example.com", "q=[REDACTED:email]"},
		{"id=123e4567-e89b-12d3-a456-426614174000", "id=[REDACTED:id]"},
		{"q=212-555-1212", "q=[REDACTED:phone]"},
	}
	for _, tc := range cases {
		if got := rd.String(tc.in); got != tc.want {
			t.Fatalf("String(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactor_Headers(t *testing.T) {
	rd := NewRedactor(" X-Api-Key ", "")
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("Idempotency-Key", "create-1")
	h.Set("X-Api-Key", "k")
	h.Set("From", "jane@example.com")
	h.Set("Accept-Language", "tr-TR,tr;q=0.9")

	got := rd.Headers(h)
	for _, k := range []string{"Authorization", "Idempotency-Key", "X-Api-Key"} {
		if got[k] != "[REDACTED]" {
			t.Fatalf("%s = %q; want masked", k, got[k])
		}
	}
	if got["From"] != "[REDACTED:email]" || got["Accept-Language"] != "tr-TR,tr;q=0.9" {
		t.Fatalf("headers = %v", got)
	}
}

func TestLogger_ScrubsQueryAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Logger("X-Api-Key"))
	r.GET("/posts", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/posts?q=jane@example.com", map[string]string{
		"Authorization": "Bearer secret",
		"X-Api-Key":     "k",
	})

	lines := logLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("want 1 line, got %d", len(lines))
	}
	if q, _ := lines[0]["query"].(string); q != "q=[REDACTED:email]" {
		t.Fatalf("query = %q", q)
	}
	hdrs, _ := lines[0]["headers"].(map[string]any)
	if hdrs["Authorization"] != "[REDACTED]" || hdrs["X-Api-Key"] != "[REDACTED]" {
		t.Fatalf("headers = %v", hdrs)
	}
	if strings.Contains(buf.String(), "secret") || strings.Contains(buf.String(), "jane") {
		t.Fatalf("sensitive value leaked: %s", buf.String())
	}
}
