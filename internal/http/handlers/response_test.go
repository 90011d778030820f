package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-polyglot/internal/config"
	"github.com/tbourn/go-polyglot/internal/http/middleware"
	"github.com/tbourn/go-polyglot/internal/locale"
)

// envelopeRouter runs fail/ok/noContent behind request id and locale
// negotiation, with the request logger writing to buf.
func envelopeRouter(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	reg := locale.NewRegistry(config.PolyglotConfig{
		SourceLocale: "en", FallbackLocale: "en", DefaultLocale: "en",
		SupportedLocales: []string{"en", "tr"},
	})
	lg := zerolog.New(buf).Level(zerolog.DebugLevel)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Locale(reg), func(c *gin.Context) {
		c.Set("logger", &lg)
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "sqlite: disk I/O error")
	})
	r.GET("/missing", func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "post not found")
	})
	r.POST("/posts", func(c *gin.Context) {
		ok(c, http.StatusCreated, gin.H{"id": "p1", "locale": "tr"})
	})
	r.DELETE("/posts/p1/translations/title/tr", noContent)
	return r
}

func TestFail_ServerErrorHidesCause(t *testing.T) {
	var buf bytes.Buffer
	r := envelopeRouter(&buf)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "rid-500")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.RequestID != "rid-500" || resp.Code != ErrCodeInternal || resp.Message != "internal server error" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if strings.Contains(w.Body.String(), "sqlite") {
		t.Fatalf("driver detail leaked: %s", w.Body.String())
	}
	if !strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), "disk I/O error") {
		t.Fatalf("expected error log with cause, got: %s", buf.String())
	}
}

func TestFail_ClientErrorLogsLocale(t *testing.T) {
	var buf bytes.Buffer
	r := envelopeRouter(&buf)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing?locale=tr", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.RequestID == "" || er.RequestID != w.Header().Get("X-Request-ID") {
		t.Fatalf("request id %q does not match header %q", er.RequestID, w.Header().Get("X-Request-ID"))
	}
	if er.Code != ErrCodeNotFound || er.Message != "post not found" {
		t.Fatalf("unexpected body: %+v", er)
	}
	logged := buf.String()
	if !strings.Contains(logged, `"level":"debug"`) || !strings.Contains(logged, `"locale":"tr"`) {
		t.Fatalf("expected debug log with locale, got: %s", logged)
	}
}

func TestSuccessHelpers(t *testing.T) {
	r := envelopeRouter(&bytes.Buffer{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/posts", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["locale"] != "tr" {
		t.Fatalf("body=%v err=%v", body, err)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/posts/p1/translations/title/tr", nil))
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("noContent: status=%d len=%d", w.Code, w.Body.Len())
	}
}
