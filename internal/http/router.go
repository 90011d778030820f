// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, locale negotiation, logging, panic recovery,
// metrics, compression, CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → Locale → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-polyglot/docs"
	"github.com/tbourn/go-polyglot/internal/config"
	"github.com/tbourn/go-polyglot/internal/http/handlers"
	"github.com/tbourn/go-polyglot/internal/http/middleware"
	"github.com/tbourn/go-polyglot/internal/locale"
)

// Deps are the collaborators RegisterRoutes mounts.
type Deps struct {
	Locales     *locale.Registry
	Posts       handlers.PostService
	Maintenance handlers.MaintenanceService
	// Idempotency enables Idempotency-Key replay on POST /posts when set.
	Idempotency handlers.IdempotencyStore
}

var corsHeaders = []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", "X-Locale", "X-Request-ID", middleware.HeaderIdempotencyKey}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Locale: negotiate the ambient locale before anything logs
//  4. Logger: structured access logs, query and headers scrubbed
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics
//  8. Rate limiter (per client IP; health and metrics exempt)
//  9. Gzip, CORS and security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Locale(deps.Locales))
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.RateRPS > 0 {
		rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP(), "/health", "/metrics")
		r.Use(rl.Handler())
	}

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"source_locale":  deps.Locales.Source(),
			"default_locale": deps.Locales.Default(),
		})
	})

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(deps.Posts, deps.Maintenance)
	if deps.Idempotency != nil {
		h.WithIdempotency(deps.Idempotency)
	}
	idem := middleware.Idempotency(middleware.IdempotencyOptions{})

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Posts
		api.POST("/posts", idem, h.CreatePost)
		api.GET("/posts", h.SearchPosts)
		api.GET("/posts/:id", h.GetPost)
		api.DELETE("/posts/:id", h.DeletePost)
		api.POST("/posts/:id/comments", h.AddComment)

		// Translations
		api.GET("/posts/:id/translations", h.ListTranslations)
		api.GET("/posts/:id/translations/:field", h.ListFieldTranslations)
		api.GET("/posts/:id/translations/:field/missing", h.MissingLocales)
		api.GET("/posts/:id/translations/:field/:locale", h.GetTranslation)
		api.PUT("/posts/:id/translations/:field/:locale", h.PutTranslation)
		api.DELETE("/posts/:id/translations/:field/:locale", h.DeleteTranslation)
		api.GET("/posts/:id/completeness", h.Completeness)

		// Admin
		api.GET("/admin/translations/stats", h.TranslationStats)
		api.GET("/admin/translations/orphans", h.ListOrphans)
		api.DELETE("/admin/translations/orphans", h.CleanOrphans)
	}
}

// corsMiddleware allows every origin when none are configured, else echoes
// allow-listed origins.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  corsHeaders,
		ExposeHeaders: []string{"X-Request-ID", "Content-Language", "Content-Length", middleware.HeaderIdempotentReplayed},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// ACAO: * even without an Origin header (health checks, curl).
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps the request body at maxBytes using http.MaxBytesReader.
// Reads past the cap fail, which JSON binding reports as a bad request.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
