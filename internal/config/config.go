// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the SQLite path, rate limiting, observability, and the polyglot
// translation settings (locales, cache, events, storage table).
//
// Locale settings may additionally be overridden from a TOML file named by
// POLYGLOT_CONFIG_FILE; keys defined in that file win over the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-polyglot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Cache drivers accepted by POLYGLOT_CACHE_DRIVER.
const (
	CacheDriverMemory   = "memory"
	CacheDriverDatabase = "database"
	CacheDriverNone     = "none"
)

// CacheConfig controls the shared translation cache tier.
type CacheConfig struct {
	Enabled  bool          // POLYGLOT_CACHE_ENABLED
	TTL      time.Duration // POLYGLOT_CACHE_TTL
	Prefix   string        // POLYGLOT_CACHE_PREFIX
	Driver   string        // memory|database|none
	Capacity int           // POLYGLOT_CACHE_CAPACITY (memory driver only)
}

// PolyglotConfig is the read-only translation configuration handed to the
// locale registry, the cache, the store and the engine.
type PolyglotConfig struct {
	SourceLocale     string   // locale stored on the entity itself
	FallbackLocale   string   // single hop consulted on a miss
	DefaultLocale    string   // ambient locale when a request carries none
	SupportedLocales []string // ordered; order is kept in missing-locale reports
	StrictLocale     bool     // reject unsupported locales on write

	Cache         CacheConfig
	EventsEnabled bool   // POLYGLOT_EVENTS_ENABLED
	TableName     string // POLYGLOT_TABLE_NAME
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBPath         string        // SQLite path
	IdempotencyTTL time.Duration // lifetime of Idempotency-Key records

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig

	// Translations
	LocaleFile string // POLYGLOT_CONFIG_FILE (optional TOML overrides)
	Polyglot   PolyglotConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	source := getenv("POLYGLOT_SOURCE_LOCALE", "en")
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBPath:         getenv("DB_PATH", "polyglot.db"),
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-polyglot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},

		// Translations
		LocaleFile: getenv("POLYGLOT_CONFIG_FILE", ""),
		Polyglot: PolyglotConfig{
			SourceLocale:     source,
			FallbackLocale:   getenv("POLYGLOT_FALLBACK_LOCALE", "en"),
			DefaultLocale:    getenv("POLYGLOT_DEFAULT_LOCALE", source),
			SupportedLocales: splitCSV(getenv("POLYGLOT_SUPPORTED_LOCALES", "en,tr,de,es,fr,pt_BR")),
			StrictLocale:     getbool("POLYGLOT_STRICT_LOCALE", false),
			Cache: CacheConfig{
				Enabled:  getbool("POLYGLOT_CACHE_ENABLED", true),
				TTL:      getdur("POLYGLOT_CACHE_TTL", time.Hour),
				Prefix:   getenv("POLYGLOT_CACHE_PREFIX", "polyglot_"),
				Driver:   strings.ToLower(getenv("POLYGLOT_CACHE_DRIVER", CacheDriverMemory)),
				Capacity: getint("POLYGLOT_CACHE_CAPACITY", 10000),
			},
			EventsEnabled: getbool("POLYGLOT_EVENTS_ENABLED", true),
			TableName:     getenv("POLYGLOT_TABLE_NAME", "translations"),
		},
	}

	if cfg.LocaleFile != "" {
		if err := loadLocaleFile(cfg.LocaleFile, &cfg.Polyglot); err != nil {
			return cfg, err
		}
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be a positive duration")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if err := cfg.Polyglot.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

var identifierRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (p PolyglotConfig) validate() error {
	if strings.TrimSpace(p.SourceLocale) == "" {
		return errors.New("POLYGLOT_SOURCE_LOCALE must not be empty")
	}
	if strings.TrimSpace(p.FallbackLocale) == "" {
		return errors.New("POLYGLOT_FALLBACK_LOCALE must not be empty")
	}
	if len(p.SupportedLocales) == 0 {
		return errors.New("POLYGLOT_SUPPORTED_LOCALES must list at least one locale")
	}
	if !slices.Contains(p.SupportedLocales, p.SourceLocale) {
		return fmt.Errorf("POLYGLOT_SOURCE_LOCALE %q must be one of POLYGLOT_SUPPORTED_LOCALES", p.SourceLocale)
	}
	if p.Cache.Enabled && p.Cache.TTL <= 0 {
		return errors.New("POLYGLOT_CACHE_TTL must be > 0 when the cache is enabled")
	}
	switch p.Cache.Driver {
	case CacheDriverMemory, CacheDriverDatabase, CacheDriverNone:
	default:
		return errors.New("POLYGLOT_CACHE_DRIVER must be one of: memory, database, none")
	}
	if p.Cache.Driver == CacheDriverMemory && p.Cache.Capacity < 1 {
		return errors.New("POLYGLOT_CACHE_CAPACITY must be >= 1")
	}
	if !identifierRE.MatchString(p.TableName) {
		return errors.New("POLYGLOT_TABLE_NAME must be a plain SQL identifier")
	}
	return nil
}

// localeFile mirrors the optional TOML overrides.
type localeFile struct {
	Source    string   `toml:"source_locale"`
	Fallback  string   `toml:"fallback_locale"`
	Default   string   `toml:"default_locale"`
	Supported []string `toml:"supported_locales"`
	Strict    bool     `toml:"strict_locale"`
	Table     string   `toml:"table_name"`
}

func loadLocaleFile(path string, p *PolyglotConfig) error {
	var raw localeFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load locale config: %w", err)
	}

	if meta.IsDefined("source_locale") {
		p.SourceLocale = strings.TrimSpace(raw.Source)
	}
	if meta.IsDefined("fallback_locale") {
		p.FallbackLocale = strings.TrimSpace(raw.Fallback)
	}
	if meta.IsDefined("default_locale") {
		p.DefaultLocale = strings.TrimSpace(raw.Default)
	}
	if meta.IsDefined("supported_locales") {
		p.SupportedLocales = splitCSV(strings.Join(raw.Supported, ","))
	}
	if meta.IsDefined("strict_locale") {
		p.StrictLocale = raw.Strict
	}
	if meta.IsDefined("table_name") {
		p.TableName = strings.TrimSpace(raw.Table)
	}
	if p.DefaultLocale == "" {
		p.DefaultLocale = p.SourceLocale
	}
	return nil
}

// ---- env helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
