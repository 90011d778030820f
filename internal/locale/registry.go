// Package locale exposes the configured locale set (source, fallback,
// supported) and validates candidate locale strings against it.
//
// A Registry is built once from config.PolyglotConfig and is read-only
// afterwards, so it is safe to share across goroutines.
package locale

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/language"

	"github.com/tbourn/go-polyglot/internal/config"
)

// ErrEmptyLocale is returned by Validate when the candidate locale is empty.
var ErrEmptyLocale = errors.New("locale must not be empty")

// UnsupportedLocaleError is returned by Validate in strict mode when the
// locale is not part of the supported set.
type UnsupportedLocaleError struct {
	Locale    string
	Supported []string
}

func (e *UnsupportedLocaleError) Error() string {
	return fmt.Sprintf("locale %q is not supported (supported: %s)",
		e.Locale, strings.Join(e.Supported, ", "))
}

// Result describes a successful validation. Warning is set when the locale
// is unsupported but accepted because strict mode is off; the caller is
// expected to log it with whatever entity context it has.
type Result struct {
	Locale    string
	Supported bool
	Warning   bool
}

// Registry answers locale questions from immutable configuration.
type Registry struct {
	source    string
	fallback  string
	def       string
	supported []string
	strict    bool

	set     map[string]struct{}
	matcher language.Matcher
	tags    []string // matcher index -> configured locale
}

// NewRegistry builds a Registry from the polyglot settings.
func NewRegistry(cfg config.PolyglotConfig) *Registry {
	r := &Registry{
		source:    cfg.SourceLocale,
		fallback:  cfg.FallbackLocale,
		def:       cfg.DefaultLocale,
		supported: slices.Clone(cfg.SupportedLocales),
		strict:    cfg.StrictLocale,
		set:       make(map[string]struct{}, len(cfg.SupportedLocales)),
	}
	if r.def == "" {
		r.def = r.source
	}

	var tags []language.Tag
	for _, l := range r.supported {
		r.set[l] = struct{}{}
		tag, err := language.Parse(strings.ReplaceAll(l, "_", "-"))
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		r.tags = append(r.tags, l)
	}
	if len(tags) > 0 {
		r.matcher = language.NewMatcher(tags)
	}
	return r
}

// IsSupported reports whether locale is in the configured supported set.
func (r *Registry) IsSupported(locale string) bool {
	_, ok := r.set[locale]
	return ok
}

// Supported returns the supported locales in configuration order.
func (r *Registry) Supported() []string { return slices.Clone(r.supported) }

// Source returns the locale whose value lives on the entity itself.
func (r *Registry) Source() string { return r.source }

// Fallback returns the single locale consulted when an override is missing.
func (r *Registry) Fallback() string { return r.fallback }

// Default returns the ambient locale used when a request carries none.
func (r *Registry) Default() string { return r.def }

// Strict reports the configured strict-locale flag.
func (r *Registry) Strict() bool { return r.strict }

// Validate checks a candidate locale.
//
// Empty locales always fail with ErrEmptyLocale. Unsupported locales fail
// with *UnsupportedLocaleError only when strict is true; otherwise the
// result carries Warning=true and the write may proceed.
func (r *Registry) Validate(locale string, strict bool) (Result, error) {
	if locale == "" {
		return Result{}, ErrEmptyLocale
	}
	if r.IsSupported(locale) {
		return Result{Locale: locale, Supported: true}, nil
	}
	if strict {
		return Result{Locale: locale}, &UnsupportedLocaleError{Locale: locale, Supported: r.Supported()}
	}
	return Result{Locale: locale, Warning: true}, nil
}

// Negotiate picks the best supported locale for an Accept-Language header
// value. It returns "" when nothing matches with any confidence.
func (r *Registry) Negotiate(acceptLanguage string) string {
	if r.matcher == nil || strings.TrimSpace(acceptLanguage) == "" {
		return ""
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return ""
	}
	_, idx, conf := r.matcher.Match(prefs...)
	if conf == language.No || idx < 0 || idx >= len(r.tags) {
		return ""
	}
	return r.tags[idx]
}
