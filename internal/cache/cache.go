// Package cache implements the two-tier translation cache consulted by the
// resolution engine.
//
// The request tier is a Scope owned by a single entity handle: it has no
// expiry, no locking, and lives as long as the handle. The shared tier is
// any Shared implementation (in-memory sturdyc, a database table, or a
// no-op) addressed by string keys of the form
//
//	{prefix}{entityType}_{entityId}_{field}_{locale}
//
// Shared-tier failures never fail a read: they are logged, counted, and
// treated as misses.
package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-polyglot/internal/observability"
)

// Shared is the cross-request cache tier.
type Shared interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Forget(ctx context.Context, key string) error
}

// Ref identifies the entity a cache entry belongs to.
type Ref struct {
	Type string
	ID   string
}

// Slot is a (field, locale) pair within one entity.
type Slot struct {
	Field  string
	Locale string
}

// Scope is the request tier. A struct key keeps fields and locales that
// contain underscores from colliding.
type Scope map[Slot]string

// Key builds the shared-tier key for one (entity, field, locale).
func Key(prefix string, ref Ref, field, locale string) string {
	return prefix + ref.Type + "_" + ref.ID + "_" + field + "_" + locale
}

// Options configures a TranslationCache.
type Options struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// TranslationCache coordinates the two tiers.
type TranslationCache struct {
	shared Shared
	opts   Options
	log    zerolog.Logger
}

// New returns a TranslationCache. A nil shared tier behaves like Noop.
func New(shared Shared, opts Options) *TranslationCache {
	if shared == nil {
		shared = Noop{}
	}
	return &TranslationCache{
		shared: shared,
		opts:   opts,
		log:    log.With().Str("component", "cache").Logger(),
	}
}

// Enabled reports whether caching is active.
func (c *TranslationCache) Enabled() bool { return c != nil && c.opts.Enabled }

// Key builds the shared-tier key using the configured prefix.
func (c *TranslationCache) Key(ref Ref, field, locale string) string {
	return Key(c.opts.Prefix, ref, field, locale)
}

// Get checks the request tier, then the shared tier. A shared hit is copied
// into the request tier.
func (c *TranslationCache) Get(ctx context.Context, scope Scope, ref Ref, field, locale string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}
	slot := Slot{Field: field, Locale: locale}
	if v, ok := scope[slot]; ok {
		observability.CacheHits.WithLabelValues(observability.TierRequest).Inc()
		return v, true
	}

	key := c.Key(ref, field, locale)
	v, ok, err := c.shared.Get(ctx, key)
	if err != nil {
		observability.CacheErrors.WithLabelValues("get").Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("shared cache read failed; treating as miss")
		ok = false
	}
	if !ok {
		observability.CacheMisses.Inc()
		return "", false
	}
	observability.CacheHits.WithLabelValues(observability.TierShared).Inc()
	if scope != nil {
		scope[slot] = v
	}
	return v, true
}

// Put writes both tiers; the shared write carries the configured TTL.
func (c *TranslationCache) Put(ctx context.Context, scope Scope, ref Ref, field, locale, value string) {
	if !c.Enabled() {
		return
	}
	if scope != nil {
		scope[Slot{Field: field, Locale: locale}] = value
	}
	key := c.Key(ref, field, locale)
	if err := c.shared.Put(ctx, key, value, c.opts.TTL); err != nil {
		observability.CacheErrors.WithLabelValues("put").Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("shared cache write failed")
	}
}

// Invalidate removes one (field, locale) from both tiers.
func (c *TranslationCache) Invalidate(ctx context.Context, scope Scope, ref Ref, field, locale string) {
	if !c.Enabled() {
		return
	}
	delete(scope, Slot{Field: field, Locale: locale})
	c.forget(ctx, c.Key(ref, field, locale))
}

// InvalidateAll forgets every field x locale combination of the entity in
// the shared tier and empties the request tier.
func (c *TranslationCache) InvalidateAll(ctx context.Context, scope Scope, ref Ref, fields, locales []string) {
	clear(scope)
	if !c.Enabled() {
		return
	}
	for _, f := range fields {
		for _, l := range locales {
			c.forget(ctx, c.Key(ref, f, l))
		}
	}
}

func (c *TranslationCache) forget(ctx context.Context, key string) {
	if err := c.shared.Forget(ctx, key); err != nil {
		observability.CacheErrors.WithLabelValues("forget").Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("shared cache forget failed")
	}
}
