// Package translation implements the resolution engine: the read path that
// picks the right display value for (entity, field, locale), the write path
// that keeps the entity, the override store and the cache consistent, and
// the aggregate views built on top of them.
//
// Entities do not inherit translation behavior. Callers wrap an entity in a
// Model, which carries the per-instance state (preferred locale, request
// cache, optionally loaded records) and exposes every operation:
//
//	m := engine.Wrap(post)
//	title, err := m.Translate(ctx, "title", "tr")
//	err = m.SetTranslate(ctx, "title", "de", &value)
//
// Resolution order for a non-source locale: request cache, shared cache,
// loaded records or the store, then one hop to the fallback locale, then
// the entity's own value. Fallback never chains past the fallback locale.
//
// Observability: every public Model operation opens an OpenTelemetry span.
package translation

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-polyglot/internal/cache"
	"github.com/tbourn/go-polyglot/internal/domain"
	"github.com/tbourn/go-polyglot/internal/locale"
)

// Store is the override persistence the engine depends on.
type Store interface {
	Find(ctx context.Context, entityType, entityID, field, locale string) (*domain.Translation, error)
	Exists(ctx context.Context, entityType, entityID, field, locale string) (bool, error)
	Upsert(ctx context.Context, entityType, entityID, field, locale, value string) (*domain.Translation, error)
	Delete(ctx context.Context, entityType, entityID, field, locale string) (bool, error)
	DeleteAllForEntity(ctx context.Context, entityType, entityID string) (int64, error)
	ListForEntity(ctx context.Context, entityType, entityID string) ([]domain.Translation, error)
	ListForField(ctx context.Context, entityType, entityID, field string) ([]domain.Translation, error)
	CountForEntity(ctx context.Context, entityType, entityID string) (int64, error)
}

// EntitySaver persists source-locale writes made on the entity itself.
type EntitySaver interface {
	Save(ctx context.Context, ent domain.Translatable) error
}

// Engine holds the collaborators shared by every Model.
type Engine struct {
	locales *locale.Registry
	store   Store
	cache   *cache.TranslationCache
	saver   EntitySaver
	ambient locale.Provider
	log     zerolog.Logger
}

// NewEngine wires the engine. A nil cache disables caching; a nil ambient
// provider falls back to the registry's default locale.
func NewEngine(locales *locale.Registry, store Store, c *cache.TranslationCache, saver EntitySaver, ambient locale.Provider) *Engine {
	if c == nil {
		c = cache.New(nil, cache.Options{})
	}
	if ambient == nil {
		ambient = locale.ContextProvider{Default: locales.Default()}
	}
	return &Engine{
		locales: locales,
		store:   store,
		cache:   c,
		saver:   saver,
		ambient: ambient,
		log:     log.With().Str("component", "translation").Logger(),
	}
}

// Locales exposes the registry the engine validates against.
func (e *Engine) Locales() *locale.Registry { return e.locales }

// CurrentLocale returns the ambient locale of ctx.
func (e *Engine) CurrentLocale(ctx context.Context) string { return e.ambient.Current(ctx) }

// Store exposes the override store.
func (e *Engine) Store() Store { return e.store }

// Wrap returns a fresh Model for ent with an empty request cache.
func (e *Engine) Wrap(ent domain.Translatable) *Model {
	return &Model{engine: e, entity: ent, scope: cache.Scope{}}
}
