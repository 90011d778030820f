package translation

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-polyglot/internal/cache"
	"github.com/tbourn/go-polyglot/internal/domain"
)

const tracerName = "translation/Model"

// Model is the translation handle of one entity instance. It owns the
// request-scoped cache and, after Load, the entity's override records.
// A Model is not safe for concurrent use.
type Model struct {
	engine    *Engine
	entity    domain.Translatable
	preferred string

	scope    cache.Scope
	loaded   []domain.Translation
	isLoaded bool
}

// Entity returns the wrapped entity.
func (m *Model) Entity() domain.Translatable { return m.entity }

// SetPreferredLocale pins the locale used when callers pass none.
func (m *Model) SetPreferredLocale(l string) *Model {
	m.preferred = l
	return m
}

// PreferredLocale returns the pinned locale, or "".
func (m *Model) PreferredLocale() string { return m.preferred }

// Loaded reports whether the override records are held in memory.
func (m *Model) Loaded() bool { return m.isLoaded }

// CurrentLocale returns the preferred locale or, failing that, the ambient
// locale of ctx.
func (m *Model) CurrentLocale(ctx context.Context) string {
	if m.preferred != "" {
		return m.preferred
	}
	return m.engine.ambient.Current(ctx)
}

func (m *Model) ref() cache.Ref {
	return cache.Ref{Type: m.entity.TranslationType(), ID: m.entity.TranslationKey()}
}

func (m *Model) isTranslatable(field string) bool {
	return slices.Contains(m.entity.TranslatableFields(), field)
}

// RequiredFields returns the declared required fields, or every translatable
// field when the entity declares none.
func (m *Model) RequiredFields() []string {
	if req := m.entity.RequiredTranslatableFields(); req != nil {
		return req
	}
	return m.entity.TranslatableFields()
}

func (m *Model) span(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("entity.type", m.entity.TranslationType()),
		attribute.String("entity.id", m.entity.TranslationKey()),
	)
	return otel.Tracer(tracerName).Start(ctx, op, trace.WithAttributes(attrs...))
}

func fail(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Get is the attribute accessor: translatable fields of non-excluded
// entities are resolved in the current locale; every other read returns the
// entity's own value through SourceValue. Get covers string attributes only;
// non-string columns and unknown names yield nil and are read off the struct.
func (m *Model) Get(ctx context.Context, field string) (*string, error) {
	if !m.isTranslatable(field) || m.entity.IsTranslationExcluded() {
		return m.entity.SourceValue(field), nil
	}
	l := m.CurrentLocale(ctx)
	if l == m.engine.locales.Source() {
		return m.entity.SourceValue(field), nil
	}
	return m.Translate(ctx, field, l)
}

// Translate resolves field in loc ("" means the current locale).
//
//  1. excluded entity: the source value
//  2. source locale: the source value
//  3. cache hit
//  4. override record (loaded collection, else the store); cached on hit
//  5. one hop to the fallback locale
//  6. the source value
func (m *Model) Translate(ctx context.Context, field, loc string) (*string, error) {
	if loc == "" {
		loc = m.CurrentLocale(ctx)
	}
	ctx, span := m.span(ctx, "Translate",
		attribute.String("field", field),
		attribute.String("locale", loc),
	)
	defer span.End()

	v, err := m.resolve(ctx, field, loc)
	return v, fail(span, err)
}

func (m *Model) resolve(ctx context.Context, field, loc string) (*string, error) {
	source := m.entity.SourceValue(field)
	if m.entity.IsTranslationExcluded() || loc == m.engine.locales.Source() {
		return source, nil
	}
	// Unpersisted entities cannot own overrides.
	if m.entity.TranslationKey() == "" {
		return source, nil
	}

	ref := m.ref()
	if v, ok := m.engine.cache.Get(ctx, m.scope, ref, field, loc); ok {
		return &v, nil
	}

	rec, err := m.lookup(ctx, field, loc)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.Value != nil {
		v := *rec.Value
		m.engine.cache.Put(ctx, m.scope, ref, field, loc, v)
		return &v, nil
	}

	if fb := m.engine.locales.Fallback(); loc != fb {
		// The recursive call sees loc == fallback and stops there.
		return m.resolve(ctx, field, fb)
	}
	return source, nil
}

func (m *Model) lookup(ctx context.Context, field, loc string) (*domain.Translation, error) {
	if m.isLoaded {
		for i := range m.loaded {
			if m.loaded[i].Field == field && m.loaded[i].Locale == loc {
				return &m.loaded[i], nil
			}
		}
		return nil, nil
	}
	return m.engine.store.Find(ctx, m.entity.TranslationType(), m.entity.TranslationKey(), field, loc)
}

// SetTranslate writes value for (field, loc).
//
// The source locale is written onto the entity and the entity is saved.
// For other locales a nil value deletes the override and a non-nil value
// creates or replaces it. Afterwards the cache entry is invalidated and a
// loaded record collection is refreshed.
func (m *Model) SetTranslate(ctx context.Context, field, loc string, value *string) error {
	ctx, span := m.span(ctx, "SetTranslate",
		attribute.String("field", field),
		attribute.String("locale", loc),
		attribute.Bool("delete", value == nil),
	)
	defer span.End()

	if m.entity.TranslationKey() == "" {
		return fail(span, ErrModelNotPersisted)
	}
	if !m.isTranslatable(field) {
		return fail(span, &FieldNotTranslatableError{Field: field, Entity: m.entity.TranslationType()})
	}

	reg := m.engine.locales
	res, err := reg.Validate(loc, reg.Strict())
	if err != nil {
		return fail(span, err)
	}
	if res.Warning {
		m.engine.log.Warn().
			Str("locale", loc).
			Str("entity_type", m.entity.TranslationType()).
			Str("entity_id", m.entity.TranslationKey()).
			Strs("supported_locales", reg.Supported()).
			Msg("unsupported locale used for translation")
	}

	if loc == reg.Source() {
		if m.engine.saver == nil {
			return fail(span, ErrNoEntitySaver)
		}
		if err := m.entity.SetSourceValue(field, value); err != nil {
			return fail(span, err)
		}
		if err := m.engine.saver.Save(ctx, m.entity); err != nil {
			return fail(span, err)
		}
		m.Saved(ctx)
		return nil
	}

	typ, id := m.entity.TranslationType(), m.entity.TranslationKey()
	if value == nil {
		_, err = m.engine.store.Delete(ctx, typ, id, field, loc)
	} else {
		_, err = m.engine.store.Upsert(ctx, typ, id, field, loc, *value)
	}
	if err != nil {
		return fail(span, err)
	}

	m.engine.cache.Invalidate(ctx, m.scope, m.ref(), field, loc)
	if m.isLoaded {
		return fail(span, m.load(ctx))
	}
	return nil
}

// HasTranslation reports whether (field, loc) has a value of its own: the
// source attribute for the source locale, an override record otherwise.
// Fallbacks do not count.
func (m *Model) HasTranslation(ctx context.Context, field, loc string) (bool, error) {
	if loc == "" {
		loc = m.CurrentLocale(ctx)
	}
	if loc == m.engine.locales.Source() {
		return m.entity.SourceValue(field) != nil, nil
	}
	if m.entity.TranslationKey() == "" {
		return false, nil
	}
	if m.isLoaded {
		rec, _ := m.lookup(ctx, field, loc)
		return rec != nil, nil
	}
	return m.engine.store.Exists(ctx, m.entity.TranslationType(), m.entity.TranslationKey(), field, loc)
}

// HasAnyTranslations reports whether the entity owns at least one override.
func (m *Model) HasAnyTranslations(ctx context.Context) (bool, error) {
	if m.isLoaded {
		return len(m.loaded) > 0, nil
	}
	if m.entity.TranslationKey() == "" {
		return false, nil
	}
	n, err := m.engine.store.CountForEntity(ctx, m.entity.TranslationType(), m.entity.TranslationKey())
	return n > 0, err
}

// HasAllRequiredFieldsForLocale reports whether every required field has a
// value of its own in loc ("" means the current locale).
func (m *Model) HasAllRequiredFieldsForLocale(ctx context.Context, loc string) (bool, error) {
	if loc == "" {
		loc = m.CurrentLocale(ctx)
	}
	ctx, span := m.span(ctx, "HasAllRequiredFieldsForLocale", attribute.String("locale", loc))
	defer span.End()

	for _, f := range m.RequiredFields() {
		ok, err := m.HasTranslation(ctx, f, loc)
		if err != nil {
			return false, fail(span, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// AllTranslations returns field -> locale -> value for every translatable
// field, seeded with non-nil source values. Records are loaded first.
func (m *Model) AllTranslations(ctx context.Context) (map[string]map[string]string, error) {
	ctx, span := m.span(ctx, "AllTranslations")
	defer span.End()

	if !m.isLoaded {
		if err := m.load(ctx); err != nil {
			return nil, fail(span, err)
		}
	}
	out := make(map[string]map[string]string, len(m.entity.TranslatableFields()))
	for _, f := range m.entity.TranslatableFields() {
		out[f] = m.overlay(f, m.loaded)
	}
	return out, nil
}

// FieldTranslations returns locale -> value for one field, seeded with the
// source value when it is set.
func (m *Model) FieldTranslations(ctx context.Context, field string) (map[string]string, error) {
	ctx, span := m.span(ctx, "FieldTranslations", attribute.String("field", field))
	defer span.End()

	recs := m.loaded
	if !m.isLoaded && m.entity.TranslationKey() != "" {
		var err error
		recs, err = m.engine.store.ListForField(ctx, m.entity.TranslationType(), m.entity.TranslationKey(), field)
		if err != nil {
			return nil, fail(span, err)
		}
	}
	return m.overlay(field, recs), nil
}

func (m *Model) overlay(field string, recs []domain.Translation) map[string]string {
	out := map[string]string{}
	if v := m.entity.SourceValue(field); v != nil {
		out[m.engine.locales.Source()] = *v
	}
	for _, r := range recs {
		if r.Field == field && r.Value != nil {
			out[r.Locale] = *r.Value
		}
	}
	return out
}

// MissingLocales returns the supported locales without a value for field,
// in configuration order.
func (m *Model) MissingLocales(ctx context.Context, field string) ([]string, error) {
	have, err := m.FieldTranslations(ctx, field)
	if err != nil {
		return nil, err
	}
	missing := []string{}
	for _, l := range m.engine.locales.Supported() {
		if _, ok := have[l]; !ok {
			missing = append(missing, l)
		}
	}
	return missing, nil
}

// Load reads every override record of the entity into memory. Later reads
// are served from it until the Model is discarded.
func (m *Model) Load(ctx context.Context) error {
	ctx, span := m.span(ctx, "Load")
	defer span.End()
	return fail(span, m.load(ctx))
}

func (m *Model) load(ctx context.Context) error {
	if m.entity.TranslationKey() == "" {
		m.loaded, m.isLoaded = nil, true
		return nil
	}
	recs, err := m.engine.store.ListForEntity(ctx, m.entity.TranslationType(), m.entity.TranslationKey())
	if err != nil {
		return err
	}
	m.loaded, m.isLoaded = recs, true
	return nil
}

// ClearCache empties the request cache and forgets every field x supported
// locale key of the entity in the shared tier.
func (m *Model) ClearCache(ctx context.Context) {
	m.engine.cache.InvalidateAll(ctx, m.scope, m.ref(), m.entity.TranslatableFields(), m.engine.locales.Supported())
}

// Saved must be called after the entity was persisted by other code paths.
func (m *Model) Saved(ctx context.Context) {
	m.ClearCache(ctx)
}

// Deleted must be called after the entity row was removed. It deletes every
// override the entity owned and clears its cache entries.
func (m *Model) Deleted(ctx context.Context) (int64, error) {
	ctx, span := m.span(ctx, "Deleted")
	defer span.End()

	var n int64
	if id := m.entity.TranslationKey(); id != "" {
		var err error
		n, err = m.engine.store.DeleteAllForEntity(ctx, m.entity.TranslationType(), id)
		if err != nil {
			return 0, fail(span, err)
		}
	}
	if m.isLoaded {
		m.loaded = nil
	}
	m.ClearCache(ctx)
	span.SetAttributes(attribute.Int64("deleted", n))
	return n, nil
}
