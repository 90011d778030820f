package translation_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-polyglot/internal/cache"
	"github.com/tbourn/go-polyglot/internal/config"
	"github.com/tbourn/go-polyglot/internal/domain"
	"github.com/tbourn/go-polyglot/internal/events"
	"github.com/tbourn/go-polyglot/internal/locale"
	"github.com/tbourn/go-polyglot/internal/repo"
	"github.com/tbourn/go-polyglot/internal/translation"
)

// countingStore counts point lookups so tests can tell cache hits apart.
type countingStore struct {
	*repo.TranslationStore
	finds atomic.Int64
}

func (s *countingStore) Find(ctx context.Context, typ, id, field, loc string) (*domain.Translation, error) {
	s.finds.Add(1)
	return s.TranslationStore.Find(ctx, typ, id, field, loc)
}

type fixture struct {
	db     *gorm.DB
	store  *countingStore
	engine *translation.Engine
}

func defaultLocales() config.PolyglotConfig {
	return config.PolyglotConfig{
		SourceLocale:     "en",
		FallbackLocale:   "en",
		DefaultLocale:    "en",
		SupportedLocales: []string{"en", "tr", "de", "es"},
	}
}

func newFixture(t *testing.T, cfg config.PolyglotConfig) *fixture {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "engine.db"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db, "translations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := &countingStore{TranslationStore: repo.NewTranslationStore(db, "translations", events.NewDispatcher(false, nil))}
	tc := cache.New(cache.NewMemory(100, time.Minute), cache.Options{Enabled: true, TTL: time.Minute, Prefix: "test_"})
	reg := locale.NewRegistry(cfg)
	eng := translation.NewEngine(reg, store, tc, repo.EntityWriter{DB: db}, locale.ContextProvider{Default: reg.Default()})
	return &fixture{db: db, store: store, engine: eng}
}

func strp(s string) *string { return &s }

func (f *fixture) newPost(t *testing.T, title, slug string) *domain.Post {
	t.Helper()
	p, err := repo.CreatePost(context.Background(), f.db, repo.PostInput{Title: strp(title), Slug: strp(slug)})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func mustGet(t *testing.T, m *translation.Model, field, loc string) string {
	t.Helper()
	v, err := m.Translate(context.Background(), field, loc)
	if err != nil {
		t.Fatalf("Translate(%s, %s): %v", field, loc, err)
	}
	if v == nil {
		return "<nil>"
	}
	return *v
}

func mustSet(t *testing.T, m *translation.Model, field, loc string, v *string) {
	t.Helper()
	if err := m.SetTranslate(context.Background(), field, loc, v); err != nil {
		t.Fatalf("SetTranslate(%s, %s): %v", field, loc, err)
	}
}

func TestWorkedExample_Post(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultLocales())
	m := f.engine.Wrap(f.newPost(t, "English Title", "english-slug"))

	mustSet(t, m, "title", "tr", strp("Türkçe Başlık"))
	if got := mustGet(t, m, "title", "tr"); got != "Türkçe Başlık" {
		t.Fatalf("tr title = %q", got)
	}

	complete, err := m.HasAllRequiredFieldsForLocale(ctx, "tr")
	if err != nil || complete {
		t.Fatalf("tr should be incomplete without slug: %v %v", complete, err)
	}
	mustSet(t, m, "slug", "tr", strp("turkce-baslik"))
	if complete, _ = m.HasAllRequiredFieldsForLocale(ctx, "tr"); !complete {
		t.Fatalf("tr should be complete once slug is set")
	}

	if got := mustGet(t, m, "title", "de"); got != "English Title" {
		t.Fatalf("de title should fall back to source, got %q", got)
	}

	mustSet(t, m, "title", "tr", nil)
	if ok, _ := m.HasTranslation(ctx, "title", "tr"); ok {
		t.Fatalf("null write must delete the override")
	}
	if rec, _ := f.store.Find(ctx, domain.PostType, m.Entity().TranslationKey(), "title", "tr"); rec != nil {
		t.Fatalf("record still stored: %+v", rec)
	}
}

func TestTranslate_SourceLocaleReturnsEntityValue(t *testing.T) {
	f := newFixture(t, defaultLocales())
	p := f.newPost(t, "Hello", "hello")
	m := f.engine.Wrap(p)

	if got := mustGet(t, m, "title", "en"); got != "Hello" {
		t.Fatalf("source = %q", got)
	}
	if f.store.finds.Load() != 0 {
		t.Fatalf("source locale must not hit the store")
	}

	p.TranslationExcluded = true
	if got := mustGet(t, m, "title", "en"); got != "Hello" {
		t.Fatalf("excluded source = %q", got)
	}
}

func TestTranslate_ColdAndWarm(t *testing.T) {
	f := newFixture(t, defaultLocales())
	p := f.newPost(t, "Hello", "hello")
	mustSet(t, f.engine.Wrap(p), "title", "de", strp("Hallo"))

	m := f.engine.Wrap(p)
	before := f.store.finds.Load()
	if got := mustGet(t, m, "title", "de"); got != "Hallo" {
		t.Fatalf("cold = %q", got)
	}
	if got := mustGet(t, m, "title", "de"); got != "Hallo" {
		t.Fatalf("warm = %q", got)
	}
	if d := f.store.finds.Load() - before; d != 1 {
		t.Fatalf("store lookups = %d; want 1", d)
	}

	// A fresh handle is served by the shared tier.
	other := f.engine.Wrap(p)
	before = f.store.finds.Load()
	if got := mustGet(t, other, "title", "de"); got != "Hallo" {
		t.Fatalf("shared hit = %q", got)
	}
	if f.store.finds.Load() != before {
		t.Fatalf("shared tier hit must not query the store")
	}
}

func TestTranslate_SingleHopFallback(t *testing.T) {
	cfg := defaultLocales()
	cfg.FallbackLocale = "tr"
	f := newFixture(t, cfg)
	p := f.newPost(t, "Hello", "hello")
	m := f.engine.Wrap(p)

	mustSet(t, m, "title", "tr", strp("Merhaba"))
	mustSet(t, m, "slug", "es", strp("hola"))

	if got := mustGet(t, m, "title", "de"); got != "Merhaba" {
		t.Fatalf("de -> tr fallback = %q", got)
	}
	// slug: no de, no tr (fallback) -> source, never the es override.
	if got := mustGet(t, m, "slug", "de"); got != "hello" {
		t.Fatalf("fallback must not chain, got %q", got)
	}
	// Requesting the fallback locale itself stops after one miss.
	if got := mustGet(t, m, "content", "tr"); got != "<nil>" {
		t.Fatalf("unset source should resolve to nil, got %q", got)
	}
}

func TestTranslate_ExcludedIgnoresOverrides(t *testing.T) {
	f := newFixture(t, defaultLocales())
	p := f.newPost(t, "Hello", "hello")
	mustSet(t, f.engine.Wrap(p), "title", "tr", strp("Merhaba"))

	p.TranslationExcluded = true
	m := f.engine.Wrap(p)
	for _, l := range []string{"en", "tr", "de", "xx"} {
		if got := mustGet(t, m, "title", l); got != "Hello" {
			t.Fatalf("excluded %s = %q", l, got)
		}
	}
}

func TestSetTranslate_IdempotentSingleRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultLocales())
	m := f.engine.Wrap(f.newPost(t, "Hello", "hello"))

	mustSet(t, m, "title", "es", strp("Hola"))
	mustSet(t, m, "title", "es", strp("Hola"))

	recs, err := f.store.ListForField(ctx, domain.PostType, m.Entity().TranslationKey(), "title")
	if err != nil || len(recs) != 1 || *recs[0].Value != "Hola" {
		t.Fatalf("records = %+v, %v", recs, err)
	}
}

func TestSetTranslate_Errors(t *testing.T) {
	ctx := context.Background()
	strict := defaultLocales()
	strict.StrictLocale = true
	f := newFixture(t, strict)

	unsaved := f.engine.Wrap(&domain.Post{Title: strp("x")})
	if err := unsaved.SetTranslate(ctx, "title", "tr", strp("y")); !errors.Is(err, translation.ErrModelNotPersisted) {
		t.Fatalf("want ErrModelNotPersisted, got %v", err)
	}

	m := f.engine.Wrap(f.newPost(t, "Hello", "hello"))
	var fe *translation.FieldNotTranslatableError
	if err := m.SetTranslate(ctx, "author", "tr", strp("y")); !errors.As(err, &fe) || fe.Field != "author" || fe.Entity != "post" {
		t.Fatalf("want FieldNotTranslatableError, got %v", err)
	}
	if err := m.SetTranslate(ctx, "title", "", strp("y")); !errors.Is(err, locale.ErrEmptyLocale) {
		t.Fatalf("want ErrEmptyLocale, got %v", err)
	}
	var ue *locale.UnsupportedLocaleError
	if err := m.SetTranslate(ctx, "title", "ja", strp("y")); !errors.As(err, &ue) || ue.Locale != "ja" {
		t.Fatalf("want UnsupportedLocaleError, got %v", err)
	}

	if has, _ := m.HasAnyTranslations(ctx); has {
		t.Fatalf("failed writes must not store anything")
	}
}

func TestSetTranslate_LenientUnsupportedIsStored(t *testing.T) {
	f := newFixture(t, defaultLocales())
	m := f.engine.Wrap(f.newPost(t, "Hello", "hello"))

	mustSet(t, m, "title", "ja", strp("こんにちは"))
	if got := mustGet(t, m, "title", "ja"); got != "こんにちは" {
		t.Fatalf("ja = %q", got)
	}
}

func TestSetTranslate_SourceLocaleWritesEntity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultLocales())
	p := f.newPost(t, "Hello", "hello")
	m := f.engine.Wrap(p)

	mustSet(t, m, "title", "en", strp("Hi"))
	if *p.Title != "Hi" {
		t.Fatalf("entity attribute not updated")
	}
	stored, err := repo.GetPost(ctx, f.db, p.ID)
	if err != nil || *stored.Title != "Hi" {
		t.Fatalf("entity not persisted: %+v %v", stored, err)
	}
	if n, _ := f.store.CountForEntity(ctx, domain.PostType, p.ID); n != 0 {
		t.Fatalf("source-locale write must not create records, got %d", n)
	}

	mustSet(t, m, "content", "en", nil)
	if ok, _ := m.HasTranslation(ctx, "content", "en"); ok {
		t.Fatalf("nil source value should read as missing")
	}
}

func TestSetTranslate_InvalidatesCache(t *testing.T) {
	f := newFixture(t, defaultLocales())
	m := f.engine.Wrap(f.newPost(t, "Hello", "hello"))

	mustSet(t, m, "title", "tr", strp("Bir"))
	if got := mustGet(t, m, "title", "tr"); got != "Bir" {
		t.Fatalf("first = %q", got)
	}
	mustSet(t, m, "title", "tr", strp("İki"))
	if got := mustGet(t, m, "title", "tr"); got != "İki" {
		t.Fatalf("stale read after write: %q", got)
	}
	mustSet(t, m, "title", "tr", nil)
	if got := mustGet(t, m, "title", "tr"); got != "Hello" {
		t.Fatalf("deleted override still served: %q", got)
	}
}

func TestSetTranslate_RefreshesLoadedCollection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultLocales())
	m := f.engine.Wrap(f.newPost(t, "Hello", "hello"))

	if err := m.Load(ctx); err != nil || !m.Loaded() {
		t.Fatalf("Load: %v", err)
	}
	mustSet(t, m, "title", "de", strp("Hallo"))

	before := f.store.finds.Load()
	if ok, _ := m.HasTranslation(ctx, "title", "de"); !ok {
		t.Fatalf("loaded collection not refreshed")
	}
	if f.store.finds.Load() != before {
		t.Fatalf("loaded reads must not query the store")
	}
}

func TestAggregates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultLocales())
	p := f.newPost(t, "Hello", "hello")
	m := f.engine.Wrap(p)
	mustSet(t, m, "title", "tr", strp("Merhaba"))
	mustSet(t, m, "title", "es", strp("Hola"))
	mustSet(t, m, "content", "de", strp("Inhalt"))

	fresh := f.engine.Wrap(p)
	ft, err := fresh.FieldTranslations(ctx, "title")
	if err != nil {
		t.Fatalf("FieldTranslations: %v", err)
	}
	want := map[string]string{"en": "Hello", "tr": "Merhaba", "es": "Hola"}
	if !reflect.DeepEqual(ft, want) {
		t.Fatalf("FieldTranslations = %v; want %v", ft, want)
	}

	missing, err := fresh.MissingLocales(ctx, "title")
	if err != nil || !reflect.DeepEqual(missing, []string{"de"}) {
		t.Fatalf("MissingLocales(title) = %v, %v", missing, err)
	}
	missing, _ = fresh.MissingLocales(ctx, "content")
	if !reflect.DeepEqual(missing, []string{"en", "tr", "es"}) {
		t.Fatalf("MissingLocales(content) = %v (content has no source value)", missing)
	}

	all, err := fresh.AllTranslations(ctx)
	if err != nil {
		t.Fatalf("AllTranslations: %v", err)
	}
	if !fresh.Loaded() {
		t.Fatalf("AllTranslations should eager-load records")
	}
	if len(all) != 3 || all["content"]["de"] != "Inhalt" || all["slug"]["en"] != "hello" || len(all["slug"]) != 1 {
		t.Fatalf("AllTranslations = %v", all)
	}
	if _, ok := all["content"]["en"]; ok {
		t.Fatalf("nil source values must not be seeded")
	}
}

func TestHasAnyTranslations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultLocales())
	m := f.engine.Wrap(f.newPost(t, "Hello", "hello"))

	if has, err := m.HasAnyTranslations(ctx); err != nil || has {
		t.Fatalf("fresh post = %v, %v", has, err)
	}
	mustSet(t, m, "slug", "de", strp("hallo"))
	if has, _ := m.HasAnyTranslations(ctx); !has {
		t.Fatalf("expected translations after write")
	}
	_ = m.Load(ctx)
	if has, _ := m.HasAnyTranslations(ctx); !has {
		t.Fatalf("expected translations from loaded collection")
	}
}

func TestHasAllRequired_SourceLocaleUsesEntityColumns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultLocales())
	p, err := repo.CreatePost(ctx, f.db, repo.PostInput{Title: strp("Only title")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m := f.engine.Wrap(p)
	if ok, _ := m.HasAllRequiredFieldsForLocale(ctx, "en"); ok {
		t.Fatalf("slug is nil on the entity; en must be incomplete")
	}
	mustSet(t, m, "slug", "en", strp("only-title"))
	if ok, _ := m.HasAllRequiredFieldsForLocale(ctx, "en"); !ok {
		t.Fatalf("en should be complete after setting slug")
	}
}

func TestRequiredFields_DefaultToAllTranslatable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultLocales())
	p := f.newPost(t, "Hello", "hello")
	c, err := repo.CreateComment(ctx, f.db, p.ID, strp("Nice"))
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	m := f.engine.Wrap(c)
	if !reflect.DeepEqual(m.RequiredFields(), []string{"body"}) {
		t.Fatalf("RequiredFields = %v", m.RequiredFields())
	}
	if ok, _ := m.HasAllRequiredFieldsForLocale(ctx, "tr"); ok {
		t.Fatalf("body has no tr override yet")
	}
	mustSet(t, m, "body", "tr", strp("Güzel"))
	if ok, _ := m.HasAllRequiredFieldsForLocale(ctx, "tr"); !ok {
		t.Fatalf("body tr override should complete tr")
	}
}

func TestGet_Interception(t *testing.T) {
	f := newFixture(t, defaultLocales())
	p := f.newPost(t, "Hello", "hello")
	m := f.engine.Wrap(p)
	mustSet(t, m, "title", "de", strp("Hallo"))

	ctx := context.Background()
	if v, _ := m.Get(ctx, "title"); *v != "Hello" {
		t.Fatalf("default ambient en = %q", *v)
	}

	deCtx := locale.WithLocale(ctx, "de")
	if v, _ := m.Get(deCtx, "title"); *v != "Hallo" {
		t.Fatalf("ambient de = %q", *v)
	}
	if v, _ := m.Get(deCtx, "slug"); *v != "hello" {
		t.Fatalf("missing override should read source, got %q", *v)
	}

	m.SetPreferredLocale("en")
	if v, _ := m.Get(deCtx, "title"); *v != "Hello" {
		t.Fatalf("preferred locale must win over ambient, got %q", *v)
	}
	if m.PreferredLocale() != "en" {
		t.Fatalf("PreferredLocale = %q", m.PreferredLocale())
	}

	if v, _ := m.Get(deCtx, "id"); v == nil || *v != p.ID {
		t.Fatalf("non-translatable id must pass through to the entity, got %v", v)
	}
	if v, _ := m.Get(deCtx, "created_at"); v != nil {
		t.Fatalf("non-string attributes read nil, got %q", *v)
	}
}

func TestDeleted_CascadesAndClearsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultLocales())
	p := f.newPost(t, "Hello", "hello")
	m := f.engine.Wrap(p)
	mustSet(t, m, "title", "tr", strp("Merhaba"))
	mustSet(t, m, "slug", "tr", strp("merhaba"))
	_ = mustGet(t, m, "title", "tr") // warm caches

	if err := repo.DeletePost(ctx, f.db, p.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	n, err := m.Deleted(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Deleted = %d, %v; want 2", n, err)
	}
	if recs, _ := f.store.ListForEntity(ctx, domain.PostType, p.ID); len(recs) != 0 {
		t.Fatalf("records survived cascade: %+v", recs)
	}
	if got := mustGet(t, f.engine.Wrap(p), "title", "tr"); got != "Hello" {
		t.Fatalf("cache still serving deleted override: %q", got)
	}
}

// failingStore returns errBoom from every call.
type failingStore struct{ translation.Store }

var errBoom = errors.New("boom")

func (failingStore) Find(context.Context, string, string, string, string) (*domain.Translation, error) {
	return nil, errBoom
}
func (failingStore) Upsert(context.Context, string, string, string, string, string) (*domain.Translation, error) {
	return nil, errBoom
}
func (failingStore) Exists(context.Context, string, string, string, string) (bool, error) {
	return false, errBoom
}
func (failingStore) ListForField(context.Context, string, string, string) ([]domain.Translation, error) {
	return nil, errBoom
}

func TestStoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	reg := locale.NewRegistry(defaultLocales())
	eng := translation.NewEngine(reg, failingStore{}, nil, nil, locale.Static("tr"))
	m := eng.Wrap(&domain.Post{ID: "p1", Title: strp("Hello")})

	if _, err := m.Translate(ctx, "title", "tr"); !errors.Is(err, errBoom) {
		t.Fatalf("Translate err = %v", err)
	}
	if err := m.SetTranslate(ctx, "title", "tr", strp("x")); !errors.Is(err, errBoom) {
		t.Fatalf("SetTranslate err = %v", err)
	}
	if _, err := m.HasTranslation(ctx, "title", "tr"); !errors.Is(err, errBoom) {
		t.Fatalf("HasTranslation err = %v", err)
	}
	if _, err := m.MissingLocales(ctx, "title"); !errors.Is(err, errBoom) {
		t.Fatalf("MissingLocales err = %v", err)
	}
	if err := m.SetTranslate(ctx, "title", "en", strp("x")); !errors.Is(err, translation.ErrNoEntitySaver) {
		t.Fatalf("source write without saver = %v", err)
	}
	if v, err := m.Get(ctx, "title"); !errors.Is(err, errBoom) || v != nil {
		t.Fatalf("Get with static tr ambient = %v, %v", v, err)
	}
}
