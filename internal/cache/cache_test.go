package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/go-polyglot/internal/observability"
)

// fakeShared is an in-memory Shared that records calls and can fail on demand.
type fakeShared struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	gets    int
	forgot  []string
	failAll bool
}

func newFakeShared() *fakeShared {
	return &fakeShared{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

var errBackend = errors.New("backend down")

func (f *fakeShared) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failAll {
		return "", false, errBackend
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeShared) Put(_ context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errBackend
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeShared) Forget(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgot = append(f.forgot, key)
	if f.failAll {
		return errBackend
	}
	delete(f.data, key)
	return nil
}

var post = Ref{Type: "post", ID: "42"}

func enabled(shared Shared) *TranslationCache {
	return New(shared, Options{Enabled: true, TTL: time.Hour, Prefix: "polyglot_"})
}

func TestKey_Format_AndTypeSeparation(t *testing.T) {
	if got := Key("polyglot_", post, "title", "tr"); got != "polyglot_post_42_title_tr" {
		t.Fatalf("Key = %q", got)
	}
	a := Key("p_", Ref{Type: "post", ID: "1"}, "title", "tr")
	b := Key("p_", Ref{Type: "page", ID: "1"}, "title", "tr")
	if a == b {
		t.Fatalf("keys for different entity types collide: %q", a)
	}
}

func TestGet_RequestTierFirst_ThenShared(t *testing.T) {
	ctx := context.Background()
	sh := newFakeShared()
	c := enabled(sh)
	scope := Scope{}

	if _, ok := c.Get(ctx, scope, post, "title", "tr"); ok {
		t.Fatalf("cold cache should miss")
	}

	sh.data["polyglot_post_42_title_tr"] = "Başlık"
	v, ok := c.Get(ctx, scope, post, "title", "tr")
	if !ok || v != "Başlık" {
		t.Fatalf("shared hit expected, got %q %v", v, ok)
	}
	if scope[Slot{"title", "tr"}] != "Başlık" {
		t.Fatalf("shared hit must populate the request tier")
	}

	gets := sh.gets
	before := testutil.ToFloat64(observability.CacheHits.WithLabelValues(observability.TierRequest))
	if v, ok := c.Get(ctx, scope, post, "title", "tr"); !ok || v != "Başlık" {
		t.Fatalf("request-tier hit expected")
	}
	if sh.gets != gets {
		t.Fatalf("request-tier hit must not touch the shared tier")
	}
	if d := testutil.ToFloat64(observability.CacheHits.WithLabelValues(observability.TierRequest)) - before; d != 1 {
		t.Fatalf("request hit metric delta = %v", d)
	}
}

func TestPut_WritesBothTiersWithTTL(t *testing.T) {
	sh := newFakeShared()
	c := enabled(sh)
	scope := Scope{}
	c.Put(context.Background(), scope, post, "slug", "de", "titel")

	if scope[Slot{"slug", "de"}] != "titel" {
		t.Fatalf("request tier not written")
	}
	if sh.data["polyglot_post_42_slug_de"] != "titel" || sh.ttls["polyglot_post_42_slug_de"] != time.Hour {
		t.Fatalf("shared tier not written with TTL: %+v %+v", sh.data, sh.ttls)
	}
}

func TestInvalidate_RemovesBothTiers(t *testing.T) {
	ctx := context.Background()
	sh := newFakeShared()
	c := enabled(sh)
	scope := Scope{}
	c.Put(ctx, scope, post, "title", "tr", "x")
	c.Put(ctx, scope, post, "title", "de", "y")

	c.Invalidate(ctx, scope, post, "title", "tr")
	if _, ok := scope[Slot{"title", "tr"}]; ok {
		t.Fatalf("request tier entry survived")
	}
	if _, ok := sh.data["polyglot_post_42_title_tr"]; ok {
		t.Fatalf("shared entry survived")
	}
	if _, ok := c.Get(ctx, scope, post, "title", "de"); !ok {
		t.Fatalf("unrelated entry should survive")
	}
}

func TestInvalidateAll_FieldsTimesLocales(t *testing.T) {
	ctx := context.Background()
	sh := newFakeShared()
	c := enabled(sh)
	scope := Scope{{"title", "tr"}: "a", {"slug", "xx"}: "b"}

	c.InvalidateAll(ctx, scope, post, []string{"title", "slug"}, []string{"en", "tr", "de"})
	if len(scope) != 0 {
		t.Fatalf("request tier must be emptied, got %v", scope)
	}
	if len(sh.forgot) != 6 {
		t.Fatalf("forgot %d keys; want 6: %v", len(sh.forgot), sh.forgot)
	}
}

func TestDisabled_IsNoop(t *testing.T) {
	ctx := context.Background()
	sh := newFakeShared()
	sh.data["polyglot_post_42_title_tr"] = "x"
	c := New(sh, Options{Enabled: false, TTL: time.Hour, Prefix: "polyglot_"})
	scope := Scope{}

	if _, ok := c.Get(ctx, scope, post, "title", "tr"); ok {
		t.Fatalf("disabled cache must always miss")
	}
	c.Put(ctx, scope, post, "title", "de", "y")
	c.Invalidate(ctx, scope, post, "title", "tr")
	if len(scope) != 0 || sh.gets != 0 || len(sh.forgot) != 0 {
		t.Fatalf("disabled cache touched a tier: scope=%v gets=%d forgot=%v", scope, sh.gets, sh.forgot)
	}
	var nilCache *TranslationCache
	if nilCache.Enabled() {
		t.Fatalf("nil cache must report disabled")
	}
}

func TestSharedErrors_DegradeToMiss(t *testing.T) {
	ctx := context.Background()
	sh := newFakeShared()
	sh.failAll = true
	c := enabled(sh)
	scope := Scope{}

	before := testutil.ToFloat64(observability.CacheErrors.WithLabelValues("get"))
	if _, ok := c.Get(ctx, scope, post, "title", "tr"); ok {
		t.Fatalf("failing tier must read as a miss")
	}
	if d := testutil.ToFloat64(observability.CacheErrors.WithLabelValues("get")) - before; d != 1 {
		t.Fatalf("error metric delta = %v", d)
	}

	c.Put(ctx, scope, post, "title", "tr", "x") // must not panic
	if scope[Slot{"title", "tr"}] != "x" {
		t.Fatalf("request tier should still be written when shared fails")
	}
	c.InvalidateAll(ctx, scope, post, []string{"title"}, []string{"tr"})
}

func TestNilScope_IsTolerated(t *testing.T) {
	ctx := context.Background()
	sh := newFakeShared()
	c := enabled(sh)
	c.Put(ctx, nil, post, "title", "tr", "x")
	if v, ok := c.Get(ctx, nil, post, "title", "tr"); !ok || v != "x" {
		t.Fatalf("shared tier should serve with nil scope")
	}
	c.Invalidate(ctx, nil, post, "title", "tr")
	c.InvalidateAll(ctx, nil, post, []string{"title"}, []string{"tr"})
}

func TestMemory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(100, time.Minute)

	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatalf("empty memory tier should miss")
	}
	if err := m.Put(ctx, "k", "v", time.Second); err != nil {
		t.Fatalf("put: %v", err)
	}
	if v, ok, err := m.Get(ctx, "k"); err != nil || !ok || v != "v" {
		t.Fatalf("get = %q %v %v", v, ok, err)
	}
	if err := m.Forget(ctx, "k"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatalf("forgotten key still present")
	}
}

func TestNew_NilSharedBehavesLikeNoop(t *testing.T) {
	c := enabled(nil)
	scope := Scope{}
	c.Put(context.Background(), scope, post, "title", "tr", "x")
	if _, ok := c.Get(context.Background(), nil, post, "title", "tr"); ok {
		t.Fatalf("noop shared tier must not retain values")
	}
}
