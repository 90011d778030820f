package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-polyglot/internal/app"
	"github.com/tbourn/go-polyglot/internal/config"
	"github.com/tbourn/go-polyglot/internal/domain"
	"github.com/tbourn/go-polyglot/internal/services"
)

// setEnv points the configuration at a fresh database.
func setEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("GIN_MODE", "test")
	t.Setenv("POLYGLOT_EVENTS_ENABLED", "false")
	t.Setenv("POLYGLOT_SUPPORTED_LOCALES", "en,tr,de")
	t.Setenv("POLYGLOT_ENV_FILE", "")
	return dbPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(app.Build)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func strp(s string) *string { return &s }

// seed creates one live post with a de override and one post whose row is
// removed behind the store's back, leaving its tr override orphaned.
func seed(t *testing.T) (orphanID string) {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	ctx := context.Background()
	a, err := app.Build(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close(ctx)

	if _, err := a.Posts.Create(ctx, services.CreatePost{
		Title:        strp("Kept"),
		Translations: map[string]map[string]string{"de": {"title": "Behalten"}},
	}); err != nil {
		t.Fatalf("create kept: %v", err)
	}
	gone, err := a.Posts.Create(ctx, services.CreatePost{
		Title:        strp("Gone"),
		Translations: map[string]map[string]string{"tr": {"title": "Gitti"}},
	})
	if err != nil {
		t.Fatalf("create gone: %v", err)
	}
	if err := a.DB.Exec("DELETE FROM posts WHERE id = ?", gone.ID).Error; err != nil {
		t.Fatalf("raw delete: %v", err)
	}
	return gone.ID
}

func TestCleanOrphaned_DryRunThenDelete(t *testing.T) {
	setEnv(t)
	orphanID := seed(t)

	out, err := run(t, "clean-orphaned", "--dry-run")
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(out, "Found 1 orphaned translation(s).") || !strings.Contains(out, orphanID) || !strings.Contains(out, "Dry run") {
		t.Fatalf("dry-run output:\n%s", out)
	}

	out, err = run(t, "clean-orphaned")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if !strings.Contains(out, "Deleted 1 orphaned translation(s).") {
		t.Fatalf("clean output:\n%s", out)
	}

	out, _ = run(t, "clean-orphaned")
	if !strings.Contains(out, "No orphaned translations found.") {
		t.Fatalf("second clean output:\n%s", out)
	}
}

func TestStats_TextAndJSON(t *testing.T) {
	setEnv(t)
	seed(t)

	out, err := run(t, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"Total translations: 2", "Translations by locale:", "Most translated fields:", "Recently updated:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	out, err = run(t, "stats", "--locale", "de", "--model", domain.PostType, "--format", "json")
	if err != nil {
		t.Fatalf("stats json: %v", err)
	}
	var rep services.StatsReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if rep.Total != 1 || rep.Filter.Locale != "de" || len(rep.Recent) != 1 || rep.Recent[0].Locale != "de" {
		t.Fatalf("report = %+v", rep)
	}
}

func TestStats_EmptyDatabase(t *testing.T) {
	setEnv(t)
	out, err := run(t, "stats", "--locale", "tr")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Total translations: 0") || !strings.Contains(out, "No translations found.") || !strings.Contains(out, `locale="tr"`) {
		t.Fatalf("output:\n%s", out)
	}
}

func TestStats_InvalidOptions(t *testing.T) {
	setEnv(t)
	for _, args := range [][]string{
		{"stats", "--format", "xml"},
		{"stats", "--locale", "tr;drop"},
		{"stats", "--model", "App\\Post"},
	} {
		if _, err := run(t, args...); err == nil {
			t.Fatalf("%v: expected validation error", args)
		}
	}
}

func TestRoot_EnvFile(t *testing.T) {
	setEnv(t)

	if _, err := run(t, "--env-file", filepath.Join(t.TempDir(), "nope.env"), "stats"); err == nil {
		t.Fatal("explicit missing env file should fail")
	}

	// The file is only consulted for keys the environment does not set.
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")
	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte("LOG_LEVEL=bogus\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := run(t, "--env-file", envFile, "stats")
	if err == nil || !strings.Contains(err.Error(), "LOG_LEVEL") {
		t.Fatalf("expected config error from env file, got %v", err)
	}
}

func TestLoadEnvFile_DefaultMissingIsFine(t *testing.T) {
	t.Setenv("POLYGLOT_ENV_FILE", "")
	if err := loadEnvFile(""); err != nil {
		t.Fatalf("missing default .env: %v", err)
	}
}

type fakeCleaner struct {
	orphans []domain.Translation
	err     error
	cleaned bool
}

func (f *fakeCleaner) Orphans(context.Context) ([]domain.Translation, error) { return f.orphans, f.err }
func (f *fakeCleaner) CleanOrphans(context.Context) (int, error) {
	f.cleaned = true
	return len(f.orphans), nil
}

func TestCleanOrphaned_Paths(t *testing.T) {
	var out bytes.Buffer
	f := &fakeCleaner{err: errors.New("db down")}
	if err := cleanOrphaned(context.Background(), &out, f, false); err == nil || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("scan error = %v", err)
	}

	f = &fakeCleaner{orphans: []domain.Translation{{ID: "t1", EntityType: "ghost", EntityID: "9", Field: "title", Locale: "tr"}}}
	out.Reset()
	if err := cleanOrphaned(context.Background(), &out, f, true); err != nil {
		t.Fatal(err)
	}
	if f.cleaned || !strings.Contains(out.String(), "ghost") {
		t.Fatalf("dry run must not delete; out=%s", out.String())
	}
	if err := cleanOrphaned(context.Background(), &out, f, false); err != nil || !f.cleaned {
		t.Fatalf("clean = %v cleaned=%v", err, f.cleaned)
	}
}

func TestPurge_RemovesExpiredRows(t *testing.T) {
	setEnv(t)
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	ctx := context.Background()
	a, err := app.Build(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	rows := []any{
		&domain.CacheEntry{Key: "stale", Value: "x", ExpiresAt: past},
		&domain.CacheEntry{Key: "fresh", Value: "y", ExpiresAt: future},
		&domain.IdempotencyKey{ID: "k1", Scope: "POST /api/v1/posts", Key: "old", ResourceID: "p1", Status: 201, CreatedAt: past, ExpiresAt: past},
	}
	for _, row := range rows {
		if err := a.DB.Create(row).Error; err != nil {
			t.Fatalf("insert %T: %v", row, err)
		}
	}
	a.Close(ctx)

	out, err := run(t, "purge")
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if !strings.Contains(out, "Purged 1 cache entr(ies) and 1 idempotency key(s).") {
		t.Fatalf("output:\n%s", out)
	}
	out, _ = run(t, "purge")
	if !strings.Contains(out, "Purged 0 cache entr(ies) and 0 idempotency key(s).") {
		t.Fatalf("second purge:\n%s", out)
	}
}
