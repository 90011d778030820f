package repo

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-polyglot/internal/events"
)

// newTestDB opens a temp-file SQLite database with the full schema. A file
// (not shared memory) keeps transactions and the connection pool honest.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "repo.db"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db, "translations"); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type recorder struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recorder) Emit(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, 0, len(r.got))
	for _, ev := range r.got {
		out = append(out, ev.Kind)
	}
	return out
}

func newTestStore(t *testing.T) (*TranslationStore, *recorder) {
	t.Helper()
	rec := &recorder{}
	return NewTranslationStore(newTestDB(t), "translations", events.NewDispatcher(true, rec)), rec
}

func strp(s string) *string { return &s }
