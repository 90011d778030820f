// Package repo implements the persistence layer of the translation service,
// backed by GORM. This file provides aggregate queries over the translation
// table used by the stats command: totals, per-type / per-locale / per-field
// counts, and the most recently updated records.
package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/go-polyglot/internal/domain"
)

// StatsFilter narrows aggregate queries. Empty fields match everything.
type StatsFilter struct {
	EntityType string
	Locale     string
}

// GroupCount is one row of a grouped count.
type GroupCount struct {
	Name  string `json:"name"`
	Total int64  `json:"total"`
}

func (s *TranslationStore) filtered(ctx context.Context, f StatsFilter) *gorm.DB {
	q := s.q(ctx)
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.Locale != "" {
		q = q.Where("locale = ?", f.Locale)
	}
	return q
}

// CountAll returns the number of records matching f.
func (s *TranslationStore) CountAll(ctx context.Context, f StatsFilter) (int64, error) {
	var n int64
	if err := s.filtered(ctx, f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count translations: %w", err)
	}
	return n, nil
}

// CountByType groups matching records by entity type.
func (s *TranslationStore) CountByType(ctx context.Context, f StatsFilter) ([]GroupCount, error) {
	return s.countBy(ctx, "entity_type", f, 0)
}

// CountByLocale groups matching records by locale.
func (s *TranslationStore) CountByLocale(ctx context.Context, f StatsFilter) ([]GroupCount, error) {
	return s.countBy(ctx, "locale", f, 0)
}

// CountByField groups matching records by field, largest first. A limit
// <= 0 returns every group.
func (s *TranslationStore) CountByField(ctx context.Context, f StatsFilter, limit int) ([]GroupCount, error) {
	return s.countBy(ctx, "field", f, limit)
}

// countBy groups by one of the fixed column names above; column is never
// caller-supplied.
func (s *TranslationStore) countBy(ctx context.Context, column string, f StatsFilter, limit int) ([]GroupCount, error) {
	var out []GroupCount
	q := s.filtered(ctx, f).
		Select(column + " AS name, COUNT(*) AS total").
		Group(column).
		Order("total DESC, name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("group translations by %s: %w", column, err)
	}
	return out, nil
}

// Recent returns the most recently updated records matching f.
func (s *TranslationStore) Recent(ctx context.Context, f StatsFilter, limit int) ([]domain.Translation, error) {
	if limit <= 0 {
		limit = 5
	}
	var out []domain.Translation
	err := s.filtered(ctx, f).
		Order("updated_at DESC, id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("recent translations: %w", err)
	}
	return out, nil
}
