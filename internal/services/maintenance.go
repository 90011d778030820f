// Package services – Maintenance
//
// This file implements the maintenance use-cases behind the CLI and the
// admin endpoint: orphaned-override reconciliation and translation
// statistics. Both are built purely on the store's query surface.
package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-polyglot/internal/domain"
	"github.com/tbourn/go-polyglot/internal/repo"
)

// Maintenance groups orphan cleanup and statistics.
type Maintenance struct {
	Store    *repo.TranslationStore
	Entities *repo.EntityRegistry
	// TopFields caps the per-field breakdown (default 10).
	TopFields int
	// RecentLimit caps the recently-updated list (default 5).
	RecentLimit int
}

// NewMaintenance returns a Maintenance with the default report sizes.
func NewMaintenance(store *repo.TranslationStore, entities *repo.EntityRegistry) *Maintenance {
	return &Maintenance{Store: store, Entities: entities, TopFields: 10, RecentLimit: 5}
}

// StatsReport summarizes the translation table.
type StatsReport struct {
	Filter    repo.StatsFilter     `json:"filter"`
	Total     int64                `json:"total"`
	ByType    []repo.GroupCount    `json:"by_type"`
	ByLocale  []repo.GroupCount    `json:"by_locale"`
	TopFields []repo.GroupCount    `json:"top_fields"`
	Recent    []domain.Translation `json:"recent"`
}

// Orphans lists override records whose owner type is unregistered or whose
// owner row is gone, without deleting anything.
func (m *Maintenance) Orphans(ctx context.Context) ([]domain.Translation, error) {
	ctx, span := otel.Tracer("services/Maintenance").Start(ctx, "Orphans")
	defer span.End()
	return m.Store.FindOrphaned(ctx, m.Entities)
}

// CleanOrphans deletes orphaned overrides and returns how many were removed.
func (m *Maintenance) CleanOrphans(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("services/Maintenance").Start(ctx, "CleanOrphans")
	defer span.End()

	n, err := m.Store.CleanOrphaned(ctx, m.Entities)
	span.SetAttributes(attribute.Int("removed", n))
	return n, err
}

// Stats builds a StatsReport for f.
func (m *Maintenance) Stats(ctx context.Context, f repo.StatsFilter) (*StatsReport, error) {
	ctx, span := otel.Tracer("services/Maintenance").Start(ctx, "Stats",
		trace.WithAttributes(
			attribute.String("filter.entity_type", f.EntityType),
			attribute.String("filter.locale", f.Locale),
		),
	)
	defer span.End()

	top, recent := m.TopFields, m.RecentLimit
	if top <= 0 {
		top = 10
	}
	if recent <= 0 {
		recent = 5
	}

	r := &StatsReport{Filter: f}
	var err error
	if r.Total, err = m.Store.CountAll(ctx, f); err != nil {
		return nil, err
	}
	if r.ByType, err = m.Store.CountByType(ctx, f); err != nil {
		return nil, err
	}
	if r.ByLocale, err = m.Store.CountByLocale(ctx, f); err != nil {
		return nil, err
	}
	if r.TopFields, err = m.Store.CountByField(ctx, f, top); err != nil {
		return nil, err
	}
	if r.Recent, err = m.Store.Recent(ctx, f, recent); err != nil {
		return nil, err
	}
	return r, nil
}
