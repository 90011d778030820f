// Package repo implements the persistence layer of the translation service,
// backed by GORM. This file provides the TranslationStore: CRUD over
// override records keyed by (entity_type, entity_id, field, locale).
//
// Error semantics:
//   - Find returns (nil, nil) when no record matches; absence is not an error
//     for the resolution engine.
//   - Database errors are wrapped with the operation name and propagated.
//
// Every create, update and delete notifies the events.Dispatcher after the
// write has committed. Notifications are gated by configuration and can
// never fail the store operation.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-polyglot/internal/domain"
	"github.com/tbourn/go-polyglot/internal/events"
)

// ErrNotFound is returned when a requested row does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// keyColumns is the unique tuple of a translation record.
var keyColumns = []clause.Column{
	{Name: "entity_type"},
	{Name: "entity_id"},
	{Name: "field"},
	{Name: "locale"},
}

const keyWhere = "entity_type = ? AND entity_id = ? AND field = ? AND locale = ?"

// TranslationStore persists override records in a configurable table.
type TranslationStore struct {
	DB     *gorm.DB
	Table  string
	Events *events.Dispatcher

	log zerolog.Logger
}

// NewTranslationStore returns a store over table (default "translations").
// A nil dispatcher disables notifications.
func NewTranslationStore(db *gorm.DB, table string, ev *events.Dispatcher) *TranslationStore {
	if table == "" {
		table = domain.DefaultTranslationTable
	}
	return &TranslationStore{
		DB:     db,
		Table:  table,
		Events: ev,
		log:    log.With().Str("component", "translation_store").Str("table", table).Logger(),
	}
}

func (s *TranslationStore) q(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).Table(s.Table)
}

// Find returns the record for the unique key, or nil when absent.
func (s *TranslationStore) Find(ctx context.Context, entityType, entityID, field, locale string) (*domain.Translation, error) {
	var rec domain.Translation
	err := s.q(ctx).Where(keyWhere, entityType, entityID, field, locale).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find translation: %w", err)
	}
	return &rec, nil
}

// Exists reports whether a record exists for the unique key.
func (s *TranslationStore) Exists(ctx context.Context, entityType, entityID, field, locale string) (bool, error) {
	var n int64
	if err := s.q(ctx).Where(keyWhere, entityType, entityID, field, locale).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check translation: %w", err)
	}
	return n > 0, nil
}

// Upsert creates or overwrites the value for the unique key in a single
// INSERT ... ON CONFLICT statement, so concurrent writers leave exactly one
// row. The returned record reflects the stored state.
func (s *TranslationStore) Upsert(ctx context.Context, entityType, entityID, field, locale, value string) (*domain.Translation, error) {
	var (
		out  domain.Translation
		kind = events.Created
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior int64
		if err := tx.Table(s.Table).Where(keyWhere, entityType, entityID, field, locale).Count(&prior).Error; err != nil {
			return err
		}
		if prior > 0 {
			kind = events.Updated
		}

		now := time.Now().UTC()
		v := value
		rec := domain.Translation{
			ID:         uuid.NewString(),
			EntityType: entityType,
			EntityID:   entityID,
			Field:      field,
			Locale:     locale,
			Value:      &v,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		err := tx.Table(s.Table).Clauses(clause.OnConflict{
			Columns:   keyColumns,
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rec).Error
		if err != nil {
			return err
		}
		return tx.Table(s.Table).Where(keyWhere, entityType, entityID, field, locale).Take(&out).Error
	})
	if err != nil {
		return nil, fmt.Errorf("upsert translation: %w", err)
	}

	s.Events.Dispatch(ctx, kind, out)
	return &out, nil
}

// Delete removes the record for the unique key. It reports false, with no
// error and no notification, when nothing was stored.
func (s *TranslationStore) Delete(ctx context.Context, entityType, entityID, field, locale string) (bool, error) {
	rec, err := s.Find(ctx, entityType, entityID, field, locale)
	if err != nil || rec == nil {
		return false, err
	}
	return s.deleteRecord(ctx, *rec)
}

func (s *TranslationStore) deleteRecord(ctx context.Context, rec domain.Translation) (bool, error) {
	res := s.q(ctx).Where("id = ?", rec.ID).Delete(&domain.Translation{})
	if res.Error != nil {
		return false, fmt.Errorf("delete translation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	s.Events.Dispatch(ctx, events.Deleted, rec)
	return true, nil
}

// DeleteAllForEntity removes every record owned by the entity and returns
// how many were deleted. Each removed record is notified individually.
func (s *TranslationStore) DeleteAllForEntity(ctx context.Context, entityType, entityID string) (int64, error) {
	var recs []domain.Translation
	if s.Events.Enabled() {
		var err error
		if recs, err = s.ListForEntity(ctx, entityType, entityID); err != nil {
			return 0, err
		}
	}

	res := s.q(ctx).Where("entity_type = ? AND entity_id = ?", entityType, entityID).Delete(&domain.Translation{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete translations for entity: %w", res.Error)
	}
	for _, rec := range recs {
		s.Events.Dispatch(ctx, events.Deleted, rec)
	}
	return res.RowsAffected, nil
}

// ListForEntity returns every record of the entity ordered by field, locale.
func (s *TranslationStore) ListForEntity(ctx context.Context, entityType, entityID string) ([]domain.Translation, error) {
	var out []domain.Translation
	err := s.q(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("field ASC, locale ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list translations: %w", err)
	}
	return out, nil
}

// ListForField returns the records of one field ordered by locale.
func (s *TranslationStore) ListForField(ctx context.Context, entityType, entityID, field string) ([]domain.Translation, error) {
	var out []domain.Translation
	err := s.q(ctx).
		Where("entity_type = ? AND entity_id = ? AND field = ?", entityType, entityID, field).
		Order("locale ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list field translations: %w", err)
	}
	return out, nil
}

// CountForEntity returns how many records the entity owns.
func (s *TranslationStore) CountForEntity(ctx context.Context, entityType, entityID string) (int64, error) {
	var n int64
	err := s.q(ctx).Where("entity_type = ? AND entity_id = ?", entityType, entityID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count translations: %w", err)
	}
	return n, nil
}
