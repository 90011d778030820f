package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/tbourn/go-polyglot/internal/domain"
	"github.com/tbourn/go-polyglot/internal/observability"
)

const orphanBatch = 500

type ownerKey struct{ typ, id string }

// FindOrphaned scans every record and returns those whose owner is gone:
// the type tag is not registered, or no row with that id exists. Records
// whose owner lookup fails are logged and skipped.
func (s *TranslationStore) FindOrphaned(ctx context.Context, entities *EntityRegistry) ([]domain.Translation, error) {
	var (
		orphans []domain.Translation
		owners  = map[ownerKey]bool{} // owner -> exists
		lastID  string
	)
	for {
		var batch []domain.Translation
		err := s.q(ctx).Where("id > ?", lastID).Order("id ASC").Limit(orphanBatch).Find(&batch).Error
		if err != nil {
			return nil, fmt.Errorf("scan translations: %w", err)
		}
		for _, rec := range batch {
			k := ownerKey{rec.EntityType, rec.EntityID}
			exists, seen := owners[k]
			if !seen {
				var err error
				exists, err = entities.Exists(ctx, rec.EntityType, rec.EntityID)
				switch {
				case errors.Is(err, ErrUnknownEntityType):
					exists = false
				case err != nil:
					s.log.Warn().Err(err).
						Str("translation_id", rec.ID).
						Str("entity_type", rec.EntityType).
						Str("entity_id", rec.EntityID).
						Msg("owner lookup failed; skipping record")
					continue
				}
				owners[k] = exists
			}
			if !exists {
				orphans = append(orphans, rec)
			}
		}
		if len(batch) < orphanBatch {
			return orphans, nil
		}
		lastID = batch[len(batch)-1].ID
	}
}

// CleanOrphaned deletes every orphaned record and returns how many rows
// were removed. Running it again on a clean table removes nothing.
func (s *TranslationStore) CleanOrphaned(ctx context.Context, entities *EntityRegistry) (int, error) {
	orphans, err := s.FindOrphaned(ctx, entities)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, rec := range orphans {
		ok, err := s.deleteRecord(ctx, rec)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	observability.OrphansRemoved.Add(float64(removed))
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("orphaned translations cleaned")
	}
	return removed, nil
}
