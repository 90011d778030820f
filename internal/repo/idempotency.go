package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-polyglot/internal/domain"
)

// ErrDuplicate is returned when an idempotency key is already recorded for
// the scope.
var ErrDuplicate = errors.New("duplicate idempotency key")

// GetIdempotency returns the unexpired record for (scope, key), or
// ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.IdempotencyKey, error) {
	var rec domain.IdempotencyKey
	err := db.WithContext(ctx).
		Where("scope = ? AND key = ? AND expires_at > ?", scope, key, now).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency records resourceID under (scope, key). An existing row
// for the pair yields ErrDuplicate; an expired one is replaced.
func CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key, resourceID string, status int, now time.Time, ttl time.Duration) (*domain.IdempotencyKey, error) {
	rec := &domain.IdempotencyKey{
		ID:         uuid.NewString(),
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scope = ? AND key = ? AND expires_at <= ?", scope, key, now).
			Delete(&domain.IdempotencyKey{}).Error; err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		// glebarez/sqlite reports UNIQUE violations as plain text.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(low, "unique constraint failed") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// PurgeIdempotency deletes expired records and returns how many went.
func PurgeIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.IdempotencyKey{})
	return res.RowsAffected, res.Error
}
