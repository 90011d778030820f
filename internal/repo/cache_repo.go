// Package repo implements the persistence layer of the translation service,
// backed by GORM. This file provides DBCache, a shared cache tier stored in
// the translation_cache table so several processes sharing one database see
// the same cached values.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-polyglot/internal/domain"
)

// DBCache implements cache.Shared over domain.CacheEntry rows. Expired rows
// read as misses and are removed by Purge.
type DBCache struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewDBCache returns a DBCache using the wall clock.
func NewDBCache(db *gorm.DB) *DBCache {
	return &DBCache{DB: db, Now: func() time.Time { return time.Now().UTC() }}
}

func (c *DBCache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

// Get returns a non-expired value for key.
func (c *DBCache) Get(ctx context.Context, key string) (string, bool, error) {
	var e domain.CacheEntry
	err := c.DB.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, c.now()).
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

// Put stores value under key until now+ttl, replacing any previous value.
func (c *DBCache) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	now := c.now()
	e := domain.CacheEntry{Key: key, Value: value, ExpiresAt: now.Add(ttl), CreatedAt: now, UpdatedAt: now}
	return c.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&e).Error
}

// Forget removes key. Missing keys are not an error.
func (c *DBCache) Forget(ctx context.Context, key string) error {
	return c.DB.WithContext(ctx).Where("key = ?", key).Delete(&domain.CacheEntry{}).Error
}

// Purge deletes expired rows and returns how many were removed.
func (c *DBCache) Purge(ctx context.Context) (int64, error) {
	res := c.DB.WithContext(ctx).Where("expires_at <= ?", c.now()).Delete(&domain.CacheEntry{})
	return res.RowsAffected, res.Error
}
