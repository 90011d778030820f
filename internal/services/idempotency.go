// Package services – Idempotency
//
// This file backs the Idempotency-Key header on create endpoints: the first
// successful request under a key records the resource it produced, and
// retries within the TTL are answered with that resource.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-polyglot/internal/repo"
)

// DefaultIdempotencyTTL is used when NewIdempotency is given ttl <= 0.
const DefaultIdempotencyTTL = 24 * time.Hour

// Idempotency records and replays create results keyed by (scope, key).
type Idempotency struct {
	DB  *gorm.DB
	TTL time.Duration
	Now func() time.Time
}

// NewIdempotency returns an Idempotency with the given key lifetime.
func NewIdempotency(db *gorm.DB, ttl time.Duration) *Idempotency {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &Idempotency{DB: db, TTL: ttl, Now: func() time.Time { return time.Now().UTC() }}
}

// Lookup returns the resource recorded for (scope, key), if any.
func (s *Idempotency) Lookup(ctx context.Context, scope, key string) (string, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, scope, key, s.Now())
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.ResourceID, true, nil
}

// Remember records resourceID for (scope, key) and returns the resource
// that owns the key. When a concurrent request recorded the key first, its
// resource id is returned instead of resourceID.
func (s *Idempotency) Remember(ctx context.Context, scope, key, resourceID string, status int) (string, error) {
	now := s.Now()
	_, err := repo.CreateIdempotency(ctx, s.DB, scope, key, resourceID, status, now, s.TTL)
	if errors.Is(err, repo.ErrDuplicate) {
		rec, gerr := repo.GetIdempotency(ctx, s.DB, scope, key, now)
		if gerr != nil {
			return "", gerr
		}
		return rec.ResourceID, nil
	}
	if err != nil {
		return "", err
	}
	return resourceID, nil
}

// Purge removes expired keys.
func (s *Idempotency) Purge(ctx context.Context) (int64, error) {
	return repo.PurgeIdempotency(ctx, s.DB, s.Now())
}
