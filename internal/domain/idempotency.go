package domain

import "time"

// IdempotencyKey remembers the resource produced by a POST that carried an
// Idempotency-Key header, so a retry with the same key returns that
// resource instead of creating another one. Keys are unique per scope
// (method and path) and expire after ExpiresAt.
type IdempotencyKey struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	Scope      string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_idempotency_scope_key,priority:1"`
	Key        string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_idempotency_scope_key,priority:2"`
	ResourceID string    `gorm:"type:varchar(64);not null"`
	Status     int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"index;not null"`
}

// TableName implements the GORM tabler interface.
func (IdempotencyKey) TableName() string { return "idempotency_keys" }
