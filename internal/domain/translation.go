// Package domain defines the persistence models of the translation service:
// override records, shared cache rows, and the sample translatable entities
// (posts and their comments). These types are mapped with GORM.
package domain

import "time"

// DefaultTranslationTable is used when no table name is configured.
const DefaultTranslationTable = "translations"

// Translation is one stored override value for a (field, locale) of an entity.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - EntityType: registered type tag of the owning entity (e.g. "post").
//   - EntityID: primary key of the owning entity.
//   - Field: name of the translatable attribute.
//   - Locale: override locale; never the source locale.
//   - Value: override text. A nil value is never persisted; writing nil
//     deletes the row instead.
//
// The tuple (entity_type, entity_id, field, locale) is unique. Indexes are
// created by the migration under names prefixed with the table, since one
// database may hold several translation tables.
type Translation struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	EntityType string    `json:"entity_type" gorm:"type:varchar(64);not null"`
	EntityID   string    `json:"entity_id"   gorm:"type:varchar(64);not null"`
	Field      string    `json:"field"       gorm:"type:varchar(64);not null"`
	Locale     string    `json:"locale"      gorm:"type:varchar(16);not null"`
	Value      *string   `json:"value"       gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the default table name for Translation. Stores built
// with a custom table name address it through db.Table instead.
func (Translation) TableName() string { return DefaultTranslationTable }

// CacheEntry is a row of the database-backed shared cache tier.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;type:varchar(255)"`
	Value     string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the database table name for CacheEntry.
func (CacheEntry) TableName() string { return "translation_cache" }
