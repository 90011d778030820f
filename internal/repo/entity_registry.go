// Package repo implements the persistence layer of the translation service,
// backed by GORM. This file provides the EntityRegistry, which maps
// registered type tags to their tables so maintenance jobs and predicates
// can reach owning entities without reflection.
package repo

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-polyglot/internal/domain"
)

var (
	// ErrUnknownEntityType is returned for a type tag that was never registered.
	ErrUnknownEntityType = errors.New("unknown entity type")
	// ErrUnknownRelation is returned for a relation the owner does not declare.
	ErrUnknownRelation = errors.New("unknown relation")
	// ErrInvalidEntityType is returned by Register for unsafe identifiers.
	ErrInvalidEntityType = errors.New("invalid entity type definition")
)

// EntityRegistry is the lookup table of translatable entity types.
type EntityRegistry struct {
	db *gorm.DB

	mu    sync.RWMutex
	types map[string]domain.EntityType
}

// NewEntityRegistry returns an empty registry querying db.
func NewEntityRegistry(db *gorm.DB) *EntityRegistry {
	return &EntityRegistry{db: db, types: map[string]domain.EntityType{}}
}

// DefaultEntities returns a registry with the bundled post and comment types.
func DefaultEntities(db *gorm.DB) *EntityRegistry {
	r := NewEntityRegistry(db)
	_ = r.Register(domain.EntityType{
		Tag:   domain.PostType,
		Table: domain.Post{}.TableName(),
		Key:   "id",
		Relations: map[string]domain.Relation{
			"comments": {Type: domain.CommentType, ForeignKey: "post_id"},
		},
	})
	_ = r.Register(domain.EntityType{
		Tag:   domain.CommentType,
		Table: domain.Comment{}.TableName(),
		Key:   "id",
	})
	return r
}

// Register adds or replaces an entity type. Table, key and foreign key
// names must be plain identifiers because they are emitted into SQL.
func (r *EntityRegistry) Register(t domain.EntityType) error {
	if t.Tag == "" || !domain.ValidIdentifier(t.Table) || !domain.ValidIdentifier(t.Key) {
		return fmt.Errorf("%w: %q", ErrInvalidEntityType, t.Tag)
	}
	for name, rel := range t.Relations {
		if name == "" || rel.Type == "" || !domain.ValidIdentifier(rel.ForeignKey) {
			return fmt.Errorf("%w: relation %q of %q", ErrInvalidEntityType, name, t.Tag)
		}
	}
	t.Relations = maps.Clone(t.Relations)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t.Tag] = t
	return nil
}

// Lookup returns the registered type for tag.
func (r *EntityRegistry) Lookup(tag string) (domain.EntityType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[tag]
	return t, ok
}

// Tags returns every registered tag in sorted order.
func (r *EntityRegistry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.types))
}

// Relation resolves a named relation of owner to the related entity type.
func (r *EntityRegistry) Relation(owner, name string) (domain.EntityType, domain.Relation, error) {
	t, ok := r.Lookup(owner)
	if !ok {
		return domain.EntityType{}, domain.Relation{}, fmt.Errorf("%w: %q", ErrUnknownEntityType, owner)
	}
	rel, ok := t.Relations[name]
	if !ok {
		return domain.EntityType{}, domain.Relation{}, fmt.Errorf("%w: %q on %q", ErrUnknownRelation, name, owner)
	}
	related, ok := r.Lookup(rel.Type)
	if !ok {
		return domain.EntityType{}, domain.Relation{}, fmt.Errorf("%w: %q", ErrUnknownEntityType, rel.Type)
	}
	return related, rel, nil
}

// Exists reports whether a row with id exists for the given type.
func (r *EntityRegistry) Exists(ctx context.Context, tag, id string) (bool, error) {
	t, ok := r.Lookup(tag)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownEntityType, tag)
	}
	var n int64
	err := r.db.WithContext(ctx).
		Table(t.Table).
		Where(clause.Eq{Column: clause.Column{Name: t.Key}, Value: id}).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
