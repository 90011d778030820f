// Package predicate builds GORM scopes that filter translatable entities by
// their translated values. Each predicate matches the entity's own column
// (the source locale) or a correlated EXISTS over the translation table, so
// callers can search one query regardless of which locale holds the text.
//
//	b, _ := predicate.New("translations", postType, entities, "en", ambient)
//	p, _ := b.MatchAnyField(ctx, []string{"title", "content"}, "kedi", "tr")
//	db.Model(&domain.Post{}).Scopes(p).Find(&posts)
//
// Identifiers are validated and quoted by the dialect; terms are bound as
// parameters with LIKE wildcards escaped.
package predicate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-polyglot/internal/domain"
	"github.com/tbourn/go-polyglot/internal/locale"
)

// Predicate is a GORM scope.
type Predicate func(*gorm.DB) *gorm.DB

// ErrInvalidIdentifier is returned for table, column or field names that are
// not plain identifiers.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// ErrEmptyLocale is returned by MatchFieldInLocale when no locale is given.
var ErrEmptyLocale = errors.New("locale is required")

// Relations resolves one level of entity relationship.
type Relations interface {
	Relation(owner, name string) (domain.EntityType, domain.Relation, error)
}

// Builder creates predicates for one entity type.
type Builder struct {
	table     string
	entity    domain.EntityType
	relations Relations
	source    string
	ambient   locale.Provider
}

// Correlation aliases keep nested subqueries unambiguous.
const (
	aliasTranslation        = "pg_t"
	aliasRelated            = "pg_r"
	aliasRelatedTranslation = "pg_rt"
	likeEscape              = `\`
)

// New returns a Builder for entity, whose overrides live in table. A nil
// relations disables MatchRelatedField; a nil ambient provider makes an
// empty locale argument resolve to the source locale.
func New(table string, entity domain.EntityType, relations Relations, source string, ambient locale.Provider) (*Builder, error) {
	for _, id := range []string{table, entity.Table, entity.Key} {
		if !domain.ValidIdentifier(id) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
		}
	}
	if ambient == nil {
		ambient = locale.Static(source)
	}
	return &Builder{table: table, entity: entity, relations: relations, source: source, ambient: ambient}, nil
}

// Noop is the tautology predicate.
func Noop(db *gorm.DB) *gorm.DB { return db }

// fragment is a SQL snippet with its bind parameters.
type fragment struct {
	sql  string
	args []any
}

func (b *Builder) locale(ctx context.Context, l string) string {
	if l != "" {
		return l
	}
	return b.ambient.Current(ctx)
}

// Escape escapes LIKE wildcards in term and wraps it as a substring pattern.
func Escape(term string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return "%" + r.Replace(term) + "%"
}

func checkFields(fields ...string) error {
	for _, f := range fields {
		if !domain.ValidIdentifier(f) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, f)
		}
	}
	return nil
}

// match renders "own column LIKE term OR EXISTS(override LIKE term)" for an
// entity aliased as owner.
func match(q func(any) string, et domain.EntityType, owner, tAlias, table, field, pattern, loc string) fragment {
	like := " LIKE ? ESCAPE '" + likeEscape + "'"
	col := func(tbl, name string) string { return q(clause.Column{Table: tbl, Name: name}) }

	sql := "(" + col(owner, field) + like +
		" OR EXISTS (SELECT 1 FROM " + q(table) + " " + q(tAlias) +
		" WHERE " + col(tAlias, "entity_type") + " = ?" +
		" AND " + col(tAlias, "entity_id") + " = " + col(owner, et.Key) +
		" AND " + col(tAlias, "field") + " = ?" +
		" AND " + col(tAlias, "locale") + " = ?" +
		" AND " + col(tAlias, "value") + like + "))"
	return fragment{sql: sql, args: []any{pattern, et.Tag, field, loc, pattern}}
}

// deferred builds fragments once the dialect quoter is known.
type deferred func(q func(any) string) []fragment

func scope(build deferred) Predicate {
	return func(db *gorm.DB) *gorm.DB {
		frags := build(db.Statement.Quote)
		if len(frags) == 0 {
			return db
		}
		parts := make([]string, 0, len(frags))
		var args []any
		for _, f := range frags {
			parts = append(parts, f.sql)
			args = append(args, f.args...)
		}
		sql := strings.Join(parts, " OR ")
		if len(parts) > 1 {
			sql = "(" + sql + ")"
		}
		return db.Where(sql, args...)
	}
}

// MatchField matches entities whose source column or loc override of field
// contains term. An empty loc means the ambient locale.
func (b *Builder) MatchField(ctx context.Context, field, term, loc string) (Predicate, error) {
	return b.MatchAnyField(ctx, []string{field}, term, loc)
}

// MatchAnyField is the disjunction of MatchField over fields. No fields
// yields the no-op predicate.
func (b *Builder) MatchAnyField(ctx context.Context, fields []string, term, loc string) (Predicate, error) {
	if err := checkFields(fields...); err != nil {
		return nil, err
	}
	loc = b.locale(ctx, loc)
	pattern := Escape(term)
	fields = append([]string(nil), fields...)
	return scope(func(q func(any) string) []fragment {
		out := make([]fragment, 0, len(fields))
		for _, f := range fields {
			out = append(out, match(q, b.entity, b.entity.Table, aliasTranslation, b.table, f, pattern, loc))
		}
		return out
	}), nil
}

// MatchFieldInLocale is MatchField with a pinned locale.
func (b *Builder) MatchFieldInLocale(field, term, loc string) (Predicate, error) {
	if loc == "" {
		return nil, ErrEmptyLocale
	}
	return b.MatchAnyField(context.Background(), []string{field}, term, loc)
}

// RequiredFieldsComplete keeps entities that have a non-empty override for
// every field in loc. It is the no-op predicate when fields is empty or loc
// is the source locale; source completeness lives on the entity's columns.
func (b *Builder) RequiredFieldsComplete(ctx context.Context, fields []string, loc string) (Predicate, error) {
	if err := checkFields(fields...); err != nil {
		return nil, err
	}
	loc = b.locale(ctx, loc)
	if len(fields) == 0 || loc == b.source {
		return Noop, nil
	}
	fields = append([]string(nil), fields...)
	return func(db *gorm.DB) *gorm.DB {
		q := db.Statement.Quote
		col := func(tbl, name string) string { return q(clause.Column{Table: tbl, Name: name}) }
		for _, f := range fields {
			sql := "EXISTS (SELECT 1 FROM " + q(b.table) + " " + q(aliasTranslation) +
				" WHERE " + col(aliasTranslation, "entity_type") + " = ?" +
				" AND " + col(aliasTranslation, "entity_id") + " = " + col(b.entity.Table, b.entity.Key) +
				" AND " + col(aliasTranslation, "field") + " = ?" +
				" AND " + col(aliasTranslation, "locale") + " = ?" +
				" AND " + col(aliasTranslation, "value") + " IS NOT NULL" +
				" AND " + col(aliasTranslation, "value") + " <> '')"
			db = db.Where(sql, b.entity.Tag, f, loc)
		}
		return db
	}, nil
}

// MatchRelatedField keeps entities with at least one related row (one level
// through relation) whose field matches term in its source column or loc
// override.
func (b *Builder) MatchRelatedField(ctx context.Context, relation, field, term, loc string) (Predicate, error) {
	if b.relations == nil {
		return nil, fmt.Errorf("no relations configured for %q", b.entity.Tag)
	}
	related, rel, err := b.relations.Relation(b.entity.Tag, relation)
	if err != nil {
		return nil, err
	}
	if err := checkFields(field, related.Table, related.Key, rel.ForeignKey); err != nil {
		return nil, err
	}
	loc = b.locale(ctx, loc)
	pattern := Escape(term)
	return func(db *gorm.DB) *gorm.DB {
		q := db.Statement.Quote
		col := func(tbl, name string) string { return q(clause.Column{Table: tbl, Name: name}) }
		inner := match(q, related, aliasRelated, aliasRelatedTranslation, b.table, field, pattern, loc)
		sql := "EXISTS (SELECT 1 FROM " + q(related.Table) + " " + q(aliasRelated) +
			" WHERE " + col(aliasRelated, rel.ForeignKey) + " = " + col(b.entity.Table, b.entity.Key) +
			" AND " + inner.sql + ")"
		return db.Where(sql, inner.args...)
	}, nil
}
