package domain

import "regexp"

// Relation describes a has-many association one level deep, used by
// relation-scoped search (e.g. posts whose comments match a term).
type Relation struct {
	// Type is the registered type tag of the related entity.
	Type string
	// ForeignKey is the column on the related table pointing back at the owner.
	ForeignKey string
}

// EntityType maps a type tag to its storage location.
type EntityType struct {
	Tag       string
	Table     string
	Key       string // primary key column
	Relations map[string]Relation
}

var identifierRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s is safe to use as a table or column name.
func ValidIdentifier(s string) bool { return identifierRE.MatchString(s) }

// Translatable is implemented by entities whose fields accept per-locale
// overrides.
type Translatable interface {
	// TranslationType returns the registered type tag (e.g. "post").
	TranslationType() string
	// TranslationKey returns the entity id; empty until persisted.
	TranslationKey() string
	// TranslatableFields lists the fields eligible for overrides.
	TranslatableFields() []string
	// RequiredTranslatableFields lists the fields checked for completeness.
	// A nil result means every translatable field is required.
	RequiredTranslatableFields() []string
	// IsTranslationExcluded disables override logic for this instance.
	IsTranslationExcluded() bool
	// SourceValue returns the source-locale value of field, or a string
	// attribute such as the id. Anything else is nil.
	SourceValue(field string) *string
	// SetSourceValue writes the source-locale value of field.
	SetSourceValue(field string, v *string) error
}

var (
	_ Translatable = (*Post)(nil)
	_ Translatable = (*Comment)(nil)
)
