package translation

import (
	"errors"
	"fmt"
)

var (
	// ErrModelNotPersisted is returned when writing a translation for an
	// entity that has no identity yet.
	ErrModelNotPersisted = errors.New("model must be persisted before setting translations")

	// ErrNoEntitySaver is returned by a source-locale write when the engine
	// was built without an EntitySaver.
	ErrNoEntitySaver = errors.New("no entity saver configured")
)

// FieldNotTranslatableError is returned when writing a field that is not in
// the entity's translatable set.
type FieldNotTranslatableError struct {
	Field  string
	Entity string
}

func (e *FieldNotTranslatableError) Error() string {
	return fmt.Sprintf("field %q is not translatable on %s", e.Field, e.Entity)
}
