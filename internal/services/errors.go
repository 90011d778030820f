// Package services defines the business logic for translatable posts and
// translation maintenance. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// Translation errors raised by the engine (locale.ErrEmptyLocale,
// *locale.UnsupportedLocaleError, *translation.FieldNotTranslatableError,
// translation.ErrModelNotPersisted) pass through unchanged; mapping them to
// HTTP status codes is the handler layer's job.
package services

import "errors"

var (
	// ErrPostNotFound indicates that the requested post does not exist.
	ErrPostNotFound = errors.New("post not found")

	// ErrTermTooLong is returned when a search term exceeds the configured
	// maximum length.
	ErrTermTooLong = errors.New("search term too long")

	// ErrRelationFieldRequired is returned when a related-entity search names
	// a relation but no field to match on it.
	ErrRelationFieldRequired = errors.New("relation field is required")
)
