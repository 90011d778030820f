// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package), and failErr, which maps
// service and translation errors onto them.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, not_found) mirror common HTTP status
//     semantics to aid interoperability.
//   - Domain-specific codes (e.g., invalid_locale, field_not_translatable) are
//     reserved for translation errors that cannot be conveyed by status alone.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_locale",
//	  "message": "locale \"ja\" is not supported"
//	}
package handlers

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-polyglot/internal/locale"
	"github.com/tbourn/go-polyglot/internal/predicate"
	"github.com/tbourn/go-polyglot/internal/repo"
	"github.com/tbourn/go-polyglot/internal/services"
	"github.com/tbourn/go-polyglot/internal/translation"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeValidation           = "validation_failed"
	ErrCodeInvalidLocale        = "invalid_locale"
	ErrCodeFieldNotTranslatable = "field_not_translatable"
	ErrCodeNotPersisted         = "not_persisted"
	ErrCodeSearchFailed         = "search_failed"
)

// failErr maps err onto a status and code. Unknown errors become 500s.
func failErr(c *gin.Context, err error) {
	var (
		unsupported *locale.UnsupportedLocaleError
		notField    *translation.FieldNotTranslatableError
		invalid     validation.Errors
	)
	switch {
	case errors.Is(err, services.ErrPostNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, locale.ErrEmptyLocale),
		errors.Is(err, predicate.ErrEmptyLocale),
		errors.As(err, &unsupported):
		fail(c, http.StatusBadRequest, ErrCodeInvalidLocale, err.Error())
	case errors.As(err, &notField):
		fail(c, http.StatusUnprocessableEntity, ErrCodeFieldNotTranslatable, err.Error())
	case errors.Is(err, translation.ErrModelNotPersisted):
		fail(c, http.StatusConflict, ErrCodeNotPersisted, err.Error())
	case errors.As(err, &invalid):
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, services.ErrTermTooLong),
		errors.Is(err, services.ErrRelationFieldRequired),
		errors.Is(err, predicate.ErrInvalidIdentifier),
		errors.Is(err, repo.ErrUnknownRelation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
