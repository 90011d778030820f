// Translation HTTP handlers.
//
// This file exposes the per-field override endpoints of a post:
//   - GET    /posts/{id}/translations                    (field -> locale -> value)
//   - GET    /posts/{id}/translations/{field}            (locale -> value)
//   - GET    /posts/{id}/translations/{field}/{locale}   (resolved value, fallback included)
//   - PUT    /posts/{id}/translations/{field}/{locale}   (write; source locale writes the post)
//   - DELETE /posts/{id}/translations/{field}/{locale}   (remove the override)
//   - GET    /posts/{id}/translations/{field}/missing    (supported locales without a value)
//   - GET    /posts/{id}/completeness                    (locale -> required fields present)
package handlers

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"
)

//
// DTOs
//

// TranslationsResponse lists every override of a post.
type TranslationsResponse struct {
	ID           string                       `json:"id"`
	Translations map[string]map[string]string `json:"translations"`
}

// FieldTranslationsResponse lists the overrides of one field.
type FieldTranslationsResponse struct {
	ID           string            `json:"id"`
	Field        string            `json:"field"`
	Translations map[string]string `json:"translations"`
}

// TranslationResponse is a single resolved value. Value is null when
// neither the locale nor the fallback has one.
type TranslationResponse struct {
	Field  string  `json:"field"  example:"title"`
	Locale string  `json:"locale" example:"tr"`
	Value  *string `json:"value"  example:"Türkçe Başlık"`
}

// PutTranslationRequest is the JSON payload for writing one value.
type PutTranslationRequest struct {
	Value *string `json:"value" example:"Türkçe Başlık"`
}

// Validate requires a non-null value; DELETE removes overrides.
func (r PutTranslationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Value, validation.NotNil),
	)
}

// MissingLocalesResponse lists the supported locales lacking a field.
type MissingLocalesResponse struct {
	Field   string   `json:"field"`
	Locales []string `json:"locales"`
}

// CompletenessResponse reports, per supported locale, whether every
// required field has a value.
type CompletenessResponse struct {
	ID       string          `json:"id"`
	Complete map[string]bool `json:"complete"`
}

//
// Handlers
//

// ListTranslations godoc
// @ID          listTranslations
// @Summary     List all overrides of a post
// @Tags        Translations
// @Produce     json
//
// @Param       id  path  string  true  "Post ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.TranslationsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Post not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /posts/{id}/translations [get]
func (h *Handlers) ListTranslations(c *gin.Context) {
	id, good := postID(c)
	if !good {
		return
	}
	all, err := h.posts.Translations(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, TranslationsResponse{ID: id, Translations: all})
}

// ListFieldTranslations godoc
// @ID          listFieldTranslations
// @Summary     List overrides of one field
// @Tags        Translations
// @Produce     json
//
// @Param       id     path  string  true  "Post ID (UUID)"  format(uuid)
// @Param       field  path  string  true  "Translatable field"  example(title)
//
// @Success     200  {object}  handlers.FieldTranslationsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Post not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Field not translatable"
// @Router      /posts/{id}/translations/{field} [get]
func (h *Handlers) ListFieldTranslations(c *gin.Context) {
	id, good := postID(c)
	if !good {
		return
	}
	field := c.Param("field")
	vals, err := h.posts.FieldTranslations(c.Request.Context(), id, field)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, FieldTranslationsResponse{ID: id, Field: field, Translations: vals})
}

// GetTranslation godoc
// @ID          getTranslation
// @Summary     Resolve one field in a locale
// @Description Returns the override for the locale, else the fallback locale's override (one hop), else the post's own source value. The locale is not validated on reads.
// @Tags        Translations
// @Produce     json
//
// @Param       id      path  string  true  "Post ID (UUID)"  format(uuid)
// @Param       field   path  string  true  "Translatable field"  example(title)
// @Param       locale  path  string  true  "Locale"  example(tr)
//
// @Success     200  {object}  handlers.TranslationResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Post id is not a UUID"
// @Failure     404  {object}  handlers.ErrorResponse  "Post not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Field not translatable"
// @Router      /posts/{id}/translations/{field}/{locale} [get]
func (h *Handlers) GetTranslation(c *gin.Context) {
	id, good := postID(c)
	if !good {
		return
	}
	field, loc := c.Param("field"), c.Param("locale")
	v, err := h.posts.GetTranslation(c.Request.Context(), id, field, loc)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, TranslationResponse{Field: field, Locale: loc, Value: v})
}

// PutTranslation godoc
// @ID          putTranslation
// @Summary     Write one field in a locale
// @Description Upserts the override. Writing the source locale updates the post itself.
// @Tags        Translations
// @Accept      json
// @Produce     json
//
// @Param       id      path  string                          true  "Post ID (UUID)"  format(uuid)
// @Param       field   path  string                          true  "Translatable field"  example(title)
// @Param       locale  path  string                          true  "Locale"  example(tr)
// @Param       body    body  handlers.PutTranslationRequest  true  "Value"
//
// @Success     200  {object}  handlers.TranslationResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or invalid locale"
// @Failure     404  {object}  handlers.ErrorResponse  "Post not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Field not translatable"
// @Router      /posts/{id}/translations/{field}/{locale} [put]
func (h *Handlers) PutTranslation(c *gin.Context) {
	id, good := postID(c)
	if !good {
		return
	}
	var req PutTranslationRequest
	if !bindJSON(c, &req) {
		return
	}
	field, loc := c.Param("field"), c.Param("locale")
	if err := h.posts.SetTranslation(c.Request.Context(), id, field, loc, req.Value); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, TranslationResponse{Field: field, Locale: loc, Value: req.Value})
}

// DeleteTranslation godoc
// @ID          deleteTranslation
// @Summary     Remove one override
// @Description Deletes the override for (field, locale). Deleting in the source locale clears the post's value.
// @Tags        Translations
//
// @Param       id      path  string  true  "Post ID (UUID)"  format(uuid)
// @Param       field   path  string  true  "Translatable field"  example(title)
// @Param       locale  path  string  true  "Locale"  example(tr)
//
// @Success     204  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid locale"
// @Failure     404  {object}  handlers.ErrorResponse  "Post not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Field not translatable"
// @Router      /posts/{id}/translations/{field}/{locale} [delete]
func (h *Handlers) DeleteTranslation(c *gin.Context) {
	id, good := postID(c)
	if !good {
		return
	}
	if err := h.posts.SetTranslation(c.Request.Context(), id, c.Param("field"), c.Param("locale"), nil); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// MissingLocales godoc
// @ID          missingLocales
// @Summary     Locales without a value for a field
// @Description Lists the supported locales, in configured order, that have neither an override nor (for the source locale) a source value.
// @Tags        Translations
// @Produce     json
//
// @Param       id     path  string  true  "Post ID (UUID)"  format(uuid)
// @Param       field  path  string  true  "Translatable field"  example(title)
//
// @Success     200  {object}  handlers.MissingLocalesResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Post not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Field not translatable"
// @Router      /posts/{id}/translations/{field}/missing [get]
func (h *Handlers) MissingLocales(c *gin.Context) {
	id, good := postID(c)
	if !good {
		return
	}
	field := c.Param("field")
	locs, err := h.posts.Missing(c.Request.Context(), id, field)
	if err != nil {
		failErr(c, err)
		return
	}
	if locs == nil {
		locs = []string{}
	}
	ok(c, http.StatusOK, MissingLocalesResponse{Field: field, Locales: locs})
}

// Completeness godoc
// @ID          completeness
// @Summary     Per-locale completeness of a post
// @Tags        Translations
// @Produce     json
//
// @Param       id  path  string  true  "Post ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.CompletenessResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Post not found"
// @Router      /posts/{id}/completeness [get]
func (h *Handlers) Completeness(c *gin.Context) {
	id, good := postID(c)
	if !good {
		return
	}
	m, err := h.posts.Completeness(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, CompletenessResponse{ID: id, Complete: m})
}
