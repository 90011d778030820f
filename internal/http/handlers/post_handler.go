// Post HTTP handlers.
//
// This file exposes REST endpoints for translatable posts:
//   - POST   /posts                 (create, with optional initial overrides)
//   - GET    /posts                 (search across source columns and overrides)
//   - GET    /posts/{id}            (view resolved in the request locale)
//   - DELETE /posts/{id}            (delete, cascading to overrides)
//   - POST   /posts/{id}/comments   (attach a comment, with optional overrides)
package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-polyglot/internal/http/middleware"
	"github.com/tbourn/go-polyglot/internal/services"
	"github.com/tbourn/go-polyglot/internal/utils"
)

//
// DTOs
//

// CreatePostRequest is the JSON payload for creating a post. Title, slug and
// content are stored in the source locale; Translations maps
// locale -> field -> value.
type CreatePostRequest struct {
	Title               *string                      `json:"title" example:"English Title"`
	Slug                *string                      `json:"slug" example:"english-title"`
	Content             *string                      `json:"content"`
	TranslationExcluded bool                         `json:"translation_excluded"`
	Translations        map[string]map[string]string `json:"translations,omitempty"`
}

var slugRE = regexp.MustCompile(`^[\p{L}\p{N}]+(?:-[\p{L}\p{N}]+)*$`)

// Validate checks field presence and shape before the service is called.
func (r CreatePostRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.RuneLength(1, 255)),
		validation.Field(&r.Slug, validation.NilOrNotEmpty, validation.RuneLength(1, 255), validation.Match(slugRE)),
		validation.Field(&r.Translations, validation.By(localeKeys)),
	)
}

// localeKeys rejects blank locale keys in a translations map.
func localeKeys(value any) error {
	var keys []string
	switch m := value.(type) {
	case map[string]map[string]string:
		for k := range m {
			keys = append(keys, k)
		}
	case map[string]string:
		for k := range m {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			return errors.New("locale keys must not be blank")
		}
	}
	return nil
}

// SearchPostsRequest carries the query parameters of GET /posts.
type SearchPostsRequest struct {
	Q             string `form:"q"`
	Fields        string `form:"fields"` // comma-separated
	Locale        string `form:"locale"`
	Relation      string `form:"relation"`
	RelationField string `form:"relation_field"`
	Complete      bool   `form:"complete"`
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size"`
}

// Validate checks paging bounds and relation arguments.
func (r SearchPostsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Page, validation.Min(0)),
		validation.Field(&r.PageSize, validation.Min(0), validation.Max(utils.MaxPageSize)),
		validation.Field(&r.RelationField, validation.When(r.Relation != "", validation.Required)),
	)
}

func (r SearchPostsRequest) query() services.SearchQuery {
	q := services.SearchQuery{
		Term:          strings.TrimSpace(r.Q),
		Locale:        strings.TrimSpace(r.Locale),
		Relation:      strings.TrimSpace(r.Relation),
		RelationField: strings.TrimSpace(r.RelationField),
		CompleteOnly:  r.Complete,
		Page:          utils.NewPage(r.Page, r.PageSize),
	}
	for _, f := range strings.Split(r.Fields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			q.Fields = append(q.Fields, f)
		}
	}
	return q
}

// SearchPostsResponse wraps a page of resolved posts.
type SearchPostsResponse struct {
	Posts      []services.PostView `json:"posts"`
	Pagination Pagination          `json:"pagination"`
}

// DeletePostResponse reports how many overrides were removed with the post.
type DeletePostResponse struct {
	ID                  string `json:"id"`
	TranslationsRemoved int64  `json:"translations_removed"`
}

// AddCommentRequest is the JSON payload for attaching a comment.
type AddCommentRequest struct {
	Body         *string           `json:"body" example:"Lovely roses"`
	Translations map[string]string `json:"translations,omitempty"`
}

// Validate requires a body.
func (r AddCommentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Body, validation.Required, validation.RuneLength(1, 4000)),
		validation.Field(&r.Translations, validation.By(localeKeys)),
	)
}

//
// Helpers
//

// postID reads and checks the :id path parameter, writing a 400 on failure.
func postID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "post id must be a UUID")
		return "", false
	}
	return id, true
}

// bindJSON decodes the body into req and runs its validation rules.
func bindJSON[T validation.Validatable](c *gin.Context, req *T) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return false
	}
	if err := (*req).Validate(); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return false
	}
	return true
}

//
// Handlers
//

// CreatePost godoc
// @ID          createPost
// @Summary     Create a post
// @Description Creates a post with source-locale values and optional overrides, returned resolved in the request locale.
// @Tags        Posts
// @Accept      json
// @Produce     json
//
// @Param       locale           query   string                       false  "Response locale"
// @Param       Idempotency-Key  header  string                       false  "Makes the create safe to retry"
// @Param       body             body    handlers.CreatePostRequest   true   "Post payload"
//
// @Success     201  {object}  services.PostView
// @Success     200  {object}  services.PostView       "Replayed result for a known Idempotency-Key"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or invalid locale"
// @Failure     422  {object}  handlers.ErrorResponse  "Field not translatable"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /posts [post]
func (h *Handlers) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	key, keyed := middleware.IdempotencyKeyFrom(c)
	keyed = keyed && h.idem != nil
	scope := middleware.IdempotencyScope(c)
	if keyed {
		id, found, err := h.idem.Lookup(ctx, scope, key)
		if err != nil {
			// Lookup failures must not block creates.
			middleware.LoggerFrom(c).Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed")
		} else if found {
			h.replayPost(c, id)
			return
		}
	}

	p, err := h.posts.Create(ctx, services.CreatePost{
		Title:               req.Title,
		Slug:                req.Slug,
		Content:             req.Content,
		TranslationExcluded: req.TranslationExcluded,
		Translations:        req.Translations,
	})
	if err != nil {
		failErr(c, err)
		return
	}

	if keyed {
		owner, err := h.idem.Remember(ctx, scope, key, p.ID, http.StatusCreated)
		switch {
		case err != nil:
			middleware.LoggerFrom(c).Warn().Err(err).Str("idempotency_key", key).Msg("idempotency record failed")
		case owner != p.ID:
			// A concurrent request with the same key won; drop ours.
			if _, err := h.posts.Delete(ctx, p.ID); err != nil {
				middleware.LoggerFrom(c).Warn().Err(err).Str("post_id", p.ID).Msg("discard duplicate post")
			}
			h.replayPost(c, owner)
			return
		}
	}

	v, err := h.posts.View(ctx, p.ID, "")
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Location", c.FullPath()+"/"+p.ID)
	ok(c, http.StatusCreated, v)
}

// replayPost answers a retried create with the post recorded for its key.
func (h *Handlers) replayPost(c *gin.Context, id string) {
	v, err := h.posts.View(c.Request.Context(), id, "")
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header(middleware.HeaderIdempotentReplayed, "true")
	c.Header("Location", c.FullPath()+"/"+id)
	ok(c, http.StatusOK, v)
}

// GetPost godoc
// @ID          getPost
// @Summary     Get a post
// @Description Returns the post with every translatable field resolved in the request locale (single-hop fallback).
// @Tags        Posts
// @Produce     json
//
// @Param       id      path   string  true   "Post ID (UUID)"  format(uuid)
// @Param       locale  query  string  false  "Locale; defaults to X-Locale, Accept-Language, then the default locale"
//
// @Success     200  {object}  services.PostView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Post not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /posts/{id} [get]
func (h *Handlers) GetPost(c *gin.Context) {
	id, good := postID(c)
	if !good {
		return
	}
	v, err := h.posts.View(c.Request.Context(), id, "")
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// DeletePost godoc
// @ID          deletePost
// @Summary     Delete a post
// @Description Deletes the post, its comments, and every translation override they own.
// @Tags        Posts
// @Produce     json
//
// @Param       id  path  string  true  "Post ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.DeletePostResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Post not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /posts/{id} [delete]
func (h *Handlers) DeletePost(c *gin.Context) {
	id, good := postID(c)
	if !good {
		return
	}
	n, err := h.posts.Delete(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, DeletePostResponse{ID: id, TranslationsRemoved: n})
}

// SearchPosts godoc
// @ID          searchPosts
// @Summary     Search posts
// @Description Matches q against source columns and overrides in the given locale. With relation set, matches relation_field on related rows instead.
// @Tags        Posts
// @Produce     json
//
// @Param       q               query  string  false  "Substring to match (LIKE wildcards are escaped)"
// @Param       fields          query  string  false  "Comma-separated fields; defaults to all translatable fields"
// @Param       locale          query  string  false  "Locale to match overrides in"
// @Param       relation        query  string  false  "Relation to search through"  example(comments)
// @Param       relation_field  query  string  false  "Field on the related entity"  example(body)
// @Param       complete        query  bool    false  "Only posts with every required field in the locale"
// @Param       page            query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size       query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.SearchPostsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     422  {object}  handlers.ErrorResponse  "Field not translatable"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /posts [get]
func (h *Handlers) SearchPosts(c *gin.Context) {
	var req SearchPostsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid query parameters")
		return
	}
	if err := req.Validate(); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	q := req.query()

	items, total, err := h.posts.Search(c.Request.Context(), q)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SearchPostsResponse{Posts: items, Pagination: paginationFor(q.Page, total)})
}

// AddComment godoc
// @ID          addComment
// @Summary     Comment on a post
// @Description Attaches a comment to the post. Translations maps locale to a body override.
// @Tags        Posts
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                      true  "Post ID (UUID)"  format(uuid)
// @Param       body  body  handlers.AddCommentRequest  true  "Comment payload"
//
// @Success     201  {object}  domain.Comment
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or invalid locale"
// @Failure     404  {object}  handlers.ErrorResponse  "Post not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /posts/{id}/comments [post]
func (h *Handlers) AddComment(c *gin.Context) {
	id, good := postID(c)
	if !good {
		return
	}
	var req AddCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	cm, err := h.posts.AddComment(c.Request.Context(), id, req.Body, req.Translations)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, cm)
}
