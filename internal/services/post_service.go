// Package services – PostService
//
// This file implements the PostService, which manages translatable posts:
// creation with initial overrides, localized views, search across source
// columns and overrides, and the per-field translation endpoints. Deleting a
// post cascades to every override it owns and clears its cache entries.
//
// Observability: public methods are OpenTelemetry-instrumented; the engine
// opens child spans for every resolution and write.
package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-polyglot/internal/domain"
	"github.com/tbourn/go-polyglot/internal/predicate"
	"github.com/tbourn/go-polyglot/internal/repo"
	"github.com/tbourn/go-polyglot/internal/translation"
	"github.com/tbourn/go-polyglot/internal/utils"
)

// PostService implements the use-cases around translatable posts.
type PostService struct {
	// DB is the GORM handle used for post rows.
	DB *gorm.DB
	// Engine resolves and writes translations.
	Engine *translation.Engine
	// Predicates builds post filters over the translation table.
	Predicates *predicate.Builder
	// MaxTermRunes caps search terms by rune length (0 disables the cap).
	MaxTermRunes int
}

// NewPostService constructs a PostService with a 200-rune term cap.
func NewPostService(db *gorm.DB, engine *translation.Engine, preds *predicate.Builder) *PostService {
	return &PostService{DB: db, Engine: engine, Predicates: preds, MaxTermRunes: 200}
}

// CreatePost is the input of Create. Translations maps locale -> field ->
// value and is applied after the post row exists.
type CreatePost struct {
	Title               *string
	Slug                *string
	Content             *string
	TranslationExcluded bool
	Translations        map[string]map[string]string
}

// PostView is a post resolved in one locale.
type PostView struct {
	ID                  string    `json:"id"`
	Locale              string    `json:"locale"`
	Title               *string   `json:"title"`
	Slug                *string   `json:"slug"`
	Content             *string   `json:"content"`
	TranslationExcluded bool      `json:"translation_excluded"`
	Complete            bool      `json:"complete"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// SearchQuery filters posts by translated values.
type SearchQuery struct {
	Term          string
	Fields        []string // defaults to every translatable post field
	Locale        string   // "" means the ambient locale
	Relation      string   // e.g. "comments"; searches RelationField on related rows
	RelationField string
	CompleteOnly  bool
	Page          utils.Page
}

func (s *PostService) tracer() trace.Tracer { return otel.Tracer("services/PostService") }

// Create inserts a post and its initial overrides. Every locale and field is
// validated before the row is written, so a rejected request stores nothing.
// Overrides go through the engine's store on its own connection, so a store
// error after the insert is compensated: the post and the overrides already
// written are deleted before the error is returned.
func (s *PostService) Create(ctx context.Context, in CreatePost) (*domain.Post, error) {
	ctx, span := s.tracer().Start(ctx, "Create",
		trace.WithAttributes(attribute.Int("translations.locales", len(in.Translations))),
	)
	defer span.End()

	reg := s.Engine.Locales()
	shape := &domain.Post{}
	for _, loc := range sortedKeys(in.Translations) {
		if _, err := reg.Validate(loc, reg.Strict()); err != nil {
			return nil, err
		}
		for field := range in.Translations[loc] {
			if !slices.Contains(shape.TranslatableFields(), field) {
				return nil, &translation.FieldNotTranslatableError{Field: field, Entity: domain.PostType}
			}
		}
	}

	p, err := repo.CreatePost(ctx, s.DB, repo.PostInput{
		Title:               in.Title,
		Slug:                in.Slug,
		Content:             in.Content,
		TranslationExcluded: in.TranslationExcluded,
	})
	if err != nil {
		return nil, err
	}

	m := s.Engine.Wrap(p)
	for _, loc := range sortedKeys(in.Translations) {
		fields := in.Translations[loc]
		for _, field := range sortedKeys(fields) {
			v := fields[field]
			if err := m.SetTranslate(ctx, field, loc, &v); err != nil {
				return nil, s.undoCreate(ctx, m, p.ID, err)
			}
		}
	}
	return p, nil
}

// undoCreate removes a half-written post; cause stays the primary error.
func (s *PostService) undoCreate(ctx context.Context, m *translation.Model, id string, cause error) error {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Bool("create.rolled_back", true))
	var errs []error
	if _, err := m.Deleted(ctx); err != nil {
		errs = append(errs, fmt.Errorf("undo overrides: %w", err))
	}
	if err := repo.DeletePost(ctx, s.DB, id); err != nil && !errors.Is(err, repo.ErrNotFound) {
		errs = append(errs, fmt.Errorf("undo post: %w", err))
	}
	if len(errs) > 0 {
		log.Error().Err(errors.Join(errs...)).Str("post_id", id).Msg("create rollback incomplete")
	}
	return cause
}

// Get fetches a post by id.
func (s *PostService) Get(ctx context.Context, id string) (*domain.Post, error) {
	p, err := repo.GetPost(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	return p, err
}

func (s *PostService) model(ctx context.Context, id string) (*translation.Model, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Engine.Wrap(p), nil
}

// View resolves every translatable field of post id in loc ("" means the
// ambient locale).
func (s *PostService) View(ctx context.Context, id, loc string) (*PostView, error) {
	ctx, span := s.tracer().Start(ctx, "View",
		trace.WithAttributes(attribute.String("post.id", id), attribute.String("locale", loc)),
	)
	defer span.End()

	m, err := s.model(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.Load(ctx); err != nil {
		return nil, err
	}
	return s.view(ctx, m, loc)
}

func (s *PostService) view(ctx context.Context, m *translation.Model, loc string) (*PostView, error) {
	if loc == "" {
		loc = m.CurrentLocale(ctx)
	}
	p := m.Entity().(*domain.Post)
	v := &PostView{
		ID:                  p.ID,
		Locale:              loc,
		TranslationExcluded: p.TranslationExcluded,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	for field, dst := range map[string]**string{"title": &v.Title, "slug": &v.Slug, "content": &v.Content} {
		val, err := m.Translate(ctx, field, loc)
		if err != nil {
			return nil, err
		}
		*dst = val
	}
	complete, err := m.HasAllRequiredFieldsForLocale(ctx, loc)
	if err != nil {
		return nil, err
	}
	v.Complete = complete
	return v, nil
}

// Delete removes a post with its comments and cascades to the overrides of
// both. It returns the number of override records removed. Rows are deleted
// before overrides, so a failure in between leaves orphans for
// CleanOrphaned rather than overrides of a live post.
func (s *PostService) Delete(ctx context.Context, id string) (int64, error) {
	ctx, span := s.tracer().Start(ctx, "Delete", trace.WithAttributes(attribute.String("post.id", id)))
	defer span.End()

	m, err := s.model(ctx, id)
	if err != nil {
		return 0, err
	}
	comments, err := repo.ListComments(ctx, s.DB, id)
	if err != nil {
		return 0, err
	}
	if err := repo.DeletePost(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, ErrPostNotFound
		}
		return 0, err
	}

	n, err := m.Deleted(ctx)
	if err != nil {
		return 0, err
	}
	for i := range comments {
		k, err := s.Engine.Wrap(&comments[i]).Deleted(ctx)
		if err != nil {
			return n, err
		}
		n += k
	}
	span.SetAttributes(attribute.Int("comments", len(comments)), attribute.Int64("overrides", n))
	return n, nil
}

// Search returns a page of posts matching q, resolved in q's locale, and the
// total number of matches.
func (s *PostService) Search(ctx context.Context, q SearchQuery) ([]PostView, int64, error) {
	ctx, span := s.tracer().Start(ctx, "Search",
		trace.WithAttributes(
			attribute.Int("term.len", len(q.Term)),
			attribute.String("locale", q.Locale),
			attribute.Bool("complete_only", q.CompleteOnly),
		),
	)
	defer span.End()

	if s.MaxTermRunes > 0 && utf8.RuneCountInString(q.Term) > s.MaxTermRunes {
		return nil, 0, ErrTermTooLong
	}
	page := utils.NewPage(q.Page.Number, q.Page.Size)
	loc := q.Locale
	if loc == "" {
		loc = s.Engine.CurrentLocale(ctx)
	}

	scopes, err := s.scopes(ctx, q, loc)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.CountPosts(ctx, s.DB, scopes...)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []PostView{}, 0, nil
	}
	posts, err := repo.ListPostsPage(ctx, s.DB, page.Offset(), page.Size, scopes...)
	if err != nil {
		return nil, 0, err
	}

	out := make([]PostView, 0, len(posts))
	for i := range posts {
		m := s.Engine.Wrap(&posts[i])
		if err := m.Load(ctx); err != nil {
			return nil, 0, err
		}
		v, err := s.view(ctx, m, loc)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *v)
	}
	return out, total, nil
}

func (s *PostService) scopes(ctx context.Context, q SearchQuery, loc string) ([]func(*gorm.DB) *gorm.DB, error) {
	var scopes []func(*gorm.DB) *gorm.DB
	if q.Term != "" {
		var (
			p   predicate.Predicate
			err error
		)
		switch {
		case q.Relation != "":
			if q.RelationField == "" {
				return nil, ErrRelationFieldRequired
			}
			p, err = s.Predicates.MatchRelatedField(ctx, q.Relation, q.RelationField, q.Term, loc)
		default:
			fields := q.Fields
			if len(fields) == 0 {
				fields = (&domain.Post{}).TranslatableFields()
			}
			for _, f := range fields {
				if !slices.Contains((&domain.Post{}).TranslatableFields(), f) {
					return nil, &translation.FieldNotTranslatableError{Field: f, Entity: domain.PostType}
				}
			}
			p, err = s.Predicates.MatchAnyField(ctx, fields, q.Term, loc)
		}
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, p)
	}
	if q.CompleteOnly {
		p, err := s.Predicates.RequiredFieldsComplete(ctx, (&domain.Post{}).RequiredTranslatableFields(), loc)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, p)
	}
	return scopes, nil
}

// AddComment attaches a comment to post id. translations maps locale ->
// body override and is validated before the comment is written.
func (s *PostService) AddComment(ctx context.Context, postID string, body *string, translations map[string]string) (*domain.Comment, error) {
	ctx, span := s.tracer().Start(ctx, "AddComment", trace.WithAttributes(attribute.String("post.id", postID)))
	defer span.End()

	if _, err := s.Get(ctx, postID); err != nil {
		return nil, err
	}
	reg := s.Engine.Locales()
	for _, loc := range sortedKeys(translations) {
		if _, err := reg.Validate(loc, reg.Strict()); err != nil {
			return nil, err
		}
	}

	cm, err := repo.CreateComment(ctx, s.DB, postID, body)
	if err != nil {
		return nil, err
	}
	m := s.Engine.Wrap(cm)
	for _, loc := range sortedKeys(translations) {
		v := translations[loc]
		if err := m.SetTranslate(ctx, "body", loc, &v); err != nil {
			return nil, err
		}
	}
	return cm, nil
}

// Translations returns field -> locale -> value for post id.
func (s *PostService) Translations(ctx context.Context, id string) (map[string]map[string]string, error) {
	m, err := s.model(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.AllTranslations(ctx)
}

// FieldTranslations returns locale -> value for one field of post id.
func (s *PostService) FieldTranslations(ctx context.Context, id, field string) (map[string]string, error) {
	m, err := s.model(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkField(m, field); err != nil {
		return nil, err
	}
	return m.FieldTranslations(ctx, field)
}

// GetTranslation resolves one field of post id in loc, fallback included.
func (s *PostService) GetTranslation(ctx context.Context, id, field, loc string) (*string, error) {
	m, err := s.model(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkField(m, field); err != nil {
		return nil, err
	}
	return m.Translate(ctx, field, loc)
}

// SetTranslation writes value for (field, loc) on post id; nil deletes.
func (s *PostService) SetTranslation(ctx context.Context, id, field, loc string, value *string) error {
	m, err := s.model(ctx, id)
	if err != nil {
		return err
	}
	return m.SetTranslate(ctx, field, loc, value)
}

// Missing returns the supported locales without a value for field.
func (s *PostService) Missing(ctx context.Context, id, field string) ([]string, error) {
	m, err := s.model(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkField(m, field); err != nil {
		return nil, err
	}
	return m.MissingLocales(ctx, field)
}

// Completeness reports, per supported locale, whether post id has every
// required field.
func (s *PostService) Completeness(ctx context.Context, id string) (map[string]bool, error) {
	m, err := s.model(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.Load(ctx); err != nil {
		return nil, err
	}
	out := map[string]bool{}
	for _, l := range s.Engine.Locales().Supported() {
		ok, err := m.HasAllRequiredFieldsForLocale(ctx, l)
		if err != nil {
			return nil, err
		}
		out[l] = ok
	}
	return out, nil
}

func checkField(m *translation.Model, field string) error {
	if !slices.Contains(m.Entity().TranslatableFields(), field) {
		return &translation.FieldNotTranslatableError{Field: field, Entity: m.Entity().TranslationType()}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
