// Package handlers exposes the translation API over HTTP.
//
// Handlers are transport-thin: they bind and validate input, call the
// application services, and translate results and errors into JSON
// responses. The request locale is negotiated by middleware and travels on
// the request context, so most endpoints accept an optional ?locale= only.
package handlers

import (
	"context"

	"github.com/tbourn/go-polyglot/internal/domain"
	"github.com/tbourn/go-polyglot/internal/repo"
	"github.com/tbourn/go-polyglot/internal/services"
	"github.com/tbourn/go-polyglot/internal/utils"
)

//
// Service contracts (context-aware)
//

// PostService defines the post and translation use-cases consumed by the
// handlers. Implementations must be safe for concurrent use and honor ctx.
type PostService interface {
	Create(ctx context.Context, in services.CreatePost) (*domain.Post, error)
	View(ctx context.Context, id, loc string) (*services.PostView, error)
	Delete(ctx context.Context, id string) (int64, error)
	Search(ctx context.Context, q services.SearchQuery) ([]services.PostView, int64, error)
	AddComment(ctx context.Context, postID string, body *string, translations map[string]string) (*domain.Comment, error)

	Translations(ctx context.Context, id string) (map[string]map[string]string, error)
	FieldTranslations(ctx context.Context, id, field string) (map[string]string, error)
	GetTranslation(ctx context.Context, id, field, loc string) (*string, error)
	SetTranslation(ctx context.Context, id, field, loc string, value *string) error
	Missing(ctx context.Context, id, field string) ([]string, error)
	Completeness(ctx context.Context, id string) (map[string]bool, error)
}

// MaintenanceService defines the administrative operations over the
// translation table.
type MaintenanceService interface {
	Orphans(ctx context.Context) ([]domain.Translation, error)
	CleanOrphans(ctx context.Context) (int, error)
	Stats(ctx context.Context, f repo.StatsFilter) (*services.StatsReport, error)
}

// IdempotencyStore records which resource a create request produced under
// an Idempotency-Key, so retries can be answered without creating again.
type IdempotencyStore interface {
	Lookup(ctx context.Context, scope, key string) (resourceID string, found bool, err error)
	Remember(ctx context.Context, scope, key, resourceID string, status int) (owner string, err error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints. It depends on service interfaces to
// keep transport concerns separate from business logic.
type Handlers struct {
	posts PostService
	maint MaintenanceService
	idem  IdempotencyStore
}

// New constructs a Handlers bound to the given services.
func New(posts PostService, maint MaintenanceService) *Handlers {
	return &Handlers{posts: posts, maint: maint}
}

// WithIdempotency enables Idempotency-Key replay on CreatePost. A nil store
// disables it.
func (h *Handlers) WithIdempotency(s IdempotencyStore) *Handlers {
	h.idem = s
	return h
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func paginationFor(p utils.Page, total int64) Pagination {
	return Pagination{
		Page:       p.Number,
		PageSize:   p.Size,
		Total:      total,
		TotalPages: p.TotalPages(total),
		HasNext:    p.HasNext(total),
	}
}
