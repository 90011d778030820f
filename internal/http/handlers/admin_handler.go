// Admin HTTP handlers.
//
// This file exposes maintenance endpoints over the translation table:
//   - GET    /admin/translations/stats     (aggregate counts, optional filters)
//   - GET    /admin/translations/orphans   (overrides whose owner no longer exists)
//   - DELETE /admin/translations/orphans   (remove them)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-polyglot/internal/domain"
	"github.com/tbourn/go-polyglot/internal/http/middleware"
	"github.com/tbourn/go-polyglot/internal/repo"
)

// OrphansResponse lists orphaned overrides.
type OrphansResponse struct {
	Count int                  `json:"count"`
	Items []domain.Translation `json:"items"`
}

// CleanOrphansResponse reports how many orphans were removed.
type CleanOrphansResponse struct {
	Removed int `json:"removed"`
}

// TranslationStats godoc
// @ID          translationStats
// @Summary     Translation statistics
// @Description Totals by entity type, locale and field, plus the most recently updated overrides.
// @Tags        Admin
// @Produce     json
//
// @Param       entity_type  query  string  false  "Only this entity type"  example(post)
// @Param       locale       query  string  false  "Only this locale"       example(tr)
//
// @Success     200  {object}  services.StatsReport
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/translations/stats [get]
func (h *Handlers) TranslationStats(c *gin.Context) {
	r, err := h.maint.Stats(c.Request.Context(), repo.StatsFilter{
		EntityType: strings.TrimSpace(c.Query("entity_type")),
		Locale:     strings.TrimSpace(c.Query("locale")),
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// ListOrphans godoc
// @ID          listOrphans
// @Summary     List orphaned overrides
// @Description Overrides whose entity type is unregistered or whose owner row is gone.
// @Tags        Admin
// @Produce     json
//
// @Success     200  {object}  handlers.OrphansResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/translations/orphans [get]
func (h *Handlers) ListOrphans(c *gin.Context) {
	items, err := h.maint.Orphans(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.Translation{}
	}
	ok(c, http.StatusOK, OrphansResponse{Count: len(items), Items: items})
}

// CleanOrphans godoc
// @ID          cleanOrphans
// @Summary     Remove orphaned overrides
// @Tags        Admin
// @Produce     json
//
// @Success     200  {object}  handlers.CleanOrphansResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/translations/orphans [delete]
func (h *Handlers) CleanOrphans(c *gin.Context) {
	n, err := h.maint.CleanOrphans(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().Int("removed", n).Msg("orphaned translations removed")
	ok(c, http.StatusOK, CleanOrphansResponse{Removed: n})
}
