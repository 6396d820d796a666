package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/scool/internal/domain/types"
)

const minSearchLen = 2

// SearchDependencies defines the search operation.
type SearchDependencies interface {
	Search(ctx context.Context, q string) ([]types.SearchResult, error)
}

// SearchHandler handles GET /api/search.
type SearchHandler struct {
	deps SearchDependencies
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(deps SearchDependencies) *SearchHandler {
	return &SearchHandler{deps: deps}
}

// HandleSearch answers [] for queries shorter than two characters.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(q)) < minSearchLen {
		writeJSON(w, http.StatusOK, []types.SearchResult{})
		return
	}
	results, err := h.deps.Search(r.Context(), q)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if results == nil {
		results = []types.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}
