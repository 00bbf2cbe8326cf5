package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/recall"
	"github.com/soundprediction/recall/pkg/server/dto"
	"github.com/soundprediction/recall/pkg/types"
)

// GraphBuilder derives relationships between stored entities.
type GraphBuilder interface {
	BuildInitialGraph(ctx context.Context) (int, error)
}

// SearchHandler handles search, analytics and graph build requests
type SearchHandler struct {
	searcher recall.Searcher
	analyzer recall.Analyzer
	builder  GraphBuilder
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searcher recall.Searcher, analyzer recall.Analyzer, builder GraphBuilder) *SearchHandler {
	return &SearchHandler{searcher: searcher, analyzer: analyzer, builder: builder}
}

// Search handles POST /search. Searches always answer 200; a failed search
// carries its reason in the error field of the result.
func (h *SearchHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err.Error())
		return
	}
	q, err := req.ToQuery()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.searcher.SearchWithQuery(c.Request.Context(), q))
}

// SearchGet handles GET /search?q=&kinds=&limit=&intent=
func (h *SearchHandler) SearchGet(c *gin.Context) {
	req := dto.SearchRequest{
		Query:  c.Query("q"),
		Kinds:  types.StringList(c.Query("kinds")),
		Intent: c.Query("intent"),
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(c, "limit must be an integer")
			return
		}
		req.Limit = limit
	}

	q, err := req.ToQuery()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.searcher.SearchWithQuery(c.Request.Context(), q))
}

// Analytics handles GET /analytics
func (h *SearchHandler) Analytics(c *gin.Context) {
	c.JSON(http.StatusOK, h.analyzer.GetSearchAnalytics())
}

// BuildGraph handles POST /graph/build
func (h *SearchHandler) BuildGraph(c *gin.Context) {
	created, err := h.builder.BuildInitialGraph(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BuildGraphResponse{Created: created})
}
