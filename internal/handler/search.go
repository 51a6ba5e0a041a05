// Package handler holds the gin handlers of the public API.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
	"github.com/Kaglioster-hub/vrabo/internal/domain"
)

// maxSearchBody bounds the POST /api/search body.
const maxSearchBody = 64 << 10

// Searcher runs an aggregated search. Satisfied by *search.Service.
type Searcher interface {
	Search(ctx context.Context, req domain.SearchRequest) []domain.Offer
}

// SearchHandler serves POST /api/search.
type SearchHandler struct {
	searcher Searcher
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(searcher Searcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// Search decodes the request, runs the search and writes {results}.
// Upstream failures never surface here; they degrade inside the service.
func (h *SearchHandler) Search(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
		return
	}

	req, err := decodeSearchRequest(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	results, err := h.run(c.Request.Context(), req)
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("Search failed",
			logger.String("type", req.Type.String()),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "API failure"})
		return
	}

	c.JSON(http.StatusOK, domain.SearchResponse{Results: results})
}

func (h *SearchHandler) run(ctx context.Context, req domain.SearchRequest) (results []domain.Offer, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("search panicked: %v", rec)
		}
	}()

	results = h.searcher.Search(ctx, req)
	if results == nil {
		results = []domain.Offer{}
	}
	return results, nil
}

// decodeSearchRequest treats an empty body as a request with all defaults.
func decodeSearchRequest(r *http.Request) (domain.SearchRequest, error) {
	var req domain.SearchRequest
	if r.Body == nil {
		return req, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSearchBody+1))
	if err != nil {
		return req, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxSearchBody {
		return req, fmt.Errorf("body exceeds %d bytes", maxSearchBody)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("decode body: %w", err)
	}
	return req, nil
}
