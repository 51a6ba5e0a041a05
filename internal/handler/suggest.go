package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Kaglioster-hub/vrabo/internal/domain"
	"github.com/Kaglioster-hub/vrabo/internal/suggest"
)

// Suggester answers autocomplete queries. Satisfied by *suggest.Service.
type Suggester interface {
	ParseQuery(v url.Values) suggest.Query
	Suggest(ctx context.Context, q suggest.Query) domain.SuggestResponse
}

// SuggestHandler serves GET /api/suggest.
type SuggestHandler struct {
	suggester Suggester
}

// NewSuggestHandler creates a SuggestHandler.
func NewSuggestHandler(suggester Suggester) *SuggestHandler {
	return &SuggestHandler{suggester: suggester}
}

// Suggest always answers 200; upstream failures produce the fallback list.
func (h *SuggestHandler) Suggest(c *gin.Context) {
	q := h.suggester.ParseQuery(c.Request.URL.Query())
	c.JSON(http.StatusOK, h.suggester.Suggest(c.Request.Context(), q))
}
