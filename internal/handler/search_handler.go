package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"peerhelp/internal/service"
)

// SearchHandler serves keyword search.
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search godoc
// @Summary Search questions, answers and people
// @Description Case-insensitive substring match, at most ten results of each kind.
// @Tags search
// @Produce json
// @Param keyword query string true "Keyword"
// @Success 200 {object} service.SearchResult
// @Failure 400 {object} apperr.ErrorResponse
// @Router /search [get]
func (h *SearchHandler) Search(c echo.Context) error {
	res, err := h.searchService.Search(c.Request().Context(), c.QueryParam("keyword"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
