package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"peerhelp/internal/apperr"
	"peerhelp/internal/seed"
)

// SeedHandler loads the demo fixture. It is only routed outside production.
type SeedHandler struct {
	seeder *seed.Seeder
}

// NewSeedHandler creates a new seed handler.
func NewSeedHandler(seeder *seed.Seeder) *SeedHandler {
	return &SeedHandler{seeder: seeder}
}

// SeedResponse represents the seed response.
type SeedResponse struct {
	Message string      `json:"message"`
	Result  seed.Result `json:"result"`
}

// Seed godoc
// @Summary Load demo accounts, questions and answers
// @Description Development only. Existing accounts are left untouched.
// @Tags seed
// @Produce json
// @Success 200 {object} SeedResponse
// @Failure 500 {object} apperr.ErrorResponse
// @Router /seed [post]
func (h *SeedHandler) Seed(c echo.Context) error {
	f, err := seed.Default()
	if err != nil {
		return apperr.Internal("failed to load seed fixture", err)
	}
	res, err := h.seeder.Apply(c.Request().Context(), f)
	if err != nil {
		return apperr.Internal("failed to seed", err)
	}
	return c.JSON(http.StatusOK, SeedResponse{Message: "Seed applied", Result: res})
}
