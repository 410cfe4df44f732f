package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"peerhelp/internal/apperr"
	"peerhelp/internal/model"
	"peerhelp/internal/service"
)

// VoteHandler exposes the vote ledger.
type VoteHandler struct {
	voteService service.VoteService
}

// NewVoteHandler creates a new vote handler.
func NewVoteHandler(voteService service.VoteService) *VoteHandler {
	return &VoteHandler{voteService: voteService}
}

// VoteRequest casts, switches or toggles off a vote.
type VoteRequest struct {
	TargetID   string `json:"targetId" validate:"required,uuid"`
	TargetType string `json:"targetType" validate:"required,oneof=question answer"`
	VoteType   string `json:"voteType" validate:"required,oneof=upvote downvote"`
}

// Vote godoc
// @Summary Vote on a question or answer
// @Description Same vote twice removes it, the opposite vote switches it.
// @Tags votes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body VoteRequest true "Vote"
// @Success 200 {object} service.VoteResult
// @Failure 400 {object} apperr.ErrorResponse
// @Failure 403 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Failure 409 {object} apperr.ErrorResponse
// @Router /votes [post]
func (h *VoteHandler) Vote(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	var req VoteRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.voteService.CastVote(
		c.Request().Context(),
		user,
		uuid.MustParse(req.TargetID),
		model.TargetType(req.TargetType),
		model.VoteType(req.VoteType),
	)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// UserVotes godoc
// @Summary The caller's votes on a set of targets
// @Tags votes
// @Produce json
// @Security BearerAuth
// @Param targetIds query string true "Comma separated target IDs"
// @Param targetType query string true "question or answer"
// @Success 200 {array} model.Vote
// @Failure 400 {object} apperr.ErrorResponse
// @Router /votes/user [get]
func (h *VoteHandler) UserVotes(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}

	var ids []uuid.UUID
	for _, raw := range strings.Split(c.QueryParam("targetIds"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperr.Validation("invalid targetIds")
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return c.JSON(http.StatusOK, []model.Vote{})
	}

	votes, err := h.voteService.UserVotes(c.Request().Context(), user.ID, model.TargetType(c.QueryParam("targetType")), ids)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, votes)
}
