package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"peerhelp/internal/model"
	"peerhelp/internal/service"
)

// AnswerHandler handles answer endpoints.
type AnswerHandler struct {
	answerService service.AnswerService
}

// NewAnswerHandler creates a new answer handler.
func NewAnswerHandler(answerService service.AnswerService) *AnswerHandler {
	return &AnswerHandler{answerService: answerService}
}

// CreateAnswerRequest represents a new answer.
type CreateAnswerRequest struct {
	Content    string `json:"content" validate:"required"`
	QuestionID string `json:"questionId" validate:"required,uuid"`
}

// AnswerResponse wraps an answer with a status message.
type AnswerResponse struct {
	Message string        `json:"message"`
	Answer  *model.Answer `json:"answer"`
}

// List godoc
// @Summary List answers
// @Tags answers
// @Produce json
// @Security BearerAuth
// @Param userId query string false "Author ID"
// @Success 200 {array} model.Answer
// @Failure 500 {object} apperr.ErrorResponse
// @Router /answers [get]
func (h *AnswerHandler) List(c echo.Context) error {
	authorID, err := optionalUUIDQuery(c, "userId")
	if err != nil {
		return err
	}
	answers, err := h.answerService.List(c.Request().Context(), authorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, answers)
}

// Create godoc
// @Summary Answer a question
// @Description Notifies the question author.
// @Tags answers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAnswerRequest true "Answer"
// @Success 201 {object} AnswerResponse
// @Failure 400 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /answers [post]
func (h *AnswerHandler) Create(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	var req CreateAnswerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := h.answerService.Create(c.Request().Context(), user, uuid.MustParse(req.QuestionID), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, AnswerResponse{Message: "Answer added", Answer: a})
}

// Update godoc
// @Summary Edit an answer
// @Tags answers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Answer ID"
// @Param request body ContentRequest true "New content"
// @Success 200 {object} AnswerResponse
// @Failure 403 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /answers/{id} [put]
func (h *AnswerHandler) Update(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req ContentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := h.answerService.Update(c.Request().Context(), user, id, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AnswerResponse{Message: "Answer updated", Answer: a})
}

// Delete godoc
// @Summary Delete an answer and its votes
// @Tags answers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Answer ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /answers/{id} [delete]
func (h *AnswerHandler) Delete(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.answerService.Delete(c.Request().Context(), user, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Answer deleted"})
}
