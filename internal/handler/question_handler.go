package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"peerhelp/internal/model"
	"peerhelp/internal/service"
)

// QuestionHandler handles question endpoints.
type QuestionHandler struct {
	questionService service.QuestionService
}

// NewQuestionHandler creates a new question handler.
func NewQuestionHandler(questionService service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// ContentRequest carries the text of a question or answer.
type ContentRequest struct {
	Content string `json:"content" validate:"required"`
}

// QuestionResponse wraps a question with a status message.
type QuestionResponse struct {
	Message  string          `json:"message"`
	Question *model.Question `json:"question"`
}

// List godoc
// @Summary List questions
// @Description Newest first, with author and answers. Filter by author with userId.
// @Tags questions
// @Produce json
// @Security BearerAuth
// @Param userId query string false "Author ID"
// @Success 200 {array} model.Question
// @Failure 401 {object} apperr.ErrorResponse
// @Failure 500 {object} apperr.ErrorResponse
// @Router /questions [get]
func (h *QuestionHandler) List(c echo.Context) error {
	authorID, err := optionalUUIDQuery(c, "userId")
	if err != nil {
		return err
	}
	questions, err := h.questionService.List(c.Request().Context(), authorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, questions)
}

// Get godoc
// @Summary Get a question with its answers
// @Tags questions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Question ID"
// @Success 200 {object} model.Question
// @Failure 404 {object} apperr.ErrorResponse
// @Router /questions/{id} [get]
func (h *QuestionHandler) Get(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	q, err := h.questionService.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, q)
}

// Create godoc
// @Summary Ask a question
// @Tags questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ContentRequest true "Question"
// @Success 201 {object} QuestionResponse
// @Failure 400 {object} apperr.ErrorResponse
// @Router /questions [post]
func (h *QuestionHandler) Create(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	var req ContentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	q, err := h.questionService.Create(c.Request().Context(), user, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, QuestionResponse{Message: "Question added", Question: q})
}

// Update godoc
// @Summary Edit a question
// @Tags questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Question ID"
// @Param request body ContentRequest true "New content"
// @Success 200 {object} QuestionResponse
// @Failure 403 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /questions/{id} [put]
func (h *QuestionHandler) Update(c echo.Context) error {
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
	q, err := h.questionService.Update(c.Request().Context(), user, id, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, QuestionResponse{Message: "Question updated", Question: q})
}

// Delete godoc
// @Summary Delete a question with its answers and votes
// @Tags questions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Question ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /questions/{id} [delete]
func (h *QuestionHandler) Delete(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.questionService.Delete(c.Request().Context(), user, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Question deleted"})
}
