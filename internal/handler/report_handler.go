package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"peerhelp/internal/apperr"
	"peerhelp/internal/model"
	"peerhelp/internal/service"
)

// ReportHandler handles question reports and their moderation.
type ReportHandler struct {
	reportService service.ReportService
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// CreateReportRequest flags a question.
type CreateReportRequest struct {
	QuestionID string `json:"questionId" validate:"required,uuid"`
	Reason     string `json:"reason" validate:"required,oneof=spam harassment offensive misinformation other"`
	Comment    string `json:"comment" validate:"max=1000"`
}

// UpdateReportRequest moves a report through moderation. BanDuration is in
// days; zero or absent bans permanently.
type UpdateReportRequest struct {
	Status      *string `json:"status" validate:"omitempty,oneof=pending reviewed resolved"`
	Action      string  `json:"action" validate:"omitempty,oneof=ban dismiss"`
	BanDuration *int    `json:"banDuration" validate:"omitempty,min=0"`
}

// ReportResponse wraps a report with a status message.
type ReportResponse struct {
	Message string        `json:"message"`
	Report  *model.Report `json:"report"`
}

// Create godoc
// @Summary Report a question
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateReportRequest true "Report"
// @Success 201 {object} ReportResponse
// @Failure 400 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /reports [post]
func (h *ReportHandler) Create(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	var req CreateReportRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	report, err := h.reportService.Create(
		c.Request().Context(),
		user,
		uuid.MustParse(req.QuestionID),
		model.ReportReason(req.Reason),
		req.Comment,
	)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ReportResponse{Message: "Report submitted successfully", Report: report})
}

// List godoc
// @Summary List reports
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, reviewed or resolved"
// @Success 200 {array} model.Report
// @Failure 400 {object} apperr.ErrorResponse
// @Failure 403 {object} apperr.ErrorResponse
// @Router /reports [get]
func (h *ReportHandler) List(c echo.Context) error {
	status := model.ReportStatus(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return apperr.Validation("invalid status")
	}
	reports, err := h.reportService.List(c.Request().Context(), status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reports)
}

// Update godoc
// @Summary Review, resolve or act on a report
// @Description action=ban blocks the reported user for banDuration days and resolves the report.
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Param request body UpdateReportRequest true "Update"
// @Success 200 {object} ReportResponse
// @Failure 400 {object} apperr.ErrorResponse
// @Failure 403 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /reports/{id} [patch]
func (h *ReportHandler) Update(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req UpdateReportRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	upd := service.ReportUpdate{Action: req.Action, BanDays: req.BanDuration}
	if req.Status != nil {
		s := model.ReportStatus(*req.Status)
		upd.Status = &s
	}

	report, err := h.reportService.Update(c.Request().Context(), id, upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ReportResponse{Message: "Report updated successfully", Report: report})
}
