package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"peerhelp/internal/model"
	"peerhelp/internal/service"
)

// AdminHandler serves the admin dashboard.
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// AdminUpdateUserRequest edits an account. Absent fields stay unchanged.
type AdminUpdateUserRequest struct {
	Firstname  *string  `json:"firstname" validate:"omitempty,min=1,max=100"`
	Lastname   *string  `json:"lastname" validate:"omitempty,min=1,max=100"`
	Email      *string  `json:"email" validate:"omitempty,email"`
	Interests  []string `json:"interests"`
	IsApproved *bool    `json:"isApproved"`
}

// UpdatedUserResponse returns the edited account.
type UpdatedUserResponse struct {
	Message     string      `json:"message"`
	UpdatedUser *model.User `json:"updatedUser"`
}

// Pending godoc
// @Summary Accounts awaiting approval
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Failure 403 {object} apperr.ErrorResponse
// @Router /admin/pending [get]
func (h *AdminHandler) Pending(c echo.Context) error {
	users, err := h.adminService.PendingUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// Approve godoc
// @Summary Approve an account and delete its ID card image
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /admin/approve/{userId} [put]
func (h *AdminHandler) Approve(c echo.Context) error {
	id, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}
	if err := h.adminService.Approve(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "User approved and image deleted (if found)"})
}

// Reject godoc
// @Summary Reject a pending account
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /admin/reject/{userId} [delete]
func (h *AdminHandler) Reject(c echo.Context) error {
	id, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}
	if err := h.adminService.Reject(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "User rejected and image deleted (if found)"})
}

// Users godoc
// @Summary Every account
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Router /admin/users [get]
func (h *AdminHandler) Users(c echo.Context) error {
	users, err := h.adminService.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// UpdateUser godoc
// @Summary Edit an account
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body AdminUpdateUserRequest true "Changes"
// @Success 200 {object} UpdatedUserResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Failure 409 {object} apperr.ErrorResponse
// @Router /admin/user/{id} [put]
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req AdminUpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.adminService.UpdateUser(c.Request().Context(), id, service.AdminUserUpdate{
		Firstname:  req.Firstname,
		Lastname:   req.Lastname,
		Email:      req.Email,
		Interests:  req.Interests,
		IsApproved: req.IsApproved,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UpdatedUserResponse{Message: "User updated successfully.", UpdatedUser: user})
}

// DeleteUser godoc
// @Summary Delete an account
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /admin/user/{id} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.adminService.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully."})
}

// Block godoc
// @Summary Block an account indefinitely
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /admin/block/{id} [put]
func (h *AdminHandler) Block(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.adminService.Block(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "User blocked successfully"})
}

// Unblock godoc
// @Summary Lift a block
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /admin/unblock/{id} [put]
func (h *AdminHandler) Unblock(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.adminService.Unblock(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "User unblocked successfully"})
}

// DeleteQuestion godoc
// @Summary Delete any question
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Question ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /admin/question/{id} [delete]
func (h *AdminHandler) DeleteQuestion(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.adminService.DeleteQuestion(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Question deleted successfully."})
}

// DeleteAnswer godoc
// @Summary Delete any answer
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Answer ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /admin/answer/{id} [delete]
func (h *AdminHandler) DeleteAnswer(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.adminService.DeleteAnswer(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Answer deleted successfully."})
}
