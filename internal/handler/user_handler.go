package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"peerhelp/internal/apperr"
	"peerhelp/internal/service"
)

// UserHandler handles user endpoints.
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler builds a new UserHandler.
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers godoc
// @Summary List public user profiles
// @Tags users
// @Produce json
// @Success 200 {array} service.PublicUser
// @Failure 500 {object} apperr.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.userService.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser godoc
// @Summary Get a user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} service.PublicUser
// @Failure 404 {object} apperr.ErrorResponse
// @Failure 500 {object} apperr.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	user, err := h.userService.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile godoc
// @Summary Update own profile
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param firstname formData string false "First name"
// @Param lastname formData string false "Last name"
// @Param bio formData string false "Bio (max 200)"
// @Param interests formData string false "JSON array of interests"
// @Param picture formData file false "Profile picture (jpeg/png, max 5MB)"
// @Success 200 {object} model.User
// @Failure 400 {object} apperr.ErrorResponse
// @Failure 401 {object} apperr.ErrorResponse
// @Failure 500 {object} apperr.ErrorResponse
// @Router /users/profile [post]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}

	in := service.ProfileInput{
		Firstname: c.FormValue("firstname"),
		Lastname:  c.FormValue("lastname"),
	}
	if form, err := c.MultipartForm(); err == nil {
		if vals, ok := form.Value["bio"]; ok && len(vals) > 0 {
			bio := vals[0]
			in.Bio = &bio
		}
	} else if bio := c.FormValue("bio"); bio != "" {
		in.Bio = &bio
	}
	if raw := c.FormValue("interests"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Interests); err != nil {
			return apperr.Validation("interests must be a JSON array of strings")
		}
		if in.Interests == nil {
			in.Interests = []string{}
		}
	}

	picture, err := c.FormFile("picture")
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
			return apperr.Validation("invalid picture upload")
		}
		picture = nil
	}

	updated, err := h.userService.UpdateProfile(c.Request().Context(), user.ID, in, picture)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}
