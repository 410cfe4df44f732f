package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"peerhelp/internal/apperr"
	"peerhelp/internal/middleware"
	"peerhelp/internal/model"
)

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// bind decodes the request into req and validates it.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	return c.Validate(req)
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid " + name)
	}
	return id, nil
}

// optionalUUIDQuery parses an optional id query parameter.
func optionalUUIDQuery(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation("invalid " + name)
	}
	return &id, nil
}

// principal returns the guarded request's user.
func principal(c echo.Context) (*model.User, error) {
	user := middleware.Principal(c)
	if user == nil {
		return nil, apperr.Unauthenticated("No token provided")
	}
	return user, nil
}
