package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"peerhelp/internal/apperr"
	"peerhelp/internal/logging"
	"peerhelp/internal/middleware"
)

// ValidationResponse is returned for request DTOs that fail validation.
type ValidationResponse struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields"`
}

// NewHTTPErrorHandler renders every error as a JSON body. Server errors are
// logged and sent to the reporter.
func NewHTTPErrorHandler(reporter logging.Reporter) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			code int
			body interface{}
		)

		var appErr *apperr.Error
		var httpErr *echo.HTTPError
		var vErrs validator.ValidationErrors
		switch {
		case errors.As(err, &vErrs):
			code = http.StatusBadRequest
			body = ValidationResponse{Message: "Validation failed", Code: "VALIDATION_ERROR", Fields: fieldErrors(vErrs)}
		case errors.As(err, &appErr):
			herr := apperr.MapErrorToHTTP(appErr)
			code = herr.StatusCode
			body = herr.ToErrorResponse()
		case errors.As(err, &httpErr):
			code = httpErr.Code
			body = apperr.ErrorResponse{Message: fmt.Sprint(httpErr.Message)}
		default:
			code = http.StatusInternalServerError
			body = apperr.ErrorResponse{Message: "internal server error", Code: "INTERNAL_ERROR"}
		}

		if code >= http.StatusInternalServerError {
			req := c.Request()
			slog.ErrorContext(req.Context(), "request failed",
				"method", req.Method, "path", req.URL.Path, "status", code, "error", err)
			userID := ""
			if p := middleware.Principal(c); p != nil {
				userID = p.ID.String()
			}
			reporter.Report(err, userID, map[string]interface{}{
				"method": req.Method,
				"path":   req.URL.Path,
			})
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			slog.Error("write error response", "error", err)
		}
	}
}

func fieldErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[lowerFirst(fe.Field())] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "uuid":
		return "must be a valid id"
	default:
		return "is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
