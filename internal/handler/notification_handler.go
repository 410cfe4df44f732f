package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"peerhelp/internal/service"
)

// NotificationHandler serves the caller's notification feed.
type NotificationHandler struct {
	notificationService service.NotificationService
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// CountResponse reports a number of notifications.
type CountResponse struct {
	Count int64 `json:"count"`
}

// MarkedResponse reports how many notifications changed.
type MarkedResponse struct {
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}

// List godoc
// @Summary Latest notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Notification
// @Router /notifications [get]
func (h *NotificationHandler) List(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	ns, err := h.notificationService.List(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ns)
}

// UnreadCount godoc
// @Summary Number of unread notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} CountResponse
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	n, err := h.notificationService.UnreadCount(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CountResponse{Count: n})
}

// MarkRead godoc
// @Summary Mark one notification as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} model.Notification
// @Failure 404 {object} apperr.ErrorResponse
// @Router /notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	n, err := h.notificationService.MarkRead(c.Request().Context(), user.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

// MarkChatRead godoc
// @Summary Mark every notification of a chat as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param chatId path string true "Chat ID"
// @Success 200 {object} MarkedResponse
// @Router /notifications/chat/{chatId}/read [patch]
func (h *NotificationHandler) MarkChatRead(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	chatID, err := uuidParam(c, "chatId")
	if err != nil {
		return err
	}
	n, err := h.notificationService.MarkChatRead(c.Request().Context(), user.ID, chatID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MarkedResponse{Message: "Chat notifications marked as read", Updated: n})
}

// MarkAllRead godoc
// @Summary Mark every notification as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MarkedResponse
// @Router /notifications/read-all [patch]
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	n, err := h.notificationService.MarkAllRead(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MarkedResponse{Message: "All notifications marked as read", Updated: n})
}
