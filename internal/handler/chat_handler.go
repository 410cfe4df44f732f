package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"peerhelp/internal/service"
)

// ChatHandler handles chat and message endpoints.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// CreateChatRequest opens a chat with another user.
type CreateChatRequest struct {
	ReceiverID string `json:"receiverId" validate:"required,uuid"`
}

// SendMessageRequest posts a message to a chat.
type SendMessageRequest struct {
	ChatID string `json:"chatId" validate:"required,uuid"`
	Text   string `json:"text" validate:"required"`
}

// CreateChat godoc
// @Summary Open a chat
// @Description Returns the existing chat when the pair already has one.
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateChatRequest true "Other member"
// @Success 200 {object} model.Chat
// @Failure 400 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /chats [post]
func (h *ChatHandler) CreateChat(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	var req CreateChatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	chat, err := h.chatService.CreateChat(c.Request().Context(), user.ID, uuid.MustParse(req.ReceiverID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chat)
}

// ListChats godoc
// @Summary The caller's chats, most recent first
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Chat
// @Router /chats [get]
func (h *ChatHandler) ListChats(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	chats, err := h.chatService.ListChats(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chats)
}

// FindChat godoc
// @Summary Find the chat of two users
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param firstId path string true "First member"
// @Param secondId path string true "Second member"
// @Success 200 {object} model.Chat
// @Failure 403 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /chats/find/{firstId}/{secondId} [get]
func (h *ChatHandler) FindChat(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	first, err := uuidParam(c, "firstId")
	if err != nil {
		return err
	}
	second, err := uuidParam(c, "secondId")
	if err != nil {
		return err
	}
	chat, err := h.chatService.FindChat(c.Request().Context(), user, first, second)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chat)
}

// SendMessage godoc
// @Summary Send a chat message
// @Description Persists the message and notifies the other member.
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SendMessageRequest true "Message"
// @Success 200 {object} model.Message
// @Failure 403 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /messages [post]
func (h *ChatHandler) SendMessage(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	var req SendMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	msg, err := h.chatService.SendMessage(c.Request().Context(), user, uuid.MustParse(req.ChatID), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, msg)
}

// ListMessages godoc
// @Summary Messages of a chat, oldest first
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param chatId path string true "Chat ID"
// @Success 200 {array} model.Message
// @Failure 403 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /messages/{chatId} [get]
func (h *ChatHandler) ListMessages(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	chatID, err := uuidParam(c, "chatId")
	if err != nil {
		return err
	}
	messages, err := h.chatService.ListMessages(c.Request().Context(), user, chatID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messages)
}
