package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"peerhelp/internal/apperr"
	"peerhelp/internal/model"
	"peerhelp/internal/repository"
)

var (
	errChatNotFound = apperr.NotFound("Chat not found")
	errNotAMember   = apperr.New(apperr.KindForbidden, "NOT_A_MEMBER", "You are not a member of this chat")
)

// ChatService manages two-member chats and their messages.
type ChatService interface {
	// CreateChat returns the chat of the pair, creating it on first use.
	CreateChat(ctx context.Context, senderID, receiverID uuid.UUID) (*model.Chat, error)
	ListChats(ctx context.Context, userID uuid.UUID) ([]model.Chat, error)
	FindChat(ctx context.Context, principal *model.User, firstID, secondID uuid.UUID) (*model.Chat, error)
	SendMessage(ctx context.Context, sender *model.User, chatID uuid.UUID, text string) (*model.Message, error)
	ListMessages(ctx context.Context, principal *model.User, chatID uuid.UUID) ([]model.Message, error)
}

type chatService struct {
	repo     repository.ChatRepository
	userRepo repository.UserRepository
	relay    NotificationRelay
}

// NewChatService creates a new chat service.
func NewChatService(repo repository.ChatRepository, userRepo repository.UserRepository, relay NotificationRelay) ChatService {
	return &chatService{repo: repo, userRepo: userRepo, relay: relay}
}

func (s *chatService) CreateChat(ctx context.Context, senderID, receiverID uuid.UUID) (*model.Chat, error) {
	if receiverID == uuid.Nil {
		return nil, apperr.Validation("receiverId is required")
	}
	if senderID == receiverID {
		return nil, apperr.Validation("Cannot start a chat with yourself")
	}

	if chat, err := s.repo.FindByMembers(ctx, senderID, receiverID); err == nil {
		return chat, nil
	} else if !repository.IsNotFound(err) {
		return nil, apperr.Internal("Error creating chat", err)
	}

	if _, err := s.userRepo.FindByID(ctx, receiverID); err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal("Error creating chat", err)
	}

	chat := model.NewChat(senderID, receiverID)
	if err := s.repo.Create(ctx, chat); err != nil {
		if !repository.IsDuplicate(err) {
			return nil, apperr.Internal("Error creating chat", err)
		}
		// lost the race to a concurrent create of the same pair
		existing, findErr := s.repo.FindByMembers(ctx, senderID, receiverID)
		if findErr != nil {
			return nil, apperr.Internal("Error creating chat", findErr)
		}
		return existing, nil
	}
	return chat, nil
}

func (s *chatService) ListChats(ctx context.Context, userID uuid.UUID) ([]model.Chat, error) {
	chats, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Error fetching chats", err)
	}
	return chats, nil
}

func (s *chatService) FindChat(ctx context.Context, principal *model.User, firstID, secondID uuid.UUID) (*model.Chat, error) {
	if principal.ID != firstID && principal.ID != secondID && !principal.IsAdmin() {
		return nil, errNotAMember
	}
	chat, err := s.repo.FindByMembers(ctx, firstID, secondID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errChatNotFound
		}
		return nil, apperr.Internal("Error fetching chat", err)
	}
	return chat, nil
}

func (s *chatService) SendMessage(ctx context.Context, sender *model.User, chatID uuid.UUID, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("Message text is required")
	}
	chat, err := s.memberChat(ctx, sender, chatID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{ChatID: chat.ID, SenderID: sender.ID, Text: text}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, apperr.Internal("Error sending message", err)
	}
	if err := s.repo.Touch(ctx, chat.ID); err != nil {
		slog.WarnContext(ctx, "touch chat failed", "chat", chat.ID, "error", err)
	}

	cid := chat.ID
	s.relay.Emit(ctx, NotificationEvent{
		RecipientID: chat.Other(sender.ID),
		ActorID:     sender.ID,
		Type:        model.NotificationMessage,
		ChatID:      &cid,
		Content:     fmt.Sprintf("%s sent you a message.", sender.Firstname),
		Link:        fmt.Sprintf("?chatId=%s", cid),
	})
	return msg, nil
}

func (s *chatService) ListMessages(ctx context.Context, principal *model.User, chatID uuid.UUID) ([]model.Message, error) {
	chat, err := s.memberChat(ctx, principal, chatID)
	if err != nil {
		return nil, err
	}
	messages, err := s.repo.ListMessages(ctx, chat.ID)
	if err != nil {
		return nil, apperr.Internal("Error fetching messages", err)
	}
	return messages, nil
}

// memberChat loads a chat the user belongs to.
func (s *chatService) memberChat(ctx context.Context, user *model.User, chatID uuid.UUID) (*model.Chat, error) {
	chat, err := s.repo.FindByID(ctx, chatID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errChatNotFound
		}
		return nil, apperr.Internal("Error fetching chat", err)
	}
	if !chat.HasMember(user.ID) {
		return nil, errNotAMember
	}
	return chat, nil
}
