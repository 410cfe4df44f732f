package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"peerhelp/internal/model"
)

// ChatRepository defines chat and message persistence operations.
type ChatRepository interface {
	Create(ctx context.Context, chat *model.Chat) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Chat, error)
	FindByMembers(ctx context.Context, a, b uuid.UUID) (*model.Chat, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Chat, error)
	Touch(ctx context.Context, id uuid.UUID) error
	CreateMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, chatID uuid.UUID) ([]model.Message, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, chat *model.Chat) error {
	return r.db.WithContext(ctx).Create(chat).Error
}

func (r *chatRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&chat).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) FindByMembers(ctx context.Context, a, b uuid.UUID) (*model.Chat, error) {
	first, second := model.OrderPair(a, b)
	var chat model.Chat
	err := r.db.WithContext(ctx).
		Where("member_a = ? AND member_b = ?", first, second).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListForUser returns the user's chats, most recently active first.
func (r *chatRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Chat, error) {
	var chats []model.Chat
	err := r.db.WithContext(ctx).
		Where("member_a = ? OR member_b = ?", userID, userID).
		Order("updated_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *chatRepository) Touch(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Chat{}).Where("id = ?", id).Update("updated_at", time.Now()).Error
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListMessages returns a chat's messages oldest first.
func (r *chatRepository) ListMessages(ctx context.Context, chatID uuid.UUID) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}
