package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"peerhelp/internal/model"
)

// NotificationRepository defines notification persistence operations.
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	CreateBatch(ctx context.Context, ns []*model.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	ListForRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]model.Notification, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, recipientID, id uuid.UUID) (int64, error)
	MarkReadByChat(ctx context.Context, recipientID, chatID uuid.UUID) (int64, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// CreateBatch creates multiple notifications in a single statement.
func (r *notificationRepository) CreateBatch(ctx context.Context, ns []*model.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&ns).Error
}

func (r *notificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// ListForRecipient returns notifications newest first. limit <= 0 means all.
func (r *notificationRepository) ListForRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]model.Notification, error) {
	q := r.db.WithContext(ctx).Where("recipient_id = ?", recipientID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ns []model.Notification
	if err := q.Find(&ns).Error; err != nil {
		return nil, err
	}
	return ns, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ?", recipientID).
		Where(map[string]interface{}{"read": false}).
		Count(&n).Error
	return n, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id uuid.UUID) (int64, error) {
	return r.markRead(r.db.WithContext(ctx).Where("recipient_id = ? AND id = ?", recipientID, id))
}

func (r *notificationRepository) MarkReadByChat(ctx context.Context, recipientID, chatID uuid.UUID) (int64, error) {
	return r.markRead(r.db.WithContext(ctx).Where("recipient_id = ? AND chat_id = ?", recipientID, chatID))
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return r.markRead(r.db.WithContext(ctx).Where("recipient_id = ?", recipientID))
}

// markRead flips unread rows matched by scope and returns how many changed.
// The column name is passed through GORM so each dialect quotes the
// reserved word.
func (r *notificationRepository) markRead(scope *gorm.DB) (int64, error) {
	res := scope.Model(&model.Notification{}).
		Where(map[string]interface{}{"read": false}).
		Update("read", true)
	return res.RowsAffected, res.Error
}
