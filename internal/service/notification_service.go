package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"peerhelp/internal/apperr"
	"peerhelp/internal/cache"
	"peerhelp/internal/model"
	"peerhelp/internal/repository"
)

const (
	unreadCountTTL   = time.Minute
	notificationPage = 100
)

// NotificationService serves a user's notification feed.
type NotificationService interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) (*model.Notification, error)
	MarkChatRead(ctx context.Context, userID, chatID uuid.UUID) (int64, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationService struct {
	repo  repository.NotificationRepository
	cache *cache.Client
	feed  Feed
}

// NewNotificationService creates a new notification service.
func NewNotificationService(repo repository.NotificationRepository, cache *cache.Client, feed Feed) NotificationService {
	return &notificationService{repo: repo, cache: cache, feed: feed}
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID) ([]model.Notification, error) {
	ns, err := s.repo.ListForRecipient(ctx, userID, notificationPage)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch notifications", err)
	}
	return ns, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	key := cache.UnreadKey(userID.String())
	if data, _ := s.cache.Get(ctx, key); data != nil {
		if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
			return n, nil
		}
	}

	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("Failed to count notifications", err)
	}
	_ = s.cache.Set(ctx, key, []byte(strconv.FormatInt(n, 10)), unreadCountTTL)
	return n, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) (*model.Notification, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("Notification not found")
		}
		return nil, apperr.Internal("Failed to mark notification as read", err)
	}
	if n.RecipientID != userID {
		return nil, apperr.NotFound("Notification not found")
	}

	changed, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return nil, apperr.Internal("Failed to mark notification as read", err)
	}
	n.Read = true
	if changed > 0 {
		s.changed(ctx, userID, FeedEvent{Action: FeedActionUpdate, Notification: n, Changed: changed})
	}
	return n, nil
}

// MarkChatRead marks every unread notification of the chat as read. Calling
// it again changes nothing.
func (s *notificationService) MarkChatRead(ctx context.Context, userID, chatID uuid.UUID) (int64, error) {
	changed, err := s.repo.MarkReadByChat(ctx, userID, chatID)
	if err != nil {
		return 0, apperr.Internal("Failed to mark chat notifications as read", err)
	}
	if changed > 0 {
		s.changed(ctx, userID, FeedEvent{Action: FeedActionUpdate, ChatID: &chatID, Changed: changed})
	}
	return changed, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	changed, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("Failed to mark notifications as read", err)
	}
	if changed > 0 {
		s.changed(ctx, userID, FeedEvent{Action: FeedActionUpdate, Changed: changed})
	}
	return changed, nil
}

func (s *notificationService) changed(ctx context.Context, userID uuid.UUID, ev FeedEvent) {
	_ = s.cache.Delete(ctx, cache.UnreadKey(userID.String()))
	if s.feed != nil {
		s.feed.PublishNotification(userID, ev)
	}
}
