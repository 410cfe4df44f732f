package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"peerhelp/internal/cache"
	"peerhelp/internal/model"
	"peerhelp/internal/repository"
)

// Feed actions pushed to live subscribers.
const (
	FeedActionCreate = "create"
	FeedActionUpdate = "update"
)

// FeedEvent is a change to a user's notification feed.
type FeedEvent struct {
	Action       string              `json:"action"`
	Notification *model.Notification `json:"notification,omitempty"`
	ChatID       *uuid.UUID          `json:"chatId,omitempty"`
	Changed      int64               `json:"changed,omitempty"`
}

// Feed receives feed changes for live delivery. Delivery is best-effort.
type Feed interface {
	PublishNotification(userID uuid.UUID, ev FeedEvent)
}

// NotificationEvent describes a notification to create.
type NotificationEvent struct {
	RecipientID uuid.UUID
	ActorID     uuid.UUID
	Type        model.NotificationType
	QuestionID  *uuid.UUID
	AnswerID    *uuid.UUID
	ChatID      *uuid.UUID
	Content     string
	Link        string
}

// NotificationRelay fans server-side events out to the notification store
// and the live feed. Emit never fails the caller.
type NotificationRelay interface {
	Emit(ctx context.Context, ev NotificationEvent)
	// Close drains queued events and stops the worker.
	Close()
}

const (
	relayQueueSize  = 256
	relayBatchSize  = 10
	relayFlushEvery = time.Second
)

type notificationRelay struct {
	repo  repository.NotificationRepository
	cache *cache.Client
	feed  Feed

	queue      chan *model.Notification
	done       chan struct{}
	batchSize  int
	flushEvery time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewNotificationRelay creates the relay and starts its worker.
func NewNotificationRelay(repo repository.NotificationRepository, cache *cache.Client, feed Feed) NotificationRelay {
	return newNotificationRelay(repo, cache, feed, relayQueueSize, relayBatchSize, relayFlushEvery)
}

func newNotificationRelay(repo repository.NotificationRepository, cache *cache.Client, feed Feed, queueSize, batchSize int, flushEvery time.Duration) *notificationRelay {
	r := &notificationRelay{
		repo:       repo,
		cache:      cache,
		feed:       feed,
		queue:      make(chan *model.Notification, queueSize),
		done:       make(chan struct{}),
		batchSize:  batchSize,
		flushEvery: flushEvery,
	}

	// Start async outbox worker
	go r.worker(context.Background())

	return r
}

func (r *notificationRelay) Emit(ctx context.Context, ev NotificationEvent) {
	if ev.RecipientID == uuid.Nil || ev.RecipientID == ev.ActorID {
		return
	}

	n := &model.Notification{
		RecipientID: ev.RecipientID,
		Type:        ev.Type,
		QuestionID:  ev.QuestionID,
		AnswerID:    ev.AnswerID,
		ChatID:      ev.ChatID,
		Content:     ev.Content,
		Link:        ev.Link,
	}
	if ev.ActorID != uuid.Nil {
		actor := ev.ActorID
		n.ActorID = &actor
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.deliver(context.WithoutCancel(ctx), []*model.Notification{n})
		return
	}

	// Send to outbox (non-blocking)
	select {
	case r.queue <- n:
	default:
		// Queue full, deliver synchronously as fallback
		r.deliver(context.WithoutCancel(ctx), []*model.Notification{n})
	}
}

func (r *notificationRelay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}

// worker persists queued notifications in batches.
func (r *notificationRelay) worker(ctx context.Context) {
	defer close(r.done)

	batch := make([]*model.Notification, 0, r.batchSize)
	ticker := time.NewTicker(r.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-r.queue:
			if !ok {
				// Queue closed, flush remaining events
				r.deliver(ctx, batch)
				return
			}
			batch = append(batch, n)
			if len(batch) >= r.batchSize {
				r.deliver(ctx, batch)
				batch = make([]*model.Notification, 0, r.batchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.deliver(ctx, batch)
				batch = make([]*model.Notification, 0, r.batchSize)
			}
		}
	}
}

// deliver stores the batch and publishes what was stored. Failures are
// logged and dropped.
func (r *notificationRelay) deliver(ctx context.Context, batch []*model.Notification) {
	if len(batch) == 0 {
		return
	}

	stored := batch
	if err := r.repo.CreateBatch(ctx, batch); err != nil {
		slog.Warn("notification batch insert failed, retrying one by one", "size", len(batch), "error", err)
		stored = stored[:0:0]
		for _, n := range batch {
			if err := r.repo.Create(ctx, n); err != nil {
				slog.Error("notification dropped", "recipient", n.RecipientID, "type", n.Type, "error", err)
				continue
			}
			stored = append(stored, n)
		}
	}

	for _, n := range stored {
		_ = r.cache.Delete(ctx, cache.UnreadKey(n.RecipientID.String()))
		if r.feed != nil {
			r.feed.PublishNotification(n.RecipientID, FeedEvent{Action: FeedActionCreate, Notification: n})
		}
	}
}
