package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerhelp/internal/apperr"
	"peerhelp/internal/model"
	"peerhelp/internal/repository"
	"peerhelp/internal/testutil"
)

type recordingFeed struct {
	mu     sync.Mutex
	events map[uuid.UUID][]FeedEvent
}

func newRecordingFeed() *recordingFeed {
	return &recordingFeed{events: map[uuid.UUID][]FeedEvent{}}
}

func (f *recordingFeed) PublishNotification(userID uuid.UUID, ev FeedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[userID] = append(f.events[userID], ev)
}

func (f *recordingFeed) For(userID uuid.UUID) []FeedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FeedEvent(nil), f.events[userID]...)
}

// brokenBatchRepo fails every batch insert.
type brokenBatchRepo struct {
	repository.NotificationRepository
}

func (brokenBatchRepo) CreateBatch(context.Context, []*model.Notification) error {
	return errors.New("batch insert unsupported")
}

func TestNotificationRelay_PersistsAndPublishes(t *testing.T) {
	repo := repository.NewNotificationRepository(testutil.NewSQLite(t))
	feed := newRecordingFeed()
	relay := newNotificationRelay(repo, nil, feed, 16, 2, 10*time.Millisecond)
	ctx := context.Background()

	recipient, actor := uuid.New(), uuid.New()
	chatID := uuid.New()
	for i := 0; i < 3; i++ {
		relay.Emit(ctx, NotificationEvent{
			RecipientID: recipient,
			ActorID:     actor,
			Type:        model.NotificationMessage,
			ChatID:      &chatID,
			Content:     "Ann sent you a message.",
			Link:        "?chatId=" + chatID.String(),
		})
	}
	// self notifications are dropped
	relay.Emit(ctx, NotificationEvent{RecipientID: actor, ActorID: actor, Type: model.NotificationVote, Content: "x"})
	relay.Close()

	stored, err := repo.ListForRecipient(ctx, recipient, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	for _, n := range stored {
		require.NotNil(t, n.ActorID)
		assert.Equal(t, actor, *n.ActorID)
		assert.False(t, n.Read)
	}

	events := feed.For(recipient)
	require.Len(t, events, 3)
	assert.Equal(t, FeedActionCreate, events[0].Action)
	assert.Empty(t, feed.For(actor))

	self, err := repo.ListForRecipient(ctx, actor, 0)
	require.NoError(t, err)
	assert.Empty(t, self)
}

func TestNotificationRelay_EmitAfterCloseIsSynchronous(t *testing.T) {
	repo := repository.NewNotificationRepository(testutil.NewSQLite(t))
	relay := newNotificationRelay(repo, nil, nil, 4, 10, time.Hour)
	relay.Close()
	relay.Close() // idempotent

	recipient := uuid.New()
	relay.Emit(context.Background(), NotificationEvent{RecipientID: recipient, Type: model.NotificationVote, Content: "late"})

	n, err := repo.CountUnread(context.Background(), recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNotificationRelay_BatchFailureFallsBackToSingleInserts(t *testing.T) {
	inner := repository.NewNotificationRepository(testutil.NewSQLite(t))
	feed := newRecordingFeed()
	relay := newNotificationRelay(brokenBatchRepo{inner}, nil, feed, 8, 8, time.Hour)

	recipient := uuid.New()
	relay.Emit(context.Background(), NotificationEvent{RecipientID: recipient, Type: model.NotificationNewAnswer, Content: "a"})
	relay.Emit(context.Background(), NotificationEvent{RecipientID: recipient, Type: model.NotificationNewAnswer, Content: "b"})
	relay.Close()

	n, err := inner.CountUnread(context.Background(), recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, feed.For(recipient), 2)
}

func TestNotificationService_ReadFlags(t *testing.T) {
	repo := repository.NewNotificationRepository(testutil.NewSQLite(t))
	feed := newRecordingFeed()
	svc := NewNotificationService(repo, nil, feed)
	ctx := context.Background()

	me, stranger := uuid.New(), uuid.New()
	chatA, chatB := uuid.New(), uuid.New()
	vote := &model.Notification{RecipientID: me, Type: model.NotificationVote, Content: "v"}
	require.NoError(t, repo.CreateBatch(ctx, []*model.Notification{
		vote,
		{RecipientID: me, Type: model.NotificationMessage, ChatID: &chatA, Content: "a1"},
		{RecipientID: me, Type: model.NotificationMessage, ChatID: &chatA, Content: "a2"},
		{RecipientID: me, Type: model.NotificationMessage, ChatID: &chatB, Content: "b1"},
	}))

	count, err := svc.UnreadCount(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	changed, err := svc.MarkChatRead(ctx, me, chatA)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	changed, err = svc.MarkChatRead(ctx, me, chatA)
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed, "marking a chat read twice changes nothing")

	_, err = svc.MarkRead(ctx, stranger, vote.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	n, err := svc.MarkRead(ctx, me, vote.ID)
	require.NoError(t, err)
	assert.True(t, n.Read)

	count, err = svc.UnreadCount(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	changed, err = svc.MarkAllRead(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	events := feed.For(me)
	require.Len(t, events, 3)
	for _, ev := range events {
		assert.Equal(t, FeedActionUpdate, ev.Action)
	}
	require.NotNil(t, events[0].ChatID)
	assert.Equal(t, chatA, *events[0].ChatID)
	assert.Empty(t, feed.For(stranger))

	list, err := svc.List(ctx, me)
	require.NoError(t, err)
	assert.Len(t, list, 4)
}
