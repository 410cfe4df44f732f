package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"peerhelp/internal/apperr"
	"peerhelp/internal/model"
	"peerhelp/internal/repository"
	"peerhelp/internal/testutil"
)

// MockRelay is a mock implementation of NotificationRelay.
type MockRelay struct {
	mock.Mock
}

func (m *MockRelay) Emit(ctx context.Context, ev NotificationEvent) {
	m.Called(ctx, ev)
}

func (m *MockRelay) Close() {
	m.Called()
}

type ledgerFixture struct {
	db        *gorm.DB
	votes     repository.VoteRepository
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	relay     *MockRelay
	svc       VoteService
	alice     *model.User
	bob       *model.User
	question  *model.Question
	answer    *model.Answer
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	db := testutil.NewSQLite(t)
	ctx := context.Background()
	f := &ledgerFixture{
		db:        db,
		votes:     repository.NewVoteRepository(db),
		questions: repository.NewQuestionRepository(db),
		answers:   repository.NewAnswerRepository(db),
		relay:     &MockRelay{},
	}
	users := repository.NewUserRepository(db)
	f.alice = &model.User{Firstname: "Alice", Email: "alice@example.com", PasswordHash: "x", IsApproved: true}
	f.bob = &model.User{Firstname: "Bob", Email: "bob@example.com", PasswordHash: "x", IsApproved: true}
	require.NoError(t, users.Create(ctx, f.alice))
	require.NoError(t, users.Create(ctx, f.bob))

	f.question = &model.Question{Content: "How do goroutines get scheduled?", UserID: f.alice.ID}
	require.NoError(t, f.questions.Create(ctx, f.question))
	f.answer = &model.Answer{Content: "M:N scheduler", QuestionID: f.question.ID, UserID: f.alice.ID}
	require.NoError(t, f.answers.Create(ctx, f.answer))

	f.svc = NewVoteService(f.votes, f.questions, f.answers, f.relay)
	return f
}

func (f *ledgerFixture) assertConsistent(t *testing.T, kind model.TargetType, id uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	c, err := f.votes.Counters(ctx, kind, id)
	require.NoError(t, err)
	ups, err := f.votes.CountByType(ctx, kind, id, model.VoteUp)
	require.NoError(t, err)
	downs, err := f.votes.CountByType(ctx, kind, id, model.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, int(ups), c.UpvoteCount, "upvote counter drifted")
	assert.Equal(t, int(downs), c.DownvoteCount, "downvote counter drifted")
}

func voteTypePtr(v model.VoteType) *model.VoteType { return &v }

func TestVoteService_ToggleAndSwitchScenario(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.relay.On("Emit", mock.Anything, mock.AnythingOfType("service.NotificationEvent")).Return()

	steps := []struct {
		name     string
		voteType model.VoteType
		want     VoteResult
		notifies bool
	}{
		{"first upvote", model.VoteUp, VoteResult{UpvoteCount: 1, VoteType: voteTypePtr(model.VoteUp)}, true},
		{"same again toggles off", model.VoteUp, VoteResult{}, false},
		{"downvote", model.VoteDown, VoteResult{DownvoteCount: 1, VoteType: voteTypePtr(model.VoteDown)}, true},
		{"switch to upvote", model.VoteUp, VoteResult{UpvoteCount: 1, VoteType: voteTypePtr(model.VoteUp)}, true},
		{"switch back to downvote", model.VoteDown, VoteResult{DownvoteCount: 1, VoteType: voteTypePtr(model.VoteDown)}, true},
		{"toggle off downvote", model.VoteDown, VoteResult{}, false},
	}

	expectedEmits := 0
	for _, step := range steps {
		res, err := f.svc.CastVote(ctx, f.bob, f.question.ID, model.TargetQuestion, step.voteType)
		require.NoError(t, err, step.name)
		assert.Equal(t, step.want, *res, step.name)
		if step.notifies {
			expectedEmits++
		}
		f.relay.AssertNumberOfCalls(t, "Emit", expectedEmits)
		f.assertConsistent(t, model.TargetQuestion, f.question.ID)
	}
}

func TestVoteService_NotificationContent(t *testing.T) {
	tests := []struct {
		name        string
		targetType  model.TargetType
		voteType    model.VoteType
		wantContent string
		wantLink    func(f *ledgerFixture) string
	}{
		{
			name:        "question upvote",
			targetType:  model.TargetQuestion,
			voteType:    model.VoteUp,
			wantContent: "Bob upvoted your question.",
			wantLink:    func(f *ledgerFixture) string { return "/questions/" + f.question.ID.String() },
		},
		{
			name:        "answer downvote",
			targetType:  model.TargetAnswer,
			voteType:    model.VoteDown,
			wantContent: "Bob downvoted your answer.",
			wantLink: func(f *ledgerFixture) string {
				return "/questions/" + f.question.ID.String() + "#answer-" + f.answer.ID.String()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t)
			targetID := f.question.ID
			if tt.targetType == model.TargetAnswer {
				targetID = f.answer.ID
			}

			f.relay.On("Emit", mock.Anything, mock.MatchedBy(func(ev NotificationEvent) bool {
				return ev.RecipientID == f.alice.ID &&
					ev.ActorID == f.bob.ID &&
					ev.Type == model.NotificationVote &&
					ev.Content == tt.wantContent &&
					ev.Link == tt.wantLink(f)
			})).Return().Once()

			_, err := f.svc.CastVote(context.Background(), f.bob, targetID, tt.targetType, tt.voteType)
			require.NoError(t, err)
			f.relay.AssertExpectations(t)
		})
	}
}

func TestVoteService_Rejections(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		voter      *model.User
		targetID   uuid.UUID
		targetType model.TargetType
		voteType   model.VoteType
		wantKind   apperr.Kind
		wantMsg    string
	}{
		{"bad target type", f.bob, f.question.ID, "comment", model.VoteUp, apperr.KindValidation, "Invalid targetType"},
		{"bad vote type", f.bob, f.question.ID, model.TargetQuestion, "meh", apperr.KindValidation, "Invalid voteType"},
		{"missing question", f.bob, uuid.New(), model.TargetQuestion, model.VoteUp, apperr.KindNotFound, "question not found"},
		{"missing answer", f.bob, uuid.New(), model.TargetAnswer, model.VoteUp, apperr.KindNotFound, "answer not found"},
		{"own question", f.alice, f.question.ID, model.TargetQuestion, model.VoteUp, apperr.KindForbidden, "Cannot vote on your own question"},
		{"own answer", f.alice, f.answer.ID, model.TargetAnswer, model.VoteDown, apperr.KindForbidden, "Cannot vote on your own answer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CastVote(ctx, tt.voter, tt.targetID, tt.targetType, tt.voteType)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}

	f.relay.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
	c, err := f.votes.Counters(ctx, model.TargetQuestion, f.question.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Counters{}, c)
}

func TestVoteService_ConcurrentVotesKeepInvariants(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.relay.On("Emit", mock.Anything, mock.Anything).Return()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vt := model.VoteUp
			if i%3 == 0 {
				vt = model.VoteDown
			}
			_, _ = f.svc.CastVote(ctx, f.bob, f.answer.ID, model.TargetAnswer, vt)
		}(i)
	}
	wg.Wait()

	var n int64
	require.NoError(t, f.db.Model(&model.Vote{}).Where("user_id = ? AND target_id = ?", f.bob.ID, f.answer.ID).Count(&n).Error)
	assert.LessOrEqual(t, n, int64(1))
	f.assertConsistent(t, model.TargetAnswer, f.answer.ID)
}

// racyVotes makes the next Create calls fail as if a concurrent request had
// inserted the same vote first.
type racyVotes struct {
	repository.VoteRepository
	failures *int
}

func (r *racyVotes) Create(ctx context.Context, vote *model.Vote) error {
	if *r.failures > 0 {
		*r.failures--
		return gorm.ErrDuplicatedKey
	}
	return r.VoteRepository.Create(ctx, vote)
}

func (r *racyVotes) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.VoteRepository) error) error {
	return r.VoteRepository.WithTransaction(ctx, func(ctx context.Context, tx repository.VoteRepository) error {
		return fn(ctx, &racyVotes{VoteRepository: tx, failures: r.failures})
	})
}

func TestVoteService_RaceRetry(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		wantErr  bool
	}{
		{"retry succeeds", 1, false},
		{"second race is a conflict", 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t)
			failures := tt.failures
			svc := NewVoteService(&racyVotes{VoteRepository: f.votes, failures: &failures}, f.questions, f.answers, f.relay)
			f.relay.On("Emit", mock.Anything, mock.Anything).Return()

			res, err := svc.CastVote(context.Background(), f.bob, f.question.ID, model.TargetQuestion, model.VoteUp)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
				f.relay.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 1, res.UpvoteCount)
			}
			f.assertConsistent(t, model.TargetQuestion, f.question.ID)
		})
	}
}

func TestVoteService_UserVotes(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.relay.On("Emit", mock.Anything, mock.Anything).Return()

	_, err := f.svc.CastVote(ctx, f.bob, f.question.ID, model.TargetQuestion, model.VoteDown)
	require.NoError(t, err)

	votes, err := f.svc.UserVotes(ctx, f.bob.ID, model.TargetQuestion, []uuid.UUID{f.question.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, model.VoteDown, votes[0].VoteType)

	_, err = f.svc.UserVotes(ctx, f.bob.ID, "poll", nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

// failingCounters fails every counter write, inside or outside a transaction.
type failingCounters struct {
	repository.VoteRepository
}

func (r *failingCounters) AdjustCounter(context.Context, model.TargetType, uuid.UUID, model.VoteType, int) error {
	return repository.ErrNoRowsAffected
}

func (r *failingCounters) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.VoteRepository) error) error {
	return r.VoteRepository.WithTransaction(ctx, func(ctx context.Context, tx repository.VoteRepository) error {
		return fn(ctx, &failingCounters{VoteRepository: tx})
	})
}

func TestVoteService_CounterFailureRollsBackVote(t *testing.T) {
	t.Run("new vote", func(t *testing.T) {
		f := newLedgerFixture(t)
		ctx := context.Background()
		svc := NewVoteService(&failingCounters{VoteRepository: f.votes}, f.questions, f.answers, f.relay)

		_, err := svc.CastVote(ctx, f.bob, f.question.ID, model.TargetQuestion, model.VoteUp)
		require.Error(t, err)
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

		_, err = f.votes.Find(ctx, f.bob.ID, f.question.ID, model.TargetQuestion)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		c, err := f.votes.Counters(ctx, model.TargetQuestion, f.question.ID)
		require.NoError(t, err)
		assert.Equal(t, model.Counters{}, c)
		f.relay.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
	})

	t.Run("switch", func(t *testing.T) {
		f := newLedgerFixture(t)
		ctx := context.Background()
		f.relay.On("Emit", mock.Anything, mock.Anything).Return().Once()
		_, err := f.svc.CastVote(ctx, f.bob, f.answer.ID, model.TargetAnswer, model.VoteUp)
		require.NoError(t, err)

		relay := &MockRelay{}
		svc := NewVoteService(&failingCounters{VoteRepository: f.votes}, f.questions, f.answers, relay)
		_, err = svc.CastVote(ctx, f.bob, f.answer.ID, model.TargetAnswer, model.VoteDown)
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

		v, err := f.votes.Find(ctx, f.bob.ID, f.answer.ID, model.TargetAnswer)
		require.NoError(t, err)
		assert.Equal(t, model.VoteUp, v.VoteType)
		c, err := f.votes.Counters(ctx, model.TargetAnswer, f.answer.ID)
		require.NoError(t, err)
		assert.Equal(t, model.Counters{UpvoteCount: 1}, c)
		relay.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
	})
}
