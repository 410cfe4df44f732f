package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"peerhelp/internal/model"
	"peerhelp/internal/repository"
	"peerhelp/internal/testutil"
)

func seedUser(t *testing.T, db *gorm.DB, first string) *model.User {
	t.Helper()
	u := &model.User{Firstname: first, Lastname: "Test", Email: first + "@example.com", PasswordHash: "x", IsApproved: true}
	require.NoError(t, repository.NewUserRepository(db).Create(context.Background(), u))
	return u
}

func seedQuestion(t *testing.T, db *gorm.DB, author uuid.UUID, content string) *model.Question {
	t.Helper()
	q := &model.Question{Content: content, UserID: author}
	require.NoError(t, repository.NewQuestionRepository(db).Create(context.Background(), q))
	return q
}

func TestVoteRepository_UniqueVotePerTarget(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()
	author := seedUser(t, db, "alice")
	voter := seedUser(t, db, "bob")
	q := seedQuestion(t, db, author.ID, "what is a monad?")
	repo := repository.NewVoteRepository(db)

	require.NoError(t, repo.Create(ctx, &model.Vote{UserID: voter.ID, TargetID: q.ID, TargetType: model.TargetQuestion, VoteType: model.VoteUp}))
	err := repo.Create(ctx, &model.Vote{UserID: voter.ID, TargetID: q.ID, TargetType: model.TargetQuestion, VoteType: model.VoteDown})

	require.Error(t, err)
	assert.True(t, repository.IsDuplicate(err))
}

func TestVoteRepository_AdjustCounter(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()
	author := seedUser(t, db, "alice")
	q := seedQuestion(t, db, author.ID, "q")
	repo := repository.NewVoteRepository(db)

	require.NoError(t, repo.AdjustCounter(ctx, model.TargetQuestion, q.ID, model.VoteUp, 1))
	require.NoError(t, repo.AdjustCounter(ctx, model.TargetQuestion, q.ID, model.VoteDown, 1))
	require.NoError(t, repo.AdjustCounter(ctx, model.TargetQuestion, q.ID, model.VoteUp, 1))

	c, err := repo.Counters(ctx, model.TargetQuestion, q.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(model.Counters{UpvoteCount: 2, DownvoteCount: 1}, c); diff != "" {
		t.Errorf("counters mismatch (-want +got):\n%s", diff)
	}

	// never negative
	require.NoError(t, repo.AdjustCounter(ctx, model.TargetQuestion, q.ID, model.VoteDown, -1))
	err = repo.AdjustCounter(ctx, model.TargetQuestion, q.ID, model.VoteDown, -1)
	assert.ErrorIs(t, err, repository.ErrNoRowsAffected)

	// missing target
	err = repo.AdjustCounter(ctx, model.TargetAnswer, uuid.New(), model.VoteUp, 1)
	assert.ErrorIs(t, err, repository.ErrNoRowsAffected)
}

func TestVoteRepository_TransactionRollsBack(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()
	author := seedUser(t, db, "alice")
	voter := seedUser(t, db, "bob")
	q := seedQuestion(t, db, author.ID, "q")
	repo := repository.NewVoteRepository(db)

	boom := errors.New("boom")
	err := repo.WithTransaction(ctx, func(ctx context.Context, tx repository.VoteRepository) error {
		if err := tx.Create(ctx, &model.Vote{UserID: voter.ID, TargetID: q.ID, TargetType: model.TargetQuestion, VoteType: model.VoteUp}); err != nil {
			return err
		}
		if err := tx.AdjustCounter(ctx, model.TargetQuestion, q.ID, model.VoteUp, 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.Find(ctx, voter.ID, q.ID, model.TargetQuestion)
	assert.True(t, repository.IsNotFound(err))
	c, err := repo.Counters(ctx, model.TargetQuestion, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, c.UpvoteCount)
}

func TestVoteRepository_ListForTargets(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()
	author := seedUser(t, db, "alice")
	voter := seedUser(t, db, "bob")
	q1 := seedQuestion(t, db, author.ID, "one")
	q2 := seedQuestion(t, db, author.ID, "two")
	q3 := seedQuestion(t, db, author.ID, "three")
	repo := repository.NewVoteRepository(db)

	require.NoError(t, repo.Create(ctx, &model.Vote{UserID: voter.ID, TargetID: q1.ID, TargetType: model.TargetQuestion, VoteType: model.VoteUp}))
	require.NoError(t, repo.Create(ctx, &model.Vote{UserID: voter.ID, TargetID: q3.ID, TargetType: model.TargetQuestion, VoteType: model.VoteDown}))

	votes, err := repo.ListForTargets(ctx, voter.ID, model.TargetQuestion, []uuid.UUID{q1.ID, q2.ID})
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, q1.ID, votes[0].TargetID)

	empty, err := repo.ListForTargets(ctx, voter.ID, model.TargetQuestion, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestQuestionRepository_DeleteCascade(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()
	author := seedUser(t, db, "alice")
	voter := seedUser(t, db, "bob")
	q := seedQuestion(t, db, author.ID, "q")
	other := seedQuestion(t, db, author.ID, "keep me")

	answers := repository.NewAnswerRepository(db)
	a := &model.Answer{Content: "a", QuestionID: q.ID, UserID: voter.ID}
	require.NoError(t, answers.Create(ctx, a))

	votes := repository.NewVoteRepository(db)
	require.NoError(t, votes.Create(ctx, &model.Vote{UserID: voter.ID, TargetID: q.ID, TargetType: model.TargetQuestion, VoteType: model.VoteUp}))
	require.NoError(t, votes.Create(ctx, &model.Vote{UserID: author.ID, TargetID: a.ID, TargetType: model.TargetAnswer, VoteType: model.VoteUp}))
	require.NoError(t, votes.Create(ctx, &model.Vote{UserID: voter.ID, TargetID: other.ID, TargetType: model.TargetQuestion, VoteType: model.VoteUp}))

	questions := repository.NewQuestionRepository(db)
	require.NoError(t, questions.DeleteCascade(ctx, q.ID))

	var remaining int64
	require.NoError(t, db.Model(&model.Vote{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
	_, err := answers.FindByID(ctx, a.ID)
	assert.True(t, repository.IsNotFound(err))

	assert.True(t, repository.IsNotFound(questions.DeleteCascade(ctx, q.ID)))
}

func TestQuestionRepository_ListAndSearch(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	seedQuestion(t, db, alice.ID, "How do Go channels work?")
	seedQuestion(t, db, bob.ID, "100% confused by pointers")

	repo := repository.NewQuestionRepository(db)

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := repo.List(ctx, &alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Author)
	assert.Equal(t, "alice", mine[0].Author.Firstname)

	found, err := repo.Search(ctx, "CHANNELS", 10)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	literal, err := repo.Search(ctx, "100%", 10)
	require.NoError(t, err)
	assert.Len(t, literal, 1)

	none, err := repo.Search(ctx, "0%c", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestChatRepository_FindByMembersIsOrderInsensitive(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()
	a := seedUser(t, db, "alice")
	b := seedUser(t, db, "bob")
	repo := repository.NewChatRepository(db)

	chat := model.NewChat(b.ID, a.ID)
	require.NoError(t, repo.Create(ctx, chat))

	found, err := repo.FindByMembers(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, found.ID)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, found.Members)

	err = repo.Create(ctx, model.NewChat(a.ID, b.ID))
	assert.True(t, repository.IsDuplicate(err))

	chats, err := repo.ListForUser(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestNotificationRepository_MarkReadByChat(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()
	repo := repository.NewNotificationRepository(db)
	recipient, other := uuid.New(), uuid.New()
	chat1, chat2 := uuid.New(), uuid.New()

	require.NoError(t, repo.CreateBatch(ctx, []*model.Notification{
		{RecipientID: recipient, Type: model.NotificationMessage, ChatID: &chat1, Content: "m1"},
		{RecipientID: recipient, Type: model.NotificationMessage, ChatID: &chat1, Content: "m2"},
		{RecipientID: recipient, Type: model.NotificationMessage, ChatID: &chat2, Content: "m3"},
		{RecipientID: other, Type: model.NotificationMessage, ChatID: &chat1, Content: "m4"},
		{RecipientID: recipient, Type: model.NotificationVote, Content: "v"},
	}))

	n, err := repo.MarkReadByChat(ctx, recipient, chat1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.MarkReadByChat(ctx, recipient, chat1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	unread, err := repo.CountUnread(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	otherUnread, err := repo.CountUnread(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), otherUnread)

	n, err = repo.MarkAllRead(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestNotificationRepository_ListNewestFirst(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()
	repo := repository.NewNotificationRepository(db)
	recipient := uuid.New()

	first := &model.Notification{RecipientID: recipient, Type: model.NotificationVote, Content: "old"}
	first.CreatedAt = time.Now().Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, &model.Notification{RecipientID: recipient, Type: model.NotificationVote, Content: "new"}))

	list, err := repo.ListForRecipient(ctx, recipient, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Content)

	n, err := repo.MarkRead(ctx, uuid.New(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "only the recipient may mark a notification read")
}

func TestReportRepository_ResolveWithBan(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()
	author := seedUser(t, db, "alice")
	reporter := seedUser(t, db, "bob")
	q := seedQuestion(t, db, author.ID, "spam spam")

	reports := repository.NewReportRepository(db)
	r := &model.Report{QuestionID: q.ID, ReportedUserID: author.ID, ReporterID: reporter.ID, Reason: model.ReasonSpam}
	require.NoError(t, reports.Create(ctx, r))
	assert.Equal(t, model.ReportPending, r.Status)

	expires := time.Now().Add(7 * 24 * time.Hour)
	require.NoError(t, reports.ResolveWithBan(ctx, r.ID, author.ID, &expires))

	got, err := reports.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportResolved, got.Status)
	require.NotNil(t, got.ReportedUser)
	assert.True(t, got.ReportedUser.IsBlocked)
	require.NotNil(t, got.ReportedUser.BanExpires)
	assert.WithinDuration(t, expires, *got.ReportedUser.BanExpires, time.Second)

	pending, err := reports.List(ctx, model.ReportPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestUserRepository_SearchAndPending(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()
	users := repository.NewUserRepository(db)

	require.NoError(t, users.Create(ctx, &model.User{Firstname: "Carol", Lastname: "Ng", Email: "c@x.io", PasswordHash: "x", Interests: model.StringList{"robotics"}}))
	seedUser(t, db, "dave")

	pending, err := users.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Carol", pending[0].Firstname)

	found, err := users.Search(ctx, "robot", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, model.StringList{"robotics"}, found[0].Interests)
}
