package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_BanState(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name       string
		user       User
		wantActive bool
		wantLapsed bool
	}{
		{"not blocked", User{}, false, false},
		{"permanent ban", User{IsBlocked: true}, true, false},
		{"ban running", User{IsBlocked: true, BanExpires: &future}, true, false},
		{"ban expired", User{IsBlocked: true, BanExpires: &past}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantActive, tt.user.BanActive(now))
			assert.Equal(t, tt.wantLapsed, tt.user.BanLapsed(now))
		})
	}
}

func TestStringList_ValueScan(t *testing.T) {
	v, err := StringList{"go", "math"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["go","math"]`, v)

	var l StringList
	require.NoError(t, l.Scan([]byte(`["a"]`)))
	assert.Equal(t, StringList{"a"}, l)

	require.NoError(t, l.Scan(nil))
	assert.Empty(t, l)

	assert.Error(t, l.Scan(42))
}

func TestReportStatus_Transitions(t *testing.T) {
	assert.True(t, ReportPending.CanTransitionTo(ReportReviewed))
	assert.True(t, ReportPending.CanTransitionTo(ReportResolved))
	assert.True(t, ReportReviewed.CanTransitionTo(ReportResolved))
	assert.False(t, ReportReviewed.CanTransitionTo(ReportPending))
	assert.False(t, ReportResolved.CanTransitionTo(ReportReviewed))
	assert.False(t, ReportPending.CanTransitionTo(ReportPending))
}

func TestNewChat_CanonicalOrder(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	c1 := NewChat(a, b)
	c2 := NewChat(b, a)

	assert.Equal(t, c1.MemberA, c2.MemberA)
	assert.Equal(t, c1.MemberB, c2.MemberB)
	assert.True(t, c1.MemberA.String() < c1.MemberB.String())
	assert.True(t, c1.HasMember(a))
	assert.Equal(t, b, c1.Other(a))
	assert.Equal(t, a, c1.Other(b))
}

func TestVoteType_CounterColumn(t *testing.T) {
	assert.Equal(t, "upvote_count", VoteUp.CounterColumn())
	assert.Equal(t, "downvote_count", VoteDown.CounterColumn())
	assert.False(t, VoteType("sideways").Valid())
	assert.False(t, TargetType("comment").Valid())
	assert.Equal(t, "answers", TargetAnswer.Table())
}
