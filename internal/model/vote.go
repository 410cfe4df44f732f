package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TargetType is the kind of content a vote applies to.
type TargetType string

const (
	TargetQuestion TargetType = "question"
	TargetAnswer   TargetType = "answer"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	return t == TargetQuestion || t == TargetAnswer
}

// Table returns the table holding targets of this type.
func (t TargetType) Table() string {
	if t == TargetAnswer {
		return "answers"
	}
	return "questions"
}

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

// Valid reports whether v is a known vote type.
func (v VoteType) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// CounterColumn returns the denormalized counter column this vote type maintains.
func (v VoteType) CounterColumn() string {
	if v == VoteDown {
		return "downvote_count"
	}
	return "upvote_count"
}

// Vote records one user's vote on one target. The unique index enforces at
// most one vote per (user, target).
type Vote struct {
	ID         uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	UserID     uuid.UUID  `json:"userId" gorm:"type:char(36);not null;uniqueIndex:idx_votes_user_target"`
	TargetID   uuid.UUID  `json:"targetId" gorm:"type:char(36);not null;uniqueIndex:idx_votes_user_target;index"`
	TargetType TargetType `json:"targetType" gorm:"type:varchar(20);not null;uniqueIndex:idx_votes_user_target"`
	VoteType   VoteType   `json:"voteType" gorm:"type:varchar(10);not null"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// BeforeCreate sets UUID before creating the record.
func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// Counters is the denormalized vote tally of a target.
type Counters struct {
	UpvoteCount   int `json:"upvoteCount"`
	DownvoteCount int `json:"downvoteCount"`
}
