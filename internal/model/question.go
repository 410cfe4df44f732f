package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Question is a post asking for help.
type Question struct {
	ID            uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Content       string    `json:"content" gorm:"type:text;not null"`
	UserID        uuid.UUID `json:"userId" gorm:"type:char(36);not null;index"`
	UpvoteCount   int       `json:"upvoteCount" gorm:"not null;default:0"`
	DownvoteCount int       `json:"downvoteCount" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// Relations
	Author  *User    `json:"author,omitempty" gorm:"foreignKey:UserID"`
	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:QuestionID"`
}

// BeforeCreate sets UUID before creating the record.
func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// Answer is a reply to a question.
type Answer struct {
	ID            uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Content       string    `json:"content" gorm:"type:text;not null"`
	QuestionID    uuid.UUID `json:"questionId" gorm:"type:char(36);not null;index"`
	UserID        uuid.UUID `json:"userId" gorm:"type:char(36);not null;index"`
	UpvoteCount   int       `json:"upvoteCount" gorm:"not null;default:0"`
	DownvoteCount int       `json:"downvoteCount" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// Relations
	Author *User `json:"author,omitempty" gorm:"foreignKey:UserID"`
}

// BeforeCreate sets UUID before creating the record.
func (a *Answer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
