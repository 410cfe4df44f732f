package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType identifies the event a notification reports.
type NotificationType string

const (
	NotificationNewAnswer NotificationType = "new_answer"
	NotificationVote      NotificationType = "vote"
	NotificationMessage   NotificationType = "message"
)

// Notification is a durable feed entry for one recipient.
// It is created only by server-side actions; only the recipient flips Read.
type Notification struct {
	ID          uuid.UUID        `json:"id" gorm:"type:char(36);primaryKey"`
	RecipientID uuid.UUID        `json:"userId" gorm:"type:char(36);not null;index:idx_notifications_recipient_read"`
	ActorID     *uuid.UUID       `json:"actorId,omitempty" gorm:"type:char(36)"`
	Type        NotificationType `json:"type" gorm:"type:varchar(20);not null"`
	QuestionID  *uuid.UUID       `json:"questionId,omitempty" gorm:"type:char(36)"`
	AnswerID    *uuid.UUID       `json:"answerId,omitempty" gorm:"type:char(36)"`
	ChatID      *uuid.UUID       `json:"chatId,omitempty" gorm:"type:char(36);index"`
	Content     string           `json:"content" gorm:"type:text;not null"`
	Link        string           `json:"link,omitempty" gorm:"size:255"`
	Read        bool             `json:"read" gorm:"not null;default:false;index:idx_notifications_recipient_read"`
	CreatedAt   time.Time        `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
