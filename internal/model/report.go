package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportReason is why a question was reported.
type ReportReason string

const (
	ReasonSpam           ReportReason = "spam"
	ReasonHarassment     ReportReason = "harassment"
	ReasonOffensive      ReportReason = "offensive"
	ReasonMisinformation ReportReason = "misinformation"
	ReasonOther          ReportReason = "other"
)

// Valid reports whether r is a known reason.
func (r ReportReason) Valid() bool {
	switch r {
	case ReasonSpam, ReasonHarassment, ReasonOffensive, ReasonMisinformation, ReasonOther:
		return true
	}
	return false
}

// ReportStatus is the moderation state of a report.
type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportReviewed ReportStatus = "reviewed"
	ReportResolved ReportStatus = "resolved"
)

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	return s == ReportPending || s == ReportReviewed || s == ReportResolved
}

// CanTransitionTo reports whether a report may move from s to next.
// Resolved is terminal.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	switch s {
	case ReportPending:
		return next == ReportReviewed || next == ReportResolved
	case ReportReviewed:
		return next == ReportResolved
	default:
		return false
	}
}

// Report flags a question for moderation.
type Report struct {
	ID             uuid.UUID    `json:"id" gorm:"type:char(36);primaryKey"`
	QuestionID     uuid.UUID    `json:"questionId" gorm:"type:char(36);not null;index"`
	ReportedUserID uuid.UUID    `json:"reportedUserId" gorm:"type:char(36);not null;index"`
	ReporterID     uuid.UUID    `json:"reporterId" gorm:"type:char(36);not null;index"`
	Reason         ReportReason `json:"reason" gorm:"type:varchar(20);not null"`
	Comment        string       `json:"comment,omitempty" gorm:"type:text"`
	Status         ReportStatus `json:"status" gorm:"type:varchar(20);not null;default:pending;index"`
	CreatedAt      time.Time    `json:"createdAt" gorm:"index"`
	UpdatedAt      time.Time    `json:"updatedAt"`

	// Relations
	Question     *Question `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	ReportedUser *User     `json:"reportedUser,omitempty" gorm:"foreignKey:ReportedUserID"`
	Reporter     *User     `json:"reporter,omitempty" gorm:"foreignKey:ReporterID"`
}

// BeforeCreate sets UUID and initial status before creating the record.
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = ReportPending
	}
	return nil
}
