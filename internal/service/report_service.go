package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"peerhelp/internal/apperr"
	"peerhelp/internal/cache"
	"peerhelp/internal/model"
	"peerhelp/internal/repository"
)

// Moderation actions applied together with a report update.
const (
	ReportActionBan     = "ban"
	ReportActionDismiss = "dismiss"
)

const maxReportComment = 1000

// ReportUpdate is an admin decision on a report.
type ReportUpdate struct {
	Status *model.ReportStatus
	Action string
	// BanDays is the ban length for the ban action. Nil or zero bans permanently.
	BanDays *int
}

// ReportService handles user reports and their moderation.
type ReportService interface {
	Create(ctx context.Context, reporter *model.User, questionID uuid.UUID, reason model.ReportReason, comment string) (*model.Report, error)
	List(ctx context.Context, status model.ReportStatus) ([]model.Report, error)
	Update(ctx context.Context, id uuid.UUID, upd ReportUpdate) (*model.Report, error)
}

type reportService struct {
	repo         repository.ReportRepository
	questionRepo repository.QuestionRepository
	cache        *cache.Client
	now          func() time.Time
}

// NewReportService creates a new report service.
func NewReportService(repo repository.ReportRepository, questionRepo repository.QuestionRepository, cache *cache.Client) ReportService {
	return &reportService{repo: repo, questionRepo: questionRepo, cache: cache, now: time.Now}
}

func (s *reportService) Create(ctx context.Context, reporter *model.User, questionID uuid.UUID, reason model.ReportReason, comment string) (*model.Report, error) {
	if !reason.Valid() {
		return nil, apperr.Validation("Invalid reason")
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > maxReportComment {
		return nil, apperr.Validation("Comment is too long")
	}
	q, err := s.questionRepo.FindByID(ctx, questionID)
	if err != nil {
		return nil, questionLookupError(err)
	}

	report := &model.Report{
		QuestionID:     q.ID,
		ReportedUserID: q.UserID,
		ReporterID:     reporter.ID,
		Reason:         reason,
		Comment:        comment,
		Status:         model.ReportPending,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, apperr.Internal("Error submitting report", err)
	}
	return report, nil
}

func (s *reportService) List(ctx context.Context, status model.ReportStatus) ([]model.Report, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("Invalid status")
	}
	reports, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, apperr.Internal("Error fetching reports", err)
	}
	return reports, nil
}

func (s *reportService) Update(ctx context.Context, id uuid.UUID, upd ReportUpdate) (*model.Report, error) {
	next, err := upd.target()
	if err != nil {
		return nil, err
	}

	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("Report not found")
		}
		return nil, apperr.Internal("Error updating report", err)
	}
	if !report.Status.CanTransitionTo(next) {
		return nil, apperr.Validation(fmt.Sprintf("Cannot change report status from %s to %s", report.Status, next))
	}

	if upd.Action == ReportActionBan {
		if err := s.ban(ctx, report, upd.BanDays); err != nil {
			return nil, err
		}
	} else if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, apperr.Internal("Error updating report", err)
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("Error updating report", err)
	}
	return updated, nil
}

func (s *reportService) ban(ctx context.Context, report *model.Report, days *int) error {
	user := report.ReportedUser
	if user == nil {
		return apperr.NotFound("User not found")
	}
	if user.IsAdmin() {
		return apperr.Forbidden("Cannot ban an admin")
	}

	var expires *time.Time
	if days != nil && *days > 0 {
		t := s.now().Add(time.Duration(*days) * 24 * time.Hour)
		expires = &t
	}
	if err := s.repo.ResolveWithBan(ctx, report.ID, user.ID, expires); err != nil {
		return apperr.Internal("Error updating report", err)
	}
	invalidateUser(ctx, s.cache, user.ID)
	slog.InfoContext(ctx, "user banned", "user", user.ID, "report", report.ID, "expires", expires)
	return nil
}

// target resolves the status an update moves the report to.
func (u ReportUpdate) target() (model.ReportStatus, error) {
	switch u.Action {
	case "":
		if u.Status == nil {
			return "", apperr.Validation("status or action is required")
		}
		if !u.Status.Valid() {
			return "", apperr.Validation("Invalid status")
		}
		return *u.Status, nil
	case ReportActionBan, ReportActionDismiss:
		if u.Status != nil && *u.Status != model.ReportResolved {
			return "", apperr.Validation(fmt.Sprintf("Action %s resolves the report", u.Action))
		}
		if u.Action == ReportActionBan && u.BanDays != nil && *u.BanDays < 0 {
			return "", apperr.Validation("banDuration must not be negative")
		}
		return model.ReportResolved, nil
	default:
		return "", apperr.Validation("Invalid action")
	}
}
