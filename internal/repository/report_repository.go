package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"peerhelp/internal/model"
)

// ReportRepository defines report persistence operations.
type ReportRepository interface {
	Create(ctx context.Context, report *model.Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Report, error)
	List(ctx context.Context, status model.ReportStatus) ([]model.Report, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ReportStatus) error
	// ResolveWithBan resolves the report and blocks the reported user in one
	// transaction. A nil expiry bans permanently.
	ResolveWithBan(ctx context.Context, id, userID uuid.UUID, expires *time.Time) error
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *model.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	var report model.Report
	err := r.db.WithContext(ctx).
		Preload("Question").
		Preload("ReportedUser").
		Preload("Reporter").
		Where("id = ?", id).
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// List returns reports newest first, filtered by status when set.
func (r *reportRepository) List(ctx context.Context, status model.ReportStatus) ([]model.Report, error) {
	q := r.db.WithContext(ctx).
		Preload("Question").
		Preload("ReportedUser").
		Preload("Reporter").
		Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reports []model.Report
	if err := q.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *reportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ReportStatus) error {
	return r.db.WithContext(ctx).Model(&model.Report{}).Where("id = ?", id).Update("status", status).Error
}

func (r *reportRepository) ResolveWithBan(ctx context.Context, id, userID uuid.UUID, expires *time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Report{}).Where("id = ?", id).
			Update("status", model.ReportResolved).Error; err != nil {
			return err
		}
		return tx.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"is_blocked":  true,
			"ban_expires": expires,
		}).Error
	})
}
