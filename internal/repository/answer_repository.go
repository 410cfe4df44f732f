package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"peerhelp/internal/model"
)

// AnswerRepository defines answer persistence operations.
type AnswerRepository interface {
	Create(ctx context.Context, answer *model.Answer) error
	UpdateContent(ctx context.Context, id uuid.UUID, content string) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Answer, error)
	List(ctx context.Context, authorID *uuid.UUID) ([]model.Answer, error)
	Search(ctx context.Context, keyword string, limit int) ([]model.Answer, error)
	// DeleteCascade removes the answer and every vote on it.
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository creates a new answer repository.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) Create(ctx context.Context, answer *model.Answer) error {
	return r.db.WithContext(ctx).Create(answer).Error
}

func (r *answerRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	return r.db.WithContext(ctx).Model(&model.Answer{}).Where("id = ?", id).Update("content", content).Error
}

func (r *answerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Answer, error) {
	var answer model.Answer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *answerRepository) List(ctx context.Context, authorID *uuid.UUID) ([]model.Answer, error) {
	q := r.db.WithContext(ctx).Preload("Author").Order("created_at DESC")
	if authorID != nil {
		q = q.Where("user_id = ?", *authorID)
	}
	var answers []model.Answer
	if err := q.Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *answerRepository) Search(ctx context.Context, keyword string, limit int) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("LOWER(content) LIKE ? ESCAPE '!'", containsPattern(keyword)).
		Order("created_at DESC").
		Limit(limit).
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *answerRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&model.Answer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("target_type = ? AND target_id = ?", model.TargetAnswer, id).Delete(&model.Vote{}).Error
	})
}
