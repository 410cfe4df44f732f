package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"peerhelp/internal/model"
)

// QuestionRepository defines question persistence operations.
type QuestionRepository interface {
	Create(ctx context.Context, question *model.Question) error
	UpdateContent(ctx context.Context, id uuid.UUID, content string) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	FindWithAnswers(ctx context.Context, id uuid.UUID) (*model.Question, error)
	List(ctx context.Context, authorID *uuid.UUID) ([]model.Question, error)
	Search(ctx context.Context, keyword string, limit int) ([]model.Question, error)
	// DeleteCascade removes the question, its answers and every vote on them.
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository creates a new question repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) Create(ctx context.Context, question *model.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	return r.db.WithContext(ctx).Model(&model.Question{}).Where("id = ?", id).Update("content", content).Error
}

func (r *questionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	var question model.Question
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&question).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepository) FindWithAnswers(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	var question model.Question
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Answers.Author").
		Where("id = ?", id).
		First(&question).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepository) List(ctx context.Context, authorID *uuid.UUID) ([]model.Question, error) {
	q := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Answers.Author").
		Order("created_at DESC")
	if authorID != nil {
		q = q.Where("user_id = ?", *authorID)
	}
	var questions []model.Question
	if err := q.Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepository) Search(ctx context.Context, keyword string, limit int) ([]model.Question, error) {
	var questions []model.Question
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("LOWER(content) LIKE ? ESCAPE '!'", containsPattern(keyword)).
		Order("created_at DESC").
		Limit(limit).
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&model.Question{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		answerIDs := tx.Model(&model.Answer{}).Select("id").Where("question_id = ?", id)
		if err := tx.Where("target_type = ? AND target_id IN (?)", model.TargetAnswer, answerIDs).
			Delete(&model.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("target_type = ? AND target_id = ?", model.TargetQuestion, id).
			Delete(&model.Vote{}).Error; err != nil {
			return err
		}
		return tx.Where("question_id = ?", id).Delete(&model.Answer{}).Error
	})
}
