package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"peerhelp/internal/model"
)

// VoteRepository persists votes and maintains the denormalized counters on
// their targets.
type VoteRepository interface {
	Find(ctx context.Context, userID, targetID uuid.UUID, targetType model.TargetType) (*model.Vote, error)
	Create(ctx context.Context, vote *model.Vote) error
	Delete(ctx context.Context, id uuid.UUID) error
	// AdjustCounter atomically adds delta to the target's counter for voteType.
	// It fails with ErrNoRowsAffected when the target is gone or the counter
	// would drop below zero.
	AdjustCounter(ctx context.Context, targetType model.TargetType, targetID uuid.UUID, voteType model.VoteType, delta int) error
	Counters(ctx context.Context, targetType model.TargetType, targetID uuid.UUID) (model.Counters, error)
	ListForTargets(ctx context.Context, userID uuid.UUID, targetType model.TargetType, targetIDs []uuid.UUID) ([]model.Vote, error)
	CountByType(ctx context.Context, targetType model.TargetType, targetID uuid.UUID, voteType model.VoteType) (int64, error)
	// Transaction methods
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo VoteRepository) error) error
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a new vote repository.
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) Find(ctx context.Context, userID, targetID uuid.UUID, targetType model.TargetType) (*model.Vote, error) {
	var vote model.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_id = ? AND target_type = ?", userID, targetID, targetType).
		First(&vote).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *voteRepository) Create(ctx context.Context, vote *model.Vote) error {
	return r.db.WithContext(ctx).Create(vote).Error
}

func (r *voteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Vote{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *voteRepository) AdjustCounter(ctx context.Context, targetType model.TargetType, targetID uuid.UUID, voteType model.VoteType, delta int) error {
	col := voteType.CounterColumn()
	res := r.db.WithContext(ctx).
		Table(targetType.Table()).
		Where("id = ?", targetID).
		Where(col+" + ? >= 0", delta).
		UpdateColumn(col, gorm.Expr(col+" + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("adjust %s on %s %s: %w", col, targetType, targetID, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("adjust %s on %s %s: %w", col, targetType, targetID, ErrNoRowsAffected)
	}
	return nil
}

func (r *voteRepository) Counters(ctx context.Context, targetType model.TargetType, targetID uuid.UUID) (model.Counters, error) {
	var c model.Counters
	err := r.db.WithContext(ctx).
		Table(targetType.Table()).
		Select("upvote_count, downvote_count").
		Where("id = ?", targetID).
		Take(&c).Error
	return c, err
}

func (r *voteRepository) ListForTargets(ctx context.Context, userID uuid.UUID, targetType model.TargetType, targetIDs []uuid.UUID) ([]model.Vote, error) {
	if len(targetIDs) == 0 {
		return []model.Vote{}, nil
	}
	var votes []model.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id IN ?", userID, targetType, targetIDs).
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *voteRepository) CountByType(ctx context.Context, targetType model.TargetType, targetID uuid.UUID, voteType model.VoteType) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Vote{}).
		Where("target_type = ? AND target_id = ? AND vote_type = ?", targetType, targetID, voteType).
		Count(&n).Error
	return n, err
}

// WithTransaction executes a function within a database transaction.
func (r *voteRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo VoteRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &voteRepository{db: tx}
		return fn(ctx, txRepo)
	})
}
