package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"peerhelp/internal/apperr"
	"peerhelp/internal/model"
	"peerhelp/internal/repository"
)

// VoteResult is the authoritative state of a target after a vote.
type VoteResult struct {
	UpvoteCount   int             `json:"upvoteCount"`
	DownvoteCount int             `json:"downvoteCount"`
	VoteType      *model.VoteType `json:"voteType"`
}

// VoteService is the vote ledger: it toggles and switches votes and keeps the
// denormalized counters of questions and answers in step.
type VoteService interface {
	CastVote(ctx context.Context, voter *model.User, targetID uuid.UUID, targetType model.TargetType, voteType model.VoteType) (*VoteResult, error)
	UserVotes(ctx context.Context, userID uuid.UUID, targetType model.TargetType, targetIDs []uuid.UUID) ([]model.Vote, error)
}

// errVoteRace marks a transition that lost a race against a concurrent vote
// by the same user.
var errVoteRace = errors.New("vote changed concurrently")

type voteService struct {
	voteRepo     repository.VoteRepository
	questionRepo repository.QuestionRepository
	answerRepo   repository.AnswerRepository
	relay        NotificationRelay
}

// NewVoteService creates a new vote service.
func NewVoteService(
	voteRepo repository.VoteRepository,
	questionRepo repository.QuestionRepository,
	answerRepo repository.AnswerRepository,
	relay NotificationRelay,
) VoteService {
	return &voteService{
		voteRepo:     voteRepo,
		questionRepo: questionRepo,
		answerRepo:   answerRepo,
		relay:        relay,
	}
}

// voteTarget is the content a vote applies to.
type voteTarget struct {
	id         uuid.UUID
	kind       model.TargetType
	authorID   uuid.UUID
	questionID uuid.UUID
}

func (t voteTarget) link() string {
	if t.kind == model.TargetAnswer {
		return fmt.Sprintf("/questions/%s#answer-%s", t.questionID, t.id)
	}
	return fmt.Sprintf("/questions/%s", t.id)
}

// transition is the outcome of one ledger step.
type transition struct {
	created  bool
	current  *model.VoteType
	counters model.Counters
}

func (s *voteService) CastVote(ctx context.Context, voter *model.User, targetID uuid.UUID, targetType model.TargetType, voteType model.VoteType) (*VoteResult, error) {
	if !targetType.Valid() {
		return nil, apperr.Validation("Invalid targetType")
	}
	if !voteType.Valid() {
		return nil, apperr.Validation("Invalid voteType")
	}

	target, err := s.loadTarget(ctx, targetID, targetType)
	if err != nil {
		return nil, err
	}
	if target.authorID == voter.ID {
		return nil, apperr.Forbidden(fmt.Sprintf("Cannot vote on your own %s", targetType))
	}

	var t *transition
	for attempt := 0; attempt < 2; attempt++ {
		t, err = s.apply(ctx, voter.ID, target, voteType)
		if err == nil || !errors.Is(err, errVoteRace) {
			break
		}
		slog.DebugContext(ctx, "vote race, retrying", "user", voter.ID, "target", targetID, "attempt", attempt+1)
	}
	if err != nil {
		if errors.Is(err, errVoteRace) {
			return nil, apperr.Conflict("Vote changed concurrently, please retry")
		}
		return nil, apperr.Internal("Failed to process vote", err)
	}

	if t.created {
		s.notify(ctx, voter, target, voteType)
	}

	return &VoteResult{
		UpvoteCount:   t.counters.UpvoteCount,
		DownvoteCount: t.counters.DownvoteCount,
		VoteType:      t.current,
	}, nil
}

// apply runs the three-way transition in one transaction. Any failure rolls
// back both the vote row and the counters.
func (s *voteService) apply(ctx context.Context, voterID uuid.UUID, target voteTarget, voteType model.VoteType) (*transition, error) {
	var out transition
	err := s.voteRepo.WithTransaction(ctx, func(ctx context.Context, repo repository.VoteRepository) error {
		existing, err := repo.Find(ctx, voterID, target.id, target.kind)
		switch {
		case repository.IsNotFound(err):
			// new vote
			if err := s.insert(ctx, repo, voterID, target, voteType); err != nil {
				return err
			}
			out.created = true
			out.current = &voteType

		case err != nil:
			return fmt.Errorf("find vote: %w", err)

		case existing.VoteType == voteType:
			// toggle off
			if err := s.remove(ctx, repo, existing); err != nil {
				return err
			}

		default:
			// switch direction
			if err := s.remove(ctx, repo, existing); err != nil {
				return err
			}
			if err := s.insert(ctx, repo, voterID, target, voteType); err != nil {
				return err
			}
			out.created = true
			out.current = &voteType
		}

		counters, err := repo.Counters(ctx, target.kind, target.id)
		if err != nil {
			return fmt.Errorf("read counters: %w", err)
		}
		out.counters = counters
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *voteService) insert(ctx context.Context, repo repository.VoteRepository, voterID uuid.UUID, target voteTarget, voteType model.VoteType) error {
	vote := &model.Vote{
		UserID:     voterID,
		TargetID:   target.id,
		TargetType: target.kind,
		VoteType:   voteType,
	}
	if err := repo.Create(ctx, vote); err != nil {
		if repository.IsDuplicate(err) {
			return errVoteRace
		}
		return fmt.Errorf("create vote: %w", err)
	}
	return repo.AdjustCounter(ctx, target.kind, target.id, voteType, 1)
}

func (s *voteService) remove(ctx context.Context, repo repository.VoteRepository, vote *model.Vote) error {
	if err := repo.Delete(ctx, vote.ID); err != nil {
		if repository.IsNotFound(err) {
			return errVoteRace
		}
		return fmt.Errorf("delete vote: %w", err)
	}
	return repo.AdjustCounter(ctx, vote.TargetType, vote.TargetID, vote.VoteType, -1)
}

func (s *voteService) loadTarget(ctx context.Context, id uuid.UUID, kind model.TargetType) (voteTarget, error) {
	if kind == model.TargetQuestion {
		q, err := s.questionRepo.FindByID(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return voteTarget{}, apperr.NotFound("question not found")
			}
			return voteTarget{}, apperr.Internal("Failed to process vote", err)
		}
		return voteTarget{id: q.ID, kind: kind, authorID: q.UserID, questionID: q.ID}, nil
	}

	a, err := s.answerRepo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return voteTarget{}, apperr.NotFound("answer not found")
		}
		return voteTarget{}, apperr.Internal("Failed to process vote", err)
	}
	return voteTarget{id: a.ID, kind: kind, authorID: a.UserID, questionID: a.QuestionID}, nil
}

func (s *voteService) notify(ctx context.Context, voter *model.User, target voteTarget, voteType model.VoteType) {
	qid := target.questionID
	ev := NotificationEvent{
		RecipientID: target.authorID,
		ActorID:     voter.ID,
		Type:        model.NotificationVote,
		QuestionID:  &qid,
		Content:     fmt.Sprintf("%s %sd your %s.", voter.Firstname, voteType, target.kind),
		Link:        target.link(),
	}
	if target.kind == model.TargetAnswer {
		aid := target.id
		ev.AnswerID = &aid
	}
	s.relay.Emit(ctx, ev)
}

func (s *voteService) UserVotes(ctx context.Context, userID uuid.UUID, targetType model.TargetType, targetIDs []uuid.UUID) ([]model.Vote, error) {
	if !targetType.Valid() {
		return nil, apperr.Validation("Invalid targetType")
	}
	votes, err := s.voteRepo.ListForTargets(ctx, userID, targetType, targetIDs)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch votes", err)
	}
	return votes, nil
}
