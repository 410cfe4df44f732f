package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"peerhelp/internal/apperr"
	"peerhelp/internal/model"
	"peerhelp/internal/repository"
)

// AnswerService manages answers and tells question authors about new ones.
type AnswerService interface {
	List(ctx context.Context, authorID *uuid.UUID) ([]model.Answer, error)
	Create(ctx context.Context, author *model.User, questionID uuid.UUID, content string) (*model.Answer, error)
	Update(ctx context.Context, principal *model.User, id uuid.UUID, content string) (*model.Answer, error)
	Delete(ctx context.Context, principal *model.User, id uuid.UUID) error
}

type answerService struct {
	repo         repository.AnswerRepository
	questionRepo repository.QuestionRepository
	relay        NotificationRelay
}

// NewAnswerService creates a new answer service.
func NewAnswerService(repo repository.AnswerRepository, questionRepo repository.QuestionRepository, relay NotificationRelay) AnswerService {
	return &answerService{repo: repo, questionRepo: questionRepo, relay: relay}
}

func (s *answerService) List(ctx context.Context, authorID *uuid.UUID) ([]model.Answer, error) {
	answers, err := s.repo.List(ctx, authorID)
	if err != nil {
		return nil, apperr.Internal("Error fetching answers", err)
	}
	return answers, nil
}

func (s *answerService) Create(ctx context.Context, author *model.User, questionID uuid.UUID, content string) (*model.Answer, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errContentRequired
	}
	if questionID == uuid.Nil {
		return nil, apperr.Validation("Question ID is required")
	}
	q, err := s.questionRepo.FindByID(ctx, questionID)
	if err != nil {
		return nil, questionLookupError(err)
	}

	a := &model.Answer{Content: content, QuestionID: q.ID, UserID: author.ID}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, apperr.Internal("Error creating answer", err)
	}
	a.Author = author

	if q.UserID != author.ID {
		qid, aid := q.ID, a.ID
		s.relay.Emit(ctx, NotificationEvent{
			RecipientID: q.UserID,
			ActorID:     author.ID,
			Type:        model.NotificationNewAnswer,
			QuestionID:  &qid,
			AnswerID:    &aid,
			Content:     fmt.Sprintf("%s answered your question.", author.Firstname),
			Link:        fmt.Sprintf("/questions/%s#answer-%s", qid, aid),
		})
	}
	return a, nil
}

func (s *answerService) Update(ctx context.Context, principal *model.User, id uuid.UUID, content string) (*model.Answer, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errContentRequired
	}
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, answerLookupError(err)
	}
	if err := authorize(principal, a.UserID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateContent(ctx, id, content); err != nil {
		return nil, apperr.Internal("Error updating answer", err)
	}
	a.Content = content
	return a, nil
}

func (s *answerService) Delete(ctx context.Context, principal *model.User, id uuid.UUID) error {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return answerLookupError(err)
	}
	if err := authorize(principal, a.UserID); err != nil {
		return err
	}
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return answerLookupError(err)
	}
	return nil
}

func answerLookupError(err error) error {
	if repository.IsNotFound(err) {
		return apperr.NotFound("Answer not found")
	}
	return apperr.Internal("Error fetching answer", err)
}
