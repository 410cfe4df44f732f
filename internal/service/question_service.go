package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"peerhelp/internal/apperr"
	"peerhelp/internal/model"
	"peerhelp/internal/repository"
)

var errContentRequired = apperr.Validation("Content is required")

// QuestionService manages questions.
type QuestionService interface {
	List(ctx context.Context, authorID *uuid.UUID) ([]model.Question, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Question, error)
	Create(ctx context.Context, author *model.User, content string) (*model.Question, error)
	Update(ctx context.Context, principal *model.User, id uuid.UUID, content string) (*model.Question, error)
	Delete(ctx context.Context, principal *model.User, id uuid.UUID) error
}

type questionService struct {
	repo repository.QuestionRepository
}

// NewQuestionService creates a new question service.
func NewQuestionService(repo repository.QuestionRepository) QuestionService {
	return &questionService{repo: repo}
}

func (s *questionService) List(ctx context.Context, authorID *uuid.UUID) ([]model.Question, error) {
	questions, err := s.repo.List(ctx, authorID)
	if err != nil {
		return nil, apperr.Internal("Error fetching questions", err)
	}
	return questions, nil
}

func (s *questionService) Get(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q, err := s.repo.FindWithAnswers(ctx, id)
	if err != nil {
		return nil, questionLookupError(err)
	}
	return q, nil
}

func (s *questionService) Create(ctx context.Context, author *model.User, content string) (*model.Question, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errContentRequired
	}
	q := &model.Question{Content: content, UserID: author.ID}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, apperr.Internal("Error creating question", err)
	}
	q.Author = author
	return q, nil
}

func (s *questionService) Update(ctx context.Context, principal *model.User, id uuid.UUID, content string) (*model.Question, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errContentRequired
	}
	q, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, questionLookupError(err)
	}
	if err := authorize(principal, q.UserID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateContent(ctx, id, content); err != nil {
		return nil, apperr.Internal("Error updating question", err)
	}
	q.Content = content
	return q, nil
}

func (s *questionService) Delete(ctx context.Context, principal *model.User, id uuid.UUID) error {
	q, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return questionLookupError(err)
	}
	if err := authorize(principal, q.UserID); err != nil {
		return err
	}
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return questionLookupError(err)
	}
	return nil
}

func questionLookupError(err error) error {
	if repository.IsNotFound(err) {
		return apperr.NotFound("Question not found")
	}
	return apperr.Internal("Error fetching question", err)
}

// authorize allows the author of a resource and admins.
func authorize(principal *model.User, authorID uuid.UUID) error {
	if principal == nil {
		return apperr.Unauthenticated("Not authenticated")
	}
	if principal.ID != authorID && !principal.IsAdmin() {
		return apperr.ErrNotAuthor
	}
	return nil
}
