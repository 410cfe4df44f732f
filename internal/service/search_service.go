package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"peerhelp/internal/apperr"
	"peerhelp/internal/model"
	"peerhelp/internal/repository"
)

const searchLimit = 10

// SearchResult groups matches by kind.
type SearchResult struct {
	Questions []model.Question `json:"questions"`
	Answers   []model.Answer   `json:"answers"`
	Users     []PublicUser     `json:"users"`
}

// SearchService runs keyword search across questions, answers and users.
type SearchService interface {
	Search(ctx context.Context, keyword string) (*SearchResult, error)
}

type searchService struct {
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	users     repository.UserRepository
}

// NewSearchService creates a new search service.
func NewSearchService(questions repository.QuestionRepository, answers repository.AnswerRepository, users repository.UserRepository) SearchService {
	return &searchService{questions: questions, answers: answers, users: users}
}

func (s *searchService) Search(ctx context.Context, keyword string) (*SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, apperr.Validation("Keyword is required")
	}

	var (
		questions []model.Question
		answers   []model.Answer
		users     []model.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		questions, err = s.questions.Search(gctx, keyword, searchLimit)
		return err
	})
	g.Go(func() error {
		var err error
		answers, err = s.answers.Search(gctx, keyword, searchLimit)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.users.Search(gctx, keyword, searchLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal("Server error during search", err)
	}

	res := &SearchResult{
		Questions: nonNil(questions),
		Answers:   nonNil(answers),
		Users:     make([]PublicUser, 0, len(users)),
	}
	for i := range users {
		res.Users = append(res.Users, ToPublicUser(&users[i]))
	}
	return res, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
