// Package seed loads demo accounts and content from a YAML fixture.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"peerhelp/internal/model"
	"peerhelp/internal/repository"
)

//go:embed fixture.yaml
var defaultFixture []byte

// UserYAML is an account in the fixture.
type UserYAML struct {
	Email     string   `yaml:"email"`
	Firstname string   `yaml:"firstname"`
	Lastname  string   `yaml:"lastname"`
	Password  string   `yaml:"password"`
	Role      string   `yaml:"role,omitempty"`
	Approved  bool     `yaml:"approved"`
	Bio       string   `yaml:"bio,omitempty"`
	Interests []string `yaml:"interests,omitempty"`
}

// AnswerYAML is an answer in the fixture, authored by email.
type AnswerYAML struct {
	Author  string `yaml:"author"`
	Content string `yaml:"content"`
}

// QuestionYAML is a question with its answers.
type QuestionYAML struct {
	Author  string       `yaml:"author"`
	Content string       `yaml:"content"`
	Answers []AnswerYAML `yaml:"answers,omitempty"`
}

// Fixture is the top-level YAML document.
type Fixture struct {
	Users     []UserYAML     `yaml:"users"`
	Questions []QuestionYAML `yaml:"questions"`
}

// Result counts what a run created.
type Result struct {
	Users     int `json:"users"`
	Skipped   int `json:"skipped"`
	Questions int `json:"questions"`
	Answers   int `json:"answers"`
}

// Default returns the built-in demo fixture.
func Default() (*Fixture, error) {
	return Parse(defaultFixture)
}

// LoadFile reads a fixture from disk.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML fixture.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed fixture: %w", err)
	}
	for i, u := range f.Users {
		if u.Email == "" || u.Password == "" || u.Firstname == "" {
			return nil, fmt.Errorf("seed user %d: email, password and firstname are required", i)
		}
	}
	return &f, nil
}

// Seeder writes fixtures through the repositories.
type Seeder struct {
	users     repository.UserRepository
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
}

// NewSeeder creates a new seeder.
func NewSeeder(users repository.UserRepository, questions repository.QuestionRepository, answers repository.AnswerRepository) *Seeder {
	return &Seeder{users: users, questions: questions, answers: answers}
}

// Apply creates the fixture's accounts that do not exist yet. Questions are
// only created for authors added in this run, so applying twice is a no-op.
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (Result, error) {
	var res Result
	ids := make(map[string]*model.User, len(f.Users))
	fresh := make(map[string]bool, len(f.Users))

	for _, u := range f.Users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		existing, err := s.users.FindByEmail(ctx, email)
		if err == nil {
			ids[email] = existing
			res.Skipped++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return res, fmt.Errorf("look up %s: %w", email, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return res, fmt.Errorf("hash password for %s: %w", email, err)
		}
		user := &model.User{
			Firstname:    u.Firstname,
			Lastname:     u.Lastname,
			Email:        email,
			PasswordHash: string(hash),
			Role:         model.Role(u.Role),
			IsApproved:   u.Approved,
			Bio:          u.Bio,
			Interests:    model.StringList(u.Interests),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return res, fmt.Errorf("create %s: %w", email, err)
		}
		ids[email] = user
		fresh[email] = true
		res.Users++
		slog.Debug("seeded user", "email", email, "role", user.Role)
	}

	for _, q := range f.Questions {
		author := strings.ToLower(q.Author)
		if !fresh[author] {
			continue
		}
		question := &model.Question{Content: q.Content, UserID: ids[author].ID}
		if err := s.questions.Create(ctx, question); err != nil {
			return res, fmt.Errorf("create question: %w", err)
		}
		res.Questions++

		for _, a := range q.Answers {
			by, ok := ids[strings.ToLower(a.Author)]
			if !ok {
				return res, fmt.Errorf("answer author %s is not in the fixture", a.Author)
			}
			answer := &model.Answer{Content: a.Content, QuestionID: question.ID, UserID: by.ID}
			if err := s.answers.Create(ctx, answer); err != nil {
				return res, fmt.Errorf("create answer: %w", err)
			}
			res.Answers++
		}
	}

	slog.Info("seed applied", "users", res.Users, "skipped", res.Skipped, "questions", res.Questions, "answers", res.Answers)
	return res, nil
}
