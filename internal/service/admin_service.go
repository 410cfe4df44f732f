package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"peerhelp/internal/apperr"
	"peerhelp/internal/cache"
	"peerhelp/internal/model"
	"peerhelp/internal/repository"
	"peerhelp/internal/storage"
)

var errUserNotFound = apperr.NotFound("User not found")

// AdminUserUpdate holds the fields an admin may change. Nil fields are kept.
type AdminUserUpdate struct {
	Firstname  *string
	Lastname   *string
	Email      *string
	Interests  []string
	IsApproved *bool
}

// AdminService holds moderator operations on users and content.
type AdminService interface {
	PendingUsers(ctx context.Context) ([]model.User, error)
	Approve(ctx context.Context, userID uuid.UUID) error
	Reject(ctx context.Context, userID uuid.UUID) error
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, upd AdminUserUpdate) (*model.User, error)
	Block(ctx context.Context, userID uuid.UUID) error
	Unblock(ctx context.Context, userID uuid.UUID) error
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
	DeleteAnswer(ctx context.Context, id uuid.UUID) error
}

type adminService struct {
	users     repository.UserRepository
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	files     storage.FileStore
	cache     *cache.Client
}

// NewAdminService creates a new admin service.
func NewAdminService(
	users repository.UserRepository,
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	files storage.FileStore,
	cache *cache.Client,
) AdminService {
	return &adminService{users: users, questions: questions, answers: answers, files: files, cache: cache}
}

func (s *adminService) PendingUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListPending(ctx)
	if err != nil {
		return nil, apperr.Internal("Error fetching pending users", err)
	}
	return users, nil
}

// Approve activates the account and deletes the ID card image.
func (s *adminService) Approve(ctx context.Context, userID uuid.UUID) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{
		"is_approved":   true,
		"id_card_image": model.IDCardRemoved,
	}); err != nil {
		return apperr.Internal("Error approving user", err)
	}
	invalidateUser(ctx, s.cache, user.ID)
	s.removeFile(ctx, user.IDCardImage)
	return nil
}

// Reject deletes the pending account together with its ID card image.
func (s *adminService) Reject(ctx context.Context, userID uuid.UUID) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return s.userWriteError(err, "Error rejecting user")
	}
	invalidateUser(ctx, s.cache, user.ID)
	s.removeFile(ctx, user.IDCardImage)
	return nil
}

func (s *adminService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Internal("Error fetching users", err)
	}
	return users, nil
}

func (s *adminService) UpdateUser(ctx context.Context, userID uuid.UUID, upd AdminUserUpdate) (*model.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.Firstname != nil && strings.TrimSpace(*upd.Firstname) != "" {
		user.Firstname = strings.TrimSpace(*upd.Firstname)
	}
	if upd.Lastname != nil && strings.TrimSpace(*upd.Lastname) != "" {
		user.Lastname = strings.TrimSpace(*upd.Lastname)
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		if email == "" {
			return nil, apperr.Validation("Email must not be empty")
		}
		// Emails are unique whatever the driver collation.
		existing, err := s.users.FindByEmail(ctx, email)
		if err == nil && existing.ID != user.ID {
			return nil, ErrUserAlreadyExists
		}
		if err != nil && !repository.IsNotFound(err) {
			return nil, apperr.Internal("Server error while updating user.", err)
		}
		user.Email = email
	}
	if upd.Interests != nil {
		user.Interests = model.StringList(upd.Interests)
	}
	if upd.IsApproved != nil {
		user.IsApproved = *upd.IsApproved
	}

	if err := s.users.Update(ctx, user); err != nil {
		if repository.IsDuplicate(err) {
			return nil, ErrUserAlreadyExists
		}
		return nil, apperr.Internal("Server error while updating user.", err)
	}
	invalidateUser(ctx, s.cache, user.ID)
	return user, nil
}

// Block bans a user permanently. Admins cannot be blocked.
func (s *adminService) Block(ctx context.Context, userID uuid.UUID) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return apperr.Forbidden("Cannot block an admin")
	}
	if err := s.users.SetBan(ctx, user.ID, true, nil); err != nil {
		return apperr.Internal("Error blocking user", err)
	}
	invalidateUser(ctx, s.cache, user.ID)
	return nil
}

func (s *adminService) Unblock(ctx context.Context, userID uuid.UUID) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.SetBan(ctx, user.ID, false, nil); err != nil {
		return apperr.Internal("Error unblocking user", err)
	}
	invalidateUser(ctx, s.cache, user.ID)
	return nil
}

func (s *adminService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return s.userWriteError(err, "Server error while deleting user.")
	}
	invalidateUser(ctx, s.cache, user.ID)
	s.removeFile(ctx, user.IDCardImage)
	s.removeFile(ctx, user.Picture)
	return nil
}

func (s *adminService) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	if err := s.questions.DeleteCascade(ctx, id); err != nil {
		return questionLookupError(err)
	}
	return nil
}

func (s *adminService) DeleteAnswer(ctx context.Context, id uuid.UUID) error {
	if err := s.answers.DeleteCascade(ctx, id); err != nil {
		return answerLookupError(err)
	}
	return nil
}

func (s *adminService) findUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errUserNotFound
		}
		return nil, apperr.Internal("Error fetching user", err)
	}
	return user, nil
}

func (s *adminService) userWriteError(err error, msg string) error {
	if repository.IsNotFound(err) {
		return errUserNotFound
	}
	return apperr.Internal(msg, err)
}

// removeFile deletes an uploaded file. Failures are only logged.
func (s *adminService) removeFile(ctx context.Context, publicPath string) {
	if publicPath == "" || publicPath == model.IDCardRemoved {
		return
	}
	if err := s.files.Remove(ctx, publicPath); err != nil {
		slog.WarnContext(ctx, "remove upload failed", "path", publicPath, "error", err)
	}
}
