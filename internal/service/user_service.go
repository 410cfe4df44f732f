package service

import (
	"context"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"

	"peerhelp/internal/apperr"
	"peerhelp/internal/cache"
	"peerhelp/internal/model"
	"peerhelp/internal/repository"
	"peerhelp/internal/storage"
)

const (
	userCacheTTL = 5 * time.Minute
	maxBioChars  = 200
)

// PublicUser is the listing view of a user.
type PublicUser struct {
	ID        uuid.UUID        `json:"id"`
	Firstname string           `json:"firstname"`
	Lastname  string           `json:"lastname"`
	Picture   string           `json:"picture"`
	Bio       string           `json:"bio"`
	Interests model.StringList `json:"interests"`
	CreatedAt time.Time        `json:"createdAt"`
}

// ToPublicUser strips account fields from u.
func ToPublicUser(u *model.User) PublicUser {
	return PublicUser{
		ID:        u.ID,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Picture:   u.Picture,
		Bio:       u.Bio,
		Interests: u.Interests,
		CreatedAt: u.CreatedAt,
	}
}

// ProfileInput holds profile changes. Empty or nil fields keep their value.
type ProfileInput struct {
	Firstname string
	Lastname  string
	Bio       *string
	Interests []string
}

// UserService exposes profile operations.
type UserService interface {
	List(ctx context.Context) ([]PublicUser, error)
	Get(ctx context.Context, id uuid.UUID) (*PublicUser, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput, picture *multipart.FileHeader) (*model.User, error)
}

type userService struct {
	repo  repository.UserRepository
	files storage.FileStore
	cache *cache.Client
}

// NewUserService builds a UserService with repository, file store and cache.
func NewUserService(repo repository.UserRepository, files storage.FileStore, cache *cache.Client) UserService {
	return &userService{repo: repo, files: files, cache: cache}
}

func (s *userService) List(ctx context.Context) ([]PublicUser, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal("Error fetching users", err)
	}
	out := make([]PublicUser, 0, len(users))
	for i := range users {
		out = append(out, ToPublicUser(&users[i]))
	}
	return out, nil
}

// Get returns the public profile of a user. The full record is cached under
// the key the session guard shares.
func (s *userService) Get(ctx context.Context, id uuid.UUID) (*PublicUser, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, cache.UserKey(id.String()), &cached) {
		pub := ToPublicUser(&cached)
		return &pub, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal("Error fetching user", err)
	}
	s.cache.SetJSON(ctx, cache.UserKey(id.String()), user, userCacheTTL)
	pub := ToPublicUser(user)
	return &pub, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput, picture *multipart.FileHeader) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal("Error updating profile", err)
	}

	if v := strings.TrimSpace(in.Firstname); v != "" {
		user.Firstname = v
	}
	if v := strings.TrimSpace(in.Lastname); v != "" {
		user.Lastname = v
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if len([]rune(bio)) > maxBioChars {
			return nil, apperr.Validation("Bio must be at most 200 characters")
		}
		user.Bio = bio
	}
	if in.Interests != nil {
		interests := make(model.StringList, 0, len(in.Interests))
		for _, it := range in.Interests {
			if it = strings.TrimSpace(it); it != "" {
				interests = append(interests, it)
			}
		}
		user.Interests = interests
	}

	oldPicture := ""
	if picture != nil {
		path, err := s.files.SaveImage(ctx, storage.KindPicture, picture)
		if err != nil {
			return nil, err
		}
		oldPicture, user.Picture = user.Picture, path
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if picture != nil {
			_ = s.files.Remove(ctx, user.Picture)
		}
		return nil, apperr.Internal("Error updating profile", err)
	}
	if oldPicture != "" {
		_ = s.files.Remove(ctx, oldPicture)
	}
	invalidateUser(ctx, s.cache, user.ID)
	return user, nil
}
