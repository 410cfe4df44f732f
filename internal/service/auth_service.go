package service

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"peerhelp/internal/apperr"
	"peerhelp/internal/auth"
	"peerhelp/internal/cache"
	"peerhelp/internal/mail"
	"peerhelp/internal/model"
	"peerhelp/internal/repository"
	"peerhelp/internal/storage"
)

const (
	bcryptCost       = 10
	principalTTL     = 30 * time.Second
	minPasswordChars = 6
)

var (
	// ErrUserAlreadyExists is returned when trying to register an existing email.
	ErrUserAlreadyExists = apperr.New(apperr.KindConflict, "USER_ALREADY_EXISTS", "Email already registered.")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = apperr.New(apperr.KindUnauthenticated, "INVALID_REFRESH_TOKEN", "invalid or expired refresh token")
	// ErrInvalidResetToken is returned for unknown or expired reset tokens.
	ErrInvalidResetToken = apperr.New(apperr.KindValidation, "INVALID_RESET_TOKEN", "Invalid or expired token")
	// ErrSessionRevoked is returned for logged out access tokens.
	ErrSessionRevoked = apperr.New(apperr.KindUnauthenticated, "TOKEN_REVOKED", "Session has been logged out")
)

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Firstname string
	Lastname  string
	Email     string
	Password  string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *model.User
}

// AuthService handles authentication operations and the per-request
// session check.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput, idCard *multipart.FileHeader) (*model.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, access *auth.Claims, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	// Authenticate resolves validated access claims to an active principal.
	Authenticate(ctx context.Context, claims *auth.Claims) (*model.User, error)
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	files      storage.FileStore
	mailer     mail.Sender
	cache      *cache.Client
	clientURL  string
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	files storage.FileStore,
	mailer mail.Sender,
	cache *cache.Client,
	clientURL string,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		files:      files,
		mailer:     mailer,
		cache:      cache,
		clientURL:  strings.TrimRight(clientURL, "/"),
		now:        time.Now,
	}
}

// Register creates an unapproved student account with its ID card image.
func (s *authService) Register(ctx context.Context, in RegisterInput, idCard *multipart.FileHeader) (*model.User, error) {
	if idCard == nil {
		return nil, apperr.Validation("ID card image is required")
	}
	email := normalizeEmail(in.Email)

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrUserAlreadyExists
	}
	if err != nil && !repository.IsNotFound(err) {
		return nil, apperr.Internal("Server error during registration.", fmt.Errorf("check user existence: %w", err))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, apperr.Internal("Server error during registration.", fmt.Errorf("hash password: %w", err))
	}

	imagePath, err := s.files.SaveImage(ctx, storage.KindIDCard, idCard)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Firstname:    strings.TrimSpace(in.Firstname),
		Lastname:     strings.TrimSpace(in.Lastname),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         model.RoleStudent,
		IDCardImage:  imagePath,
		Interests:    model.StringList{},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		_ = s.files.Remove(ctx, imagePath)
		if repository.IsDuplicate(err) {
			return nil, ErrUserAlreadyExists
		}
		return nil, apperr.Internal("Server error during registration.", fmt.Errorf("create user: %w", err))
	}
	return user, nil
}

// Login checks credentials and account state, then issues tokens.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, apperr.Internal("Server error during login.", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	if !user.IsApproved && !user.IsAdmin() {
		return nil, apperr.ErrNotApproved
	}
	if err := s.checkBan(ctx, user); err != nil {
		return nil, err
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Internal("Server error during login.", fmt.Errorf("generate access token: %w", err))
	}
	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Internal("Server error during login.", fmt.Errorf("generate refresh token: %w", err))
	}
	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, user.ID, user.Email, auth.RefreshTokenExpiry); err != nil {
		return nil, apperr.Internal("Server error during login.", fmt.Errorf("store refresh token: %w", err))
	}

	return &LoginResult{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}

// RefreshToken validates a refresh token and returns a new access token.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidatePurpose(refreshToken, auth.PurposeRefresh)
	if err != nil || claims.ID == "" {
		return "", ErrInvalidRefreshToken
	}

	storedUserID, storedEmail, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	if storedUserID.String() != claims.UserID || storedEmail != claims.Email {
		return "", ErrInvalidRefreshToken
	}

	user, err := s.userRepo.FindByID(ctx, storedUserID)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	if err := s.checkBan(ctx, user); err != nil {
		return "", err
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return "", apperr.Internal("failed to refresh token", fmt.Errorf("generate access token: %w", err))
	}
	return accessToken, nil
}

// Logout revokes the access token and, when given, the refresh token.
func (s *authService) Logout(ctx context.Context, access *auth.Claims, refreshToken string) error {
	if access != nil && access.ID != "" {
		if err := s.tokenStore.BlacklistAccessToken(ctx, access.ID, auth.RemainingTTL(access)); err != nil {
			return apperr.Internal("failed to logout", fmt.Errorf("blacklist access token: %w", err))
		}
	}
	if refreshToken == "" {
		return nil
	}
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		// already unusable
		return nil
	}
	if err := s.tokenStore.DeleteRefreshToken(ctx, tokenID); err != nil {
		return apperr.Internal("failed to logout", fmt.Errorf("delete refresh token: %w", err))
	}
	return nil
}

// ForgotPassword emails a one hour reset link.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if repository.IsNotFound(err) {
			return apperr.NotFound("User not found")
		}
		return apperr.Internal("Server error during password reset", err)
	}
	if err := s.checkBan(ctx, user); err != nil {
		return err
	}

	token, err := s.jwtService.GenerateResetToken(user.ID, user.Email)
	if err != nil {
		return apperr.Internal("Server error during password reset", err)
	}
	expires := s.now().Add(auth.ResetTokenExpiry)
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"reset_password_token":   token,
		"reset_password_expires": &expires,
	}); err != nil {
		return apperr.Internal("Server error during password reset", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", s.clientURL, token)
	msg := mail.Message{
		To:      user.Email,
		ToName:  user.FullName(),
		Subject: "Password Reset Request",
		Text:    "You requested a password reset. Open the link below to choose a new password:\n\n" + resetURL + "\n\nThis link will expire in 1 hour. If you did not request this, please ignore this email.",
		HTML: `<h1>Password Reset Request</h1>
<p>You requested a password reset. Click the link below to reset your password:</p>
<a href="` + resetURL + `">Reset Password</a>
<p>This link will expire in 1 hour.</p>
<p>If you did not request this, please ignore this email.</p>`,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return apperr.Internal("Server error during password reset", err)
	}
	return nil
}

// ResetPassword sets a new password for the holder of a valid reset token.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordChars {
		return apperr.Validation(fmt.Sprintf("Password must be at least %d characters", minPasswordChars))
	}
	claims, err := s.jwtService.ValidatePurpose(token, auth.PurposeReset)
	if err != nil {
		return ErrInvalidResetToken
	}
	userID, err := claims.Subject()
	if err != nil {
		return ErrInvalidResetToken
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return ErrInvalidResetToken
	}
	if user.ResetPasswordToken != token || user.ResetPasswordExpires == nil || !s.now().Before(*user.ResetPasswordExpires) {
		return ErrInvalidResetToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return apperr.Internal("Server error during password reset", err)
	}
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"password_hash":          string(hashed),
		"reset_password_token":   "",
		"reset_password_expires": nil,
	}); err != nil {
		return apperr.Internal("Server error during password reset", err)
	}
	invalidateUser(ctx, s.cache, user.ID)
	return nil
}

// Authenticate is the session guard check run after token validation.
func (s *authService) Authenticate(ctx context.Context, claims *auth.Claims) (*model.User, error) {
	if claims == nil || claims.Purpose != auth.PurposeAccess {
		return nil, apperr.Unauthenticated("Invalid token")
	}
	if revoked, _ := s.tokenStore.IsAccessTokenBlacklisted(ctx, claims.ID); revoked {
		return nil, ErrSessionRevoked
	}
	userID, err := claims.Subject()
	if err != nil {
		return nil, apperr.Unauthenticated("Invalid token")
	}

	var user model.User
	if !s.cache.GetJSON(ctx, cache.UserKey(userID.String()), &user) {
		found, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, apperr.Unauthenticated("User not found")
			}
			return nil, apperr.Internal("failed to load user", err)
		}
		user = *found
		s.cache.SetJSON(ctx, cache.UserKey(userID.String()), &user, principalTTL)
	}

	if err := s.checkBan(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// checkBan rejects active bans and lifts bans whose expiry has passed.
func (s *authService) checkBan(ctx context.Context, user *model.User) error {
	now := s.now()
	if user.BanActive(now) {
		return apperr.ErrAccountBlocked
	}
	if user.BanLapsed(now) {
		if err := s.userRepo.SetBan(ctx, user.ID, false, nil); err != nil {
			slog.WarnContext(ctx, "lift expired ban failed", "user", user.ID, "error", err)
		}
		user.IsBlocked = false
		user.BanExpires = nil
		invalidateUser(ctx, s.cache, user.ID)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// invalidateUser drops the cached principal after any change to the user row.
func invalidateUser(ctx context.Context, c *cache.Client, id uuid.UUID) {
	_ = c.Delete(ctx, cache.UserKey(id.String()))
}
