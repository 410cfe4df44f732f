package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"peerhelp/internal/cache"
)

// Redis key namespaces.
const (
	refreshSessionPrefix = "peerhelp:session:"
	revokedAccessPrefix  = "peerhelp:revoked:"
)

// ErrSessionNotFound is returned for unknown or expired refresh sessions.
var ErrSessionNotFound = errors.New("refresh session not found")

// TokenStoreInterface keeps refresh sessions and revoked access tokens.
type TokenStoreInterface interface {
	StoreRefreshToken(ctx context.Context, tokenID string, userID uuid.UUID, email string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, tokenID string) (userID uuid.UUID, email string, err error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
	BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

// TokenStore is the Redis-backed TokenStoreInterface. With a nil or
// unreachable cache, sessions cannot be refreshed and nothing counts as
// revoked.
type TokenStore struct {
	cache *cache.Client
}

var _ TokenStoreInterface = (*TokenStore)(nil)

func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

type refreshSession struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
}

func (s *TokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uuid.UUID, email string, ttl time.Duration) error {
	payload, err := json.Marshal(refreshSession{UserID: userID, Email: email})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.cache.Set(ctx, refreshSessionPrefix+tokenID, payload, ttl)
}

func (s *TokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uuid.UUID, string, error) {
	raw, err := s.cache.Get(ctx, refreshSessionPrefix+tokenID)
	if err != nil || raw == nil {
		return uuid.Nil, "", ErrSessionNotFound
	}
	var sess refreshSession
	if err := json.Unmarshal(raw, &sess); err != nil || sess.UserID == uuid.Nil {
		return uuid.Nil, "", fmt.Errorf("decode session %s: %w", tokenID, ErrSessionNotFound)
	}
	return sess.UserID, sess.Email, nil
}

func (s *TokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return s.cache.Delete(ctx, refreshSessionPrefix+tokenID)
}

// BlacklistAccessToken revokes an access token for the rest of its lifetime.
// Already expired tokens need no entry.
func (s *TokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, revokedAccessPrefix+tokenID, []byte{'1'}, ttl)
}

// IsAccessTokenBlacklisted fails open: a Redis error reads as not revoked.
func (s *TokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	raw, err := s.cache.Get(ctx, revokedAccessPrefix+tokenID)
	if err != nil {
		return false, nil
	}
	return raw != nil, nil
}
