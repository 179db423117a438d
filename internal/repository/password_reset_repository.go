package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/account-service/internal/domain"
)

// PasswordResetRepository stores short-lived password reset tokens.
type PasswordResetRepository interface {
	Store(ctx context.Context, token, userID string, ttl time.Duration) error
	// Get returns domain.ErrNotFound for unknown or expired tokens.
	Get(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

type redisPasswordResetRepository struct {
	client *redis.Client
}

// NewPasswordResetRepository returns a Redis-backed implementation.
func NewPasswordResetRepository(client *redis.Client) PasswordResetRepository {
	return &redisPasswordResetRepository{client: client}
}

func (r *redisPasswordResetRepository) Store(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, PasswordResetKey(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("store password reset token: %w", err)
	}
	return nil
}

func (r *redisPasswordResetRepository) Get(ctx context.Context, token string) (string, error) {
	userID, err := r.client.Get(ctx, PasswordResetKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get password reset token: %w", err)
	}
	return userID, nil
}

func (r *redisPasswordResetRepository) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, PasswordResetKey(token)).Err(); err != nil {
		return fmt.Errorf("delete password reset token: %w", err)
	}
	return nil
}

// PasswordResetKey is the storage key for a token. Only the token digest is stored.
func PasswordResetKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "password_reset:" + hex.EncodeToString(sum[:])
}
