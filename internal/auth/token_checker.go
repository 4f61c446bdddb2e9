package auth

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrSessionExpired   = errors.New("session expired")
	ErrMalformedSession = errors.New("malformed session")
)

var _ Checker = (*TokenChecker)(nil)
var _ Checker = (*TestChecker)(nil)

// Checker resolves a bearer token to the id of the logged user.
type Checker interface {
	UserID(ctx context.Context, token string) (string, error)
}

type TokenChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
	now         func() time.Time
}

func NewTokenChecker(ttl time.Duration, redisClient *redis.Client) *TokenChecker {
	return &TokenChecker{
		ttl:         ttl,
		redisClient: redisClient,
		now:         time.Now,
	}
}

func (tc *TokenChecker) UserID(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	cmd := tc.redisClient.Get(ctx, sessionKeyPrefix+token)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrInvalidToken
		}
		return "", err
	}

	userID, createdAt, err := parseSessionValue(cmd.Val())
	if err != nil {
		return "", err
	}
	if tc.now().Sub(createdAt) > tc.ttl {
		return "", ErrSessionExpired
	}

	return userID, nil
}

// TestChecker maps tokens to user ids in memory.
type TestChecker struct {
	Sessions map[string]string
}

func NewTestChecker() *TestChecker {
	return &TestChecker{
		Sessions: map[string]string{},
	}
}

func (c *TestChecker) UserID(_ context.Context, token string) (string, error) {
	userID, ok := c.Sessions[token]
	if !ok {
		return "", ErrInvalidToken
	}
	return userID, nil
}
