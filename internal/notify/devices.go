package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

var ErrNoDeviceToken = errors.New("no device token registered")

// DeviceRegistry stores the push token of each user's device.
type DeviceRegistry struct {
	rdb       *redis.Client
	keyPrefix string
}

func NewDeviceRegistry(rdb *redis.Client, keyPrefix string) *DeviceRegistry {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &DeviceRegistry{
		rdb:       rdb,
		keyPrefix: keyPrefix,
	}
}

func (r *DeviceRegistry) key(userID string) string {
	return r.keyPrefix + ":device:" + userID
}

func (r *DeviceRegistry) Register(ctx context.Context, userID, token string) error {
	if err := r.rdb.Set(ctx, r.key(userID), token, 0).Err(); err != nil {
		return fmt.Errorf("register device of user [%s]: %w", userID, err)
	}
	return nil
}

func (r *DeviceRegistry) Token(ctx context.Context, userID string) (string, error) {
	token, err := r.rdb.Get(ctx, r.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoDeviceToken
		}
		return "", fmt.Errorf("get device of user [%s]: %w", userID, err)
	}
	return token, nil
}
