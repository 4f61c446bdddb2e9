package personalmax

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/2beens/gymcoach/internal/workout"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultCacheSizeMB = 10
	DefaultCacheTTL    = 10 * time.Minute
)

var _ workout.PersonalMaxStore = (*CachedStore)(nil)

type store interface {
	Get(ctx context.Context, userID, exerciseID string) (*workout.PersonalMax, error)
	Upsert(ctx context.Context, pm workout.PersonalMax) (*workout.PersonalMax, error)
}

// CachedStore is a read-through cache in front of the personal max repo.
// Misses (no max recorded) are not cached, so a new max shows up right away.
type CachedStore struct {
	repo  store
	cache *freecache.Cache
	ttl   time.Duration
}

func NewCachedStore(repo store, sizeMB int, ttl time.Duration) *CachedStore {
	if sizeMB <= 0 {
		sizeMB = DefaultCacheSizeMB
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		repo:  repo,
		cache: freecache.NewCache(sizeMB * 1024 * 1024),
		ttl:   ttl,
	}
}

func cacheKey(userID, exerciseID string) []byte {
	return []byte(userID + "||" + exerciseID)
}

func (cs *CachedStore) Get(ctx context.Context, userID, exerciseID string) (*workout.PersonalMax, error) {
	key := cacheKey(userID, exerciseID)
	if pmBytes, err := cs.cache.Get(key); err == nil {
		pm := &workout.PersonalMax{}
		unmarshalErr := json.Unmarshal(pmBytes, pm)
		if unmarshalErr == nil {
			return pm, nil
		}
		log.Warnf("personal max cache: unmarshal [%s]: %s", key, unmarshalErr)
		cs.cache.Del(key)
	} else if !errors.Is(err, freecache.ErrNotFound) {
		log.Warnf("personal max cache: get [%s]: %s", key, err)
	}

	pm, err := cs.repo.Get(ctx, userID, exerciseID)
	if err != nil || pm == nil {
		return pm, err
	}

	cs.set(key, pm)
	return pm, nil
}

func (cs *CachedStore) FetchPersonalMax(ctx context.Context, userID, exerciseID string) (*workout.PersonalMax, error) {
	return cs.Get(ctx, userID, exerciseID)
}

func (cs *CachedStore) Upsert(ctx context.Context, pm workout.PersonalMax) (*workout.PersonalMax, error) {
	key := cacheKey(pm.UserID, pm.ExerciseID)
	cs.cache.Del(key)

	saved, err := cs.repo.Upsert(ctx, pm)
	if err != nil {
		return nil, err
	}

	cs.set(key, saved)
	return saved, nil
}

func (cs *CachedStore) set(key []byte, pm *workout.PersonalMax) {
	pmBytes, err := json.Marshal(pm)
	if err != nil {
		log.Errorf("personal max cache: marshal [%s]: %s", key, err)
		return
	}
	if err := cs.cache.Set(key, pmBytes, int(cs.ttl.Seconds())); err != nil {
		log.Warnf("personal max cache: set [%s]: %s", key, err)
	}
}
