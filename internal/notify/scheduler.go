package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/2beens/gymcoach/internal/telemetry/metrics"
	"github.com/2beens/gymcoach/internal/telemetry/tracing"
	"github.com/2beens/gymcoach/internal/workout"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultKeyPrefix    = "gymcoach"
	DefaultPollInterval = 500 * time.Millisecond
	pollBatchSize       = 100
)

var ErrNonPositiveDelay = errors.New("alert delay must be positive")

var _ workout.AlertScheduler = (*RedisScheduler)(nil)

// RedisScheduler keeps pending one-shot alerts in redis: payloads in a hash and
// handles in a sorted set scored by due time (unix ms). Any number of instances may
// Run against the same keys; a due alert is delivered by the instance that removes it
// from the sorted set.
type RedisScheduler struct {
	rdb          *redis.Client
	sender       Sender
	metrics      *metrics.Manager
	pollInterval time.Duration
	payloadsKey  string
	dueKey       string

	now       func() time.Time
	newHandle func() string

	mu          sync.Mutex
	nextSubID   int
	subscribers map[int]func(handle string, alert workout.Alert)
}

type SchedulerParams struct {
	Redis        *redis.Client
	Sender       Sender
	Metrics      *metrics.Manager
	KeyPrefix    string
	PollInterval time.Duration
}

func NewRedisScheduler(params SchedulerParams) *RedisScheduler {
	if params.KeyPrefix == "" {
		params.KeyPrefix = DefaultKeyPrefix
	}
	if params.PollInterval <= 0 {
		params.PollInterval = DefaultPollInterval
	}
	if params.Sender == nil {
		params.Sender = NewLogSender()
	}

	return &RedisScheduler{
		rdb:          params.Redis,
		sender:       params.Sender,
		metrics:      params.Metrics,
		pollInterval: params.PollInterval,
		payloadsKey:  params.KeyPrefix + ":alerts:payloads",
		dueKey:       params.KeyPrefix + ":alerts:due",
		now:          time.Now,
		newHandle:    uuid.NewString,
		subscribers:  make(map[int]func(string, workout.Alert)),
	}
}

func (s *RedisScheduler) ScheduleOneShot(ctx context.Context, after time.Duration, alert workout.Alert) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notify.scheduler.schedule")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if after <= 0 {
		return "", ErrNonPositiveDelay
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return "", fmt.Errorf("marshal alert: %w", err)
	}

	handle := s.newHandle()
	dueAt := s.now().Add(after).UnixMilli()

	if err := s.rdb.HSet(ctx, s.payloadsKey, handle, payload).Err(); err != nil {
		return "", fmt.Errorf("store alert payload: %w", err)
	}
	if err := s.rdb.ZAdd(ctx, s.dueKey, &redis.Z{
		Score:  float64(dueAt),
		Member: handle,
	}).Err(); err != nil {
		// no due entry, the payload would never be picked up
		s.rdb.HDel(ctx, s.payloadsKey, handle)
		return "", fmt.Errorf("store alert due time: %w", err)
	}

	return handle, nil
}

func (s *RedisScheduler) CancelOneShot(ctx context.Context, handle string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notify.scheduler.cancel")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := s.rdb.ZRem(ctx, s.dueKey, handle).Err(); err != nil {
		return fmt.Errorf("remove alert [%s]: %w", handle, err)
	}
	if err := s.rdb.HDel(ctx, s.payloadsKey, handle).Err(); err != nil {
		return fmt.Errorf("remove alert payload [%s]: %w", handle, err)
	}

	return nil
}

func (s *RedisScheduler) NotifyNow(ctx context.Context, alert workout.Alert) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notify.scheduler.notifyNow")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := s.sender.Send(ctx, alert); err != nil {
		s.count("failed")
		return err
	}
	s.count("delivered")
	return nil
}

func (s *RedisScheduler) OnFired(fn func(handle string, alert workout.Alert)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

// Run delivers due alerts until ctx is done.
func (s *RedisScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	log.Debugf("alert scheduler polling every %s", s.pollInterval)
	for {
		select {
		case <-ctx.Done():
			log.Debugln("alert scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.FireDue(ctx); err != nil && ctx.Err() == nil {
				log.Errorf("alert scheduler, fire due: %s", err)
			}
		}
	}
}

// FireDue delivers every alert that is due now and returns how many this instance claimed.
func (s *RedisScheduler) FireDue(ctx context.Context) (int, error) {
	handles, err := s.rdb.ZRangeByScore(ctx, s.dueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(s.now().UnixMilli(), 10),
		Count: pollBatchSize,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("list due alerts: %w", err)
	}

	fired := 0
	for _, handle := range handles {
		alert, claimed, err := s.claim(ctx, handle)
		if err != nil {
			log.Errorf("alert scheduler, claim [%s]: %s", handle, err)
			continue
		}
		if !claimed {
			continue
		}

		fired++
		if err := s.sender.Send(ctx, alert); err != nil {
			log.Warnf("alert scheduler, deliver [%s] to user [%s]: %s", handle, alert.UserID, err)
			s.count("failed")
		} else {
			s.count("delivered")
		}
		s.notifySubscribers(handle, alert)
	}

	return fired, nil
}

func (s *RedisScheduler) claim(ctx context.Context, handle string) (workout.Alert, bool, error) {
	removed, err := s.rdb.ZRem(ctx, s.dueKey, handle).Result()
	if err != nil {
		return workout.Alert{}, false, err
	}
	if removed == 0 {
		// cancelled, or claimed by another instance
		return workout.Alert{}, false, nil
	}

	payload, err := s.rdb.HGet(ctx, s.payloadsKey, handle).Result()
	if err != nil {
		return workout.Alert{}, false, fmt.Errorf("get payload: %w", err)
	}
	if err := s.rdb.HDel(ctx, s.payloadsKey, handle).Err(); err != nil {
		log.Warnf("alert scheduler, delete payload [%s]: %s", handle, err)
	}

	var alert workout.Alert
	if err := json.Unmarshal([]byte(payload), &alert); err != nil {
		return workout.Alert{}, false, fmt.Errorf("unmarshal payload: %w", err)
	}

	return alert, true, nil
}

func (s *RedisScheduler) notifySubscribers(handle string, alert workout.Alert) {
	s.mu.Lock()
	subscribers := make([]func(string, workout.Alert), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(handle, alert)
	}
}

func (s *RedisScheduler) count(result string) {
	if s.metrics != nil {
		s.metrics.CounterAlertDeliveries.WithLabelValues(result).Inc()
	}
}
