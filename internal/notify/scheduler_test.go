package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/2beens/gymcoach/internal/telemetry/metrics"
	"github.com/2beens/gymcoach/internal/workout"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

type recordingSender struct {
	sent []workout.Alert
	err  error
}

func (s *recordingSender) Send(_ context.Context, alert workout.Alert) error {
	s.sent = append(s.sent, alert)
	return s.err
}

var testNow = time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, sender Sender) (*RedisScheduler, redismock.ClientMock) {
	t.Helper()

	db, mock := redismock.NewClientMock()
	t.Cleanup(func() {
		db.Close()
	})

	s := NewRedisScheduler(SchedulerParams{
		Redis:   db,
		Sender:  sender,
		Metrics: metrics.NewTestManager(),
	})
	s.now = func() time.Time { return testNow }
	s.newHandle = func() string { return "handle-1" }

	return s, mock
}

func testAlert() workout.Alert {
	return workout.Alert{
		UserID:       "user-1",
		SessionID:    "session-1",
		ExerciseID:   "squat",
		NextSetIndex: 1,
		Title:        "Rest finished",
		Body:         "Squat: time for set 2",
	}
}

func TestRedisScheduler_ScheduleOneShot(t *testing.T) {
	s, mock := newTestScheduler(t, &recordingSender{})
	ctx := context.Background()
	alert := testAlert()

	payload, err := json.Marshal(alert)
	require.NoError(t, err)

	mock.ExpectHSet("gymcoach:alerts:payloads", "handle-1", payload).SetVal(1)
	mock.ExpectZAdd("gymcoach:alerts:due", &redis.Z{
		Score:  float64(testNow.Add(60 * time.Second).UnixMilli()),
		Member: "handle-1",
	}).SetVal(1)

	handle, err := s.ScheduleOneShot(ctx, 60*time.Second, alert)
	require.NoError(t, err)
	assert.Equal(t, "handle-1", handle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisScheduler_ScheduleOneShot_NonPositiveDelay(t *testing.T) {
	s, mock := newTestScheduler(t, &recordingSender{})

	for _, after := range []time.Duration{0, -time.Second} {
		handle, err := s.ScheduleOneShot(context.Background(), after, testAlert())
		assert.ErrorIs(t, err, ErrNonPositiveDelay)
		assert.Empty(t, handle)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisScheduler_ScheduleOneShot_DueTimeFails(t *testing.T) {
	s, mock := newTestScheduler(t, &recordingSender{})
	alert := testAlert()
	payload, err := json.Marshal(alert)
	require.NoError(t, err)

	mock.ExpectHSet("gymcoach:alerts:payloads", "handle-1", payload).SetVal(1)
	mock.ExpectZAdd("gymcoach:alerts:due", &redis.Z{
		Score:  float64(testNow.Add(time.Second).UnixMilli()),
		Member: "handle-1",
	}).SetErr(errors.New("oom"))
	mock.ExpectHDel("gymcoach:alerts:payloads", "handle-1").SetVal(1)

	handle, err := s.ScheduleOneShot(context.Background(), time.Second, alert)
	require.Error(t, err)
	assert.Empty(t, handle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisScheduler_CancelOneShot(t *testing.T) {
	s, mock := newTestScheduler(t, &recordingSender{})

	mock.ExpectZRem("gymcoach:alerts:due", "handle-1").SetVal(1)
	mock.ExpectHDel("gymcoach:alerts:payloads", "handle-1").SetVal(1)
	require.NoError(t, s.CancelOneShot(context.Background(), "handle-1"))

	// unknown handles are a no-op
	mock.ExpectZRem("gymcoach:alerts:due", "unknown").SetVal(0)
	mock.ExpectHDel("gymcoach:alerts:payloads", "unknown").SetVal(0)
	require.NoError(t, s.CancelOneShot(context.Background(), "unknown"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisScheduler_FireDue(t *testing.T) {
	sender := &recordingSender{}
	s, mock := newTestScheduler(t, sender)
	alert := testAlert()
	payload, err := json.Marshal(alert)
	require.NoError(t, err)

	type fired struct {
		handle string
		alert  workout.Alert
	}
	var got []fired
	unsubscribe := s.OnFired(func(handle string, alert workout.Alert) {
		got = append(got, fired{handle: handle, alert: alert})
	})
	defer unsubscribe()

	mock.ExpectZRangeByScore("gymcoach:alerts:due", &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(testNow.UnixMilli(), 10),
		Count: pollBatchSize,
	}).SetVal([]string{"h1", "h2"})
	mock.ExpectZRem("gymcoach:alerts:due", "h1").SetVal(1)
	mock.ExpectHGet("gymcoach:alerts:payloads", "h1").SetVal(string(payload))
	mock.ExpectHDel("gymcoach:alerts:payloads", "h1").SetVal(1)
	// h2 got claimed elsewhere
	mock.ExpectZRem("gymcoach:alerts:due", "h2").SetVal(0)

	count, err := s.FireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, got, 1)
	assert.Equal(t, "h1", got[0].handle)
	assert.Equal(t, alert, got[0].alert)
	assert.Equal(t, []workout.Alert{alert}, sender.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisScheduler_FireDue_DeliveryFailureStillFires(t *testing.T) {
	sender := &recordingSender{err: errors.New("no device")}
	s, mock := newTestScheduler(t, sender)
	payload, err := json.Marshal(testAlert())
	require.NoError(t, err)

	firedCount := 0
	s.OnFired(func(string, workout.Alert) {
		firedCount++
	})

	mock.ExpectZRangeByScore("gymcoach:alerts:due", &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(testNow.UnixMilli(), 10),
		Count: pollBatchSize,
	}).SetVal([]string{"h1"})
	mock.ExpectZRem("gymcoach:alerts:due", "h1").SetVal(1)
	mock.ExpectHGet("gymcoach:alerts:payloads", "h1").SetVal(string(payload))
	mock.ExpectHDel("gymcoach:alerts:payloads", "h1").SetVal(1)

	count, err := s.FireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, firedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisScheduler_OnFired_Unsubscribe(t *testing.T) {
	s, _ := newTestScheduler(t, &recordingSender{})

	calls := 0
	unsubscribe := s.OnFired(func(string, workout.Alert) {
		calls++
	})
	s.notifySubscribers("h", testAlert())
	unsubscribe()
	unsubscribe()
	s.notifySubscribers("h", testAlert())

	assert.Equal(t, 1, calls)
}

func TestRedisScheduler_NotifyNow(t *testing.T) {
	sender := &recordingSender{}
	s, _ := newTestScheduler(t, sender)

	require.NoError(t, s.NotifyNow(context.Background(), testAlert()))
	assert.Len(t, sender.sent, 1)

	sender.err = errors.New("push failed")
	assert.Error(t, s.NotifyNow(context.Background(), testAlert()))
}

func TestRedisScheduler_Run_StopsOnCancel(t *testing.T) {
	s, _ := newTestScheduler(t, &recordingSender{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
