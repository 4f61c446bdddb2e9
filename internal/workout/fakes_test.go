package workout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

func ptr[T any](v T) *T {
	return &v
}

// fakeRoutineStore scopes routines by owner when one is set in owners.
type fakeRoutineStore struct {
	mu       sync.Mutex
	routines map[string]*Routine
	assigned map[string]*Routine
	owners   map[string]string
	err      error
}

func newFakeRoutineStore() *fakeRoutineStore {
	return &fakeRoutineStore{
		routines: map[string]*Routine{},
		assigned: map[string]*Routine{},
		owners:   map[string]string{},
	}
}

func (s *fakeRoutineStore) fetch(from map[string]*Routine, userID, id string) (*Routine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	r, ok := from[id]
	if !ok {
		return nil, ErrRoutineNotFound
	}
	if owner, scoped := s.owners[id]; scoped && owner != userID {
		return nil, ErrRoutineNotFound
	}
	return r, nil
}

func (s *fakeRoutineStore) FetchRoutine(_ context.Context, userID, id string) (*Routine, error) {
	return s.fetch(s.routines, userID, id)
}

func (s *fakeRoutineStore) FetchAssignedRoutine(_ context.Context, userID, id string) (*Routine, error) {
	return s.fetch(s.assigned, userID, id)
}

type fakePersonalMaxStore struct {
	mu    sync.Mutex
	maxes map[string]*PersonalMax
	err   error
	calls int
}

func (s *fakePersonalMaxStore) FetchPersonalMax(_ context.Context, userID, exerciseID string) (*PersonalMax, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.maxes[exerciseID], nil
}

type sessionUpdateCall struct {
	SessionID string
	Update    SessionUpdate
}

type fakeSessionStore struct {
	mu        sync.Mutex
	nextID    int
	createErr error
	updateErr error
	creates   []NewSession
	updates   []sessionUpdateCall
}

func (s *fakeSessionStore) CreateSession(_ context.Context, params NewSession) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	s.nextID++
	s.creates = append(s.creates, params)
	return fmt.Sprintf("session-%d", s.nextID), nil
}

// UpdateSession fails on a done context, like a real database call would.
func (s *fakeSessionStore) UpdateSession(ctx context.Context, sessionID string, update SessionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.updates = append(s.updates, sessionUpdateCall{SessionID: sessionID, Update: update})
	return s.updateErr
}

func (s *fakeSessionStore) setUpdateErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateErr = err
}

func (s *fakeSessionStore) updateCalls() []sessionUpdateCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sessionUpdateCall(nil), s.updates...)
}

type scheduledAlert struct {
	After time.Duration
	Alert Alert
}

type fakeScheduler struct {
	mu          sync.Mutex
	next        int
	scheduleErr error
	cancelErr   error
	notifyErr   error
	scheduled   map[string]scheduledAlert
	cancelled   []string
	notified    []Alert
	subscribers map[int]func(string, Alert)
	nextSub     int
	// onNotify runs inside NotifyNow, outside the scheduler lock
	onNotify func()
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		scheduled:   map[string]scheduledAlert{},
		subscribers: map[int]func(string, Alert){},
	}
}

func (s *fakeScheduler) ScheduleOneShot(_ context.Context, after time.Duration, alert Alert) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduleErr != nil {
		return "", s.scheduleErr
	}
	if after <= 0 {
		return "", errors.New("non-positive delay")
	}
	s.next++
	handle := fmt.Sprintf("alert-%d", s.next)
	s.scheduled[handle] = scheduledAlert{After: after, Alert: alert}
	return handle, nil
}

func (s *fakeScheduler) CancelOneShot(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelErr != nil {
		return s.cancelErr
	}
	delete(s.scheduled, handle)
	s.cancelled = append(s.cancelled, handle)
	return nil
}

func (s *fakeScheduler) NotifyNow(_ context.Context, alert Alert) error {
	s.mu.Lock()
	hook := s.onNotify
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifyErr != nil {
		return s.notifyErr
	}
	s.notified = append(s.notified, alert)
	return nil
}

func (s *fakeScheduler) OnFired(fn func(handle string, alert Alert)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// fire delivers a pending alert the way the real scheduler does: claim, then notify.
func (s *fakeScheduler) fire(handle string) bool {
	s.mu.Lock()
	sa, ok := s.scheduled[handle]
	delete(s.scheduled, handle)
	var subs []func(string, Alert)
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	for _, fn := range subs {
		fn(handle, sa.Alert)
	}
	return true
}

// deliver invokes subscribers with an arbitrary alert, pending or not.
func (s *fakeScheduler) deliver(handle string, alert Alert) {
	s.mu.Lock()
	var subs []func(string, Alert)
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(handle, alert)
	}
}

func (s *fakeScheduler) pending() map[string]scheduledAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]scheduledAlert, len(s.scheduled))
	for k, v := range s.scheduled {
		out[k] = v
	}
	return out
}

func (s *fakeScheduler) notifiedAlerts() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Alert(nil), s.notified...)
}

func (s *fakeScheduler) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

type fakeLifecycle struct {
	mu          sync.Mutex
	current     AppState
	subscribers map[int]func(AppState)
	nextSub     int
}

func newFakeLifecycle(initial AppState) *fakeLifecycle {
	return &fakeLifecycle{
		current:     initial,
		subscribers: map[int]func(AppState){},
	}
}

func (l *fakeLifecycle) Current() AppState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

func (l *fakeLifecycle) OnChange(fn func(state AppState)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextSub
	l.nextSub++
	l.subscribers[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.subscribers, id)
		l.mu.Unlock()
	}
}

func (l *fakeLifecycle) publish(state AppState) {
	l.mu.Lock()
	l.current = state
	var subs []func(AppState)
	for _, fn := range l.subscribers {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

func (l *fakeLifecycle) subscriberCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subscribers)
}

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 5, 10, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{c: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

// activeTickers counts tickers created and not yet stopped.
func (c *fakeClock) activeTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

func (c *fakeClock) lastTicker() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		return nil
	}
	return c.tickers[len(c.tickers)-1]
}

type fakeTicker struct {
	mu      sync.Mutex
	c       chan time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *fakeTicker) tick(at time.Time) {
	select {
	case t.c <- at:
	default:
	}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) add(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []EventKind
	for _, ev := range r.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func (r *eventRecorder) last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}
