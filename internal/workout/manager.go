package workout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/2beens/gymcoach/internal/telemetry/metrics"

	log "github.com/sirupsen/logrus"
)

const defaultEventsBufferSize = 20

var ErrNoActiveWorkout = errors.New("no active workout")

type ManagerParams struct {
	Routines      RoutineStore
	PersonalMaxes PersonalMaxStore
	Sessions      SessionStore
	Alerts        AlertScheduler
	Lifecycles    LifecycleRegistry

	Clock              Clock
	Metrics            *metrics.Manager
	DefaultRestSeconds int
	TickInterval       time.Duration
	IdleTimeout        time.Duration
	EventsBufferSize   int
}

type managedWorkout struct {
	ctrl     *Controller
	events   *eventBuffer
	lastUsed time.Time
}

// Manager keeps at most one live controller per user.
type Manager struct {
	params ManagerParams

	mu       sync.Mutex
	workouts map[string]*managedWorkout
}

func NewManager(params ManagerParams) *Manager {
	if params.Clock == nil {
		params.Clock = SystemClock{}
	}
	if params.EventsBufferSize <= 0 {
		params.EventsBufferSize = defaultEventsBufferSize
	}
	return &Manager{
		params:   params,
		workouts: make(map[string]*managedWorkout),
	}
}

// Start replaces the user's workout (if any) with a new one for the given routine.
func (m *Manager) Start(ctx context.Context, userID, routineID string, source RoutineSource) (*Controller, error) {
	events := newEventBuffer(m.params.EventsBufferSize)

	var lifecycle LifecycleSignal
	if m.params.Lifecycles != nil {
		lifecycle = m.params.Lifecycles.For(userID)
	}

	ctrl, err := NewController(Params{
		UserID:             userID,
		Routines:           m.params.Routines,
		PersonalMaxes:      m.params.PersonalMaxes,
		Sessions:           m.params.Sessions,
		Alerts:             m.params.Alerts,
		Lifecycle:          lifecycle,
		Clock:              m.params.Clock,
		Metrics:            m.params.Metrics,
		DefaultRestSeconds: m.params.DefaultRestSeconds,
		TickInterval:       m.params.TickInterval,
		OnEvent:            events.add,
	})
	if err != nil {
		return nil, err
	}

	if err := ctrl.LoadRoutine(ctx, routineID, source); err != nil {
		ctrl.Close()
		return nil, err
	}

	m.mu.Lock()
	previous := m.workouts[userID]
	m.workouts[userID] = &managedWorkout{
		ctrl:     ctrl,
		events:   events,
		lastUsed: m.params.Clock.Now(),
	}
	m.updateGauge()
	m.mu.Unlock()

	if previous != nil {
		log.Debugf("workout manager: replacing workout of user [%s]", userID)
		previous.ctrl.Close()
	}

	return ctrl, nil
}

func (m *Manager) Get(userID string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.workouts[userID]
	if !ok {
		return nil, ErrNoActiveWorkout
	}
	w.lastUsed = m.params.Clock.Now()

	return w.ctrl, nil
}

// DrainEvents returns and forgets the buffered events of the user's workout.
func (m *Manager) DrainEvents(userID string) ([]Event, error) {
	m.mu.Lock()
	w, ok := m.workouts[userID]
	if ok {
		w.lastUsed = m.params.Clock.Now()
	}
	m.mu.Unlock()

	if !ok {
		return nil, ErrNoActiveWorkout
	}
	return w.events.drain(), nil
}

// Stop closes and removes the user's workout.
func (m *Manager) Stop(userID string) error {
	m.mu.Lock()
	w, ok := m.workouts[userID]
	delete(m.workouts, userID)
	m.updateGauge()
	m.mu.Unlock()

	if !ok {
		return ErrNoActiveWorkout
	}
	w.ctrl.Close()

	return nil
}

func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workouts)
}

// CloseIdle closes workouts not used since idleTimeout and returns how many were closed.
func (m *Manager) CloseIdle() int {
	if m.params.IdleTimeout <= 0 {
		return 0
	}

	now := m.params.Clock.Now()
	var idle []*managedWorkout

	m.mu.Lock()
	for userID, w := range m.workouts {
		if now.Sub(w.lastUsed) >= m.params.IdleTimeout {
			idle = append(idle, w)
			delete(m.workouts, userID)
		}
	}
	m.updateGauge()
	m.mu.Unlock()

	for _, w := range idle {
		log.Debugf("workout manager: closing idle workout of user [%s]", w.ctrl.UserID())
		w.ctrl.Close()
	}

	return len(idle)
}

// RunJanitor closes idle workouts until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context) {
	if m.params.IdleTimeout <= 0 {
		return
	}

	ticker := m.params.Clock.NewTicker(m.params.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if closed := m.CloseIdle(); closed > 0 {
				log.Debugf("workout manager: closed %d idle workouts", closed)
			}
		}
	}
}

// Close closes every workout.
func (m *Manager) Close() {
	m.mu.Lock()
	workouts := m.workouts
	m.workouts = make(map[string]*managedWorkout)
	m.updateGauge()
	m.mu.Unlock()

	for _, w := range workouts {
		w.ctrl.Close()
	}
}

func (m *Manager) updateGauge() {
	if m.params.Metrics != nil {
		m.params.Metrics.GaugeActiveWorkouts.Set(float64(len(m.workouts)))
	}
}

// eventBuffer keeps the last size events, older ones are dropped.
type eventBuffer struct {
	mu     sync.Mutex
	size   int
	events []Event
}

func newEventBuffer(size int) *eventBuffer {
	return &eventBuffer{
		size:   size,
		events: make([]Event, 0, size),
	}
}

func (b *eventBuffer) add(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) == b.size {
		copy(b.events, b.events[1:])
		b.events = b.events[:b.size-1]
	}
	b.events = append(b.events, ev)
}

func (b *eventBuffer) drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.events
	b.events = make([]Event, 0, b.size)
	return out
}
