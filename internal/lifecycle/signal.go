package lifecycle

import (
	"sync"

	"github.com/2beens/gymcoach/internal/workout"

	log "github.com/sirupsen/logrus"
)

var _ workout.LifecycleSignal = (*Signal)(nil)
var _ workout.LifecycleRegistry = (*Hub)(nil)

// Signal carries foreground/background transitions of one user's app.
type Signal struct {
	mu          sync.Mutex
	current     workout.AppState
	nextID      int
	subscribers map[int]func(workout.AppState)
}

func NewSignal() *Signal {
	return &Signal{
		current:     workout.Foreground,
		subscribers: make(map[int]func(workout.AppState)),
	}
}

func (s *Signal) Current() workout.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Signal) OnChange(fn func(state workout.AppState)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
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

// Publish records the new state and notifies subscribers, outside the lock.
// Publishing the current state again is a no-op.
func (s *Signal) Publish(state workout.AppState) bool {
	s.mu.Lock()
	if s.current == state {
		s.mu.Unlock()
		return false
	}
	s.current = state
	subscribers := make([]func(workout.AppState), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(state)
	}
	return true
}

func (s *Signal) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Hub keeps one Signal per user.
type Hub struct {
	mu      sync.Mutex
	signals map[string]*Signal
}

func NewHub() *Hub {
	return &Hub{
		signals: make(map[string]*Signal),
	}
}

func (h *Hub) signal(userID string) *Signal {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.signals[userID]
	if !ok {
		s = NewSignal()
		h.signals[userID] = s
	}
	return s
}

func (h *Hub) For(userID string) workout.LifecycleSignal {
	return h.signal(userID)
}

func (h *Hub) Publish(userID string, state workout.AppState) {
	if h.signal(userID).Publish(state) {
		log.Tracef("lifecycle: user [%s] app is now in %s", userID, state)
	}
}
