package workout

import (
	"context"
	"time"
)

// RoutineStore only returns routines visible to userID: own routines, and assigned ones
// where the user is the student or the coach. Anything else is ErrRoutineNotFound.
type RoutineStore interface {
	FetchRoutine(ctx context.Context, userID, id string) (*Routine, error)
	FetchAssignedRoutine(ctx context.Context, userID, id string) (*Routine, error)
}

// PersonalMaxStore returns nil, nil when the user has no known max for the exercise.
type PersonalMaxStore interface {
	FetchPersonalMax(ctx context.Context, userID, exerciseID string) (*PersonalMax, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, params NewSession) (string, error)
	UpdateSession(ctx context.Context, sessionID string, update SessionUpdate) error
}

// Alert is the payload of a one-shot rest notification.
type Alert struct {
	UserID       string `json:"userId"`
	SessionID    string `json:"sessionId"`
	ExerciseID   string `json:"exerciseId"`
	NextSetIndex int    `json:"nextSetIndex"`
	Title        string `json:"title"`
	Body         string `json:"body"`
}

type AlertScheduler interface {
	ScheduleOneShot(ctx context.Context, after time.Duration, alert Alert) (handle string, err error)
	// CancelOneShot is a no-op for unknown or already fired handles.
	CancelOneShot(ctx context.Context, handle string) error
	NotifyNow(ctx context.Context, alert Alert) error
	OnFired(fn func(handle string, alert Alert)) (unsubscribe func())
}

type AppState string

const (
	Foreground AppState = "foreground"
	Background AppState = "background"
)

func (s AppState) IsValid() bool {
	return s == Foreground || s == Background
}

type LifecycleSignal interface {
	Current() AppState
	OnChange(fn func(state AppState)) (unsubscribe func())
}

// LifecycleRegistry hands out the lifecycle signal of a user's app.
type LifecycleRegistry interface {
	For(userID string) LifecycleSignal
}
