package workout

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrRoutineNotLoaded   = errors.New("routine not loaded")
	ErrRoutineNotFound    = errors.New("routine not found")
	ErrRoutineEmpty       = errors.New("routine has no days")
	ErrDayNotFound        = errors.New("routine day not found")
	ErrExerciseNotFound   = errors.New("exercise not found in day")
	ErrExerciseCompleted  = errors.New("exercise already completed")
	ErrNoPlannedSets      = errors.New("exercise has no planned sets")
	ErrFinishUnavailable  = errors.New("finish unavailable, not all exercises completed")
	ErrControllerClosed   = errors.New("controller closed")
	ErrInvalidLoadWeight  = errors.New("weight override must not be negative")
	ErrInvalidRoutineKind = errors.New("invalid routine source")
)

// LoadError is returned when a routine cannot be fetched or does not exist.
type LoadError struct {
	RoutineID string
	Source    RoutineSource
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s routine [%s]: %s", e.Source, e.RoutineID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SessionCreateError keeps the controller on day selection.
type SessionCreateError struct {
	DayNumber int
	Err       error
}

func (e *SessionCreateError) Error() string {
	return fmt.Sprintf("create session for day %d: %s", e.DayNumber, e.Err)
}

func (e *SessionCreateError) Unwrap() error { return e.Err }

// SessionUpdateError is swallowed for partial pushes (Final=false)
// and blocks the finish transition otherwise.
type SessionUpdateError struct {
	SessionID string
	Final     bool
	Err       error
}

func (e *SessionUpdateError) Error() string {
	kind := "partial"
	if e.Final {
		kind = "final"
	}
	return fmt.Sprintf("%s update of session [%s]: %s", kind, e.SessionID, e.Err)
}

func (e *SessionUpdateError) Unwrap() error { return e.Err }

type PersonalMaxFetchError struct {
	ExerciseID string
	Err        error
}

func (e *PersonalMaxFetchError) Error() string {
	return fmt.Sprintf("fetch personal max for [%s]: %s", e.ExerciseID, e.Err)
}

func (e *PersonalMaxFetchError) Unwrap() error { return e.Err }

type NotificationScheduleError struct {
	Op  string
	Err error
}

func (e *NotificationScheduleError) Error() string {
	return fmt.Sprintf("notification %s: %s", e.Op, e.Err)
}

func (e *NotificationScheduleError) Unwrap() error { return e.Err }

func invalidTransition(op string, from StateKind) error {
	return fmt.Errorf("%s from %s: %w", op, from, ErrInvalidTransition)
}
