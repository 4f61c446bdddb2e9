package workout

import "time"

type StateKind string

const (
	SelectingDay      StateKind = "selecting_day"
	SelectingExercise StateKind = "selecting_exercise"
	ExecutingSet      StateKind = "executing_set"
	Resting           StateKind = "resting"
	ExerciseComplete  StateKind = "exercise_complete"
	SessionFinished   StateKind = "session_finished"
)

func (sk StateKind) String() string {
	return string(sk)
}

type DayOption struct {
	Number    int    `json:"number"`
	Name      string `json:"name"`
	Exercises int    `json:"exercises"`
}

type ExerciseProgress struct {
	ExerciseID   string `json:"exerciseId"`
	Name         string `json:"name"`
	TotalSets    int    `json:"totalSets"`
	RecordedSets int    `json:"recordedSets"`
	Completed    bool   `json:"completed"`
}

// Snapshot is a read-only view of the controller, safe to hand out and serialize.
type Snapshot struct {
	State         StateKind     `json:"state"`
	AppState      AppState      `json:"appState"`
	RoutineID     string        `json:"routineId,omitempty"`
	RoutineName   string        `json:"routineName,omitempty"`
	RoutineSource RoutineSource `json:"routineSource,omitempty"`
	Days          []DayOption   `json:"days,omitempty"`

	SessionID string `json:"sessionId,omitempty"`
	DayNumber int    `json:"dayNumber,omitempty"`
	DayName   string `json:"dayName,omitempty"`

	Exercises       []ExerciseProgress `json:"exercises,omitempty"`
	FinishAvailable bool               `json:"finishAvailable"`
	PendingSync     bool               `json:"pendingSync"`

	ExerciseID      string   `json:"exerciseId,omitempty"`
	ExerciseName    string   `json:"exerciseName,omitempty"`
	SetIndex        int      `json:"setIndex"`
	TotalSets       int      `json:"totalSets,omitempty"`
	PlannedReps     int      `json:"plannedReps,omitempty"`
	SuggestedWeight *float64 `json:"suggestedWeight,omitempty"`
	PersonalMax     *float64 `json:"personalMax,omitempty"`

	RestStartedAt       *time.Time `json:"restStartedAt,omitempty"`
	RestDurationSeconds int        `json:"restDurationSeconds,omitempty"`
	RemainingSeconds    int        `json:"remainingSeconds"`

	Summary  *ExerciseSummary `json:"summary,omitempty"`
	Finished *Session         `json:"finished,omitempty"`
}
