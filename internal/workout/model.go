package workout

import "time"

// DefaultRestSeconds is used when a planned set carries no (or a non-positive) rest.
const DefaultRestSeconds = 60

// RoutineSource tells from where a routine is loaded.
type RoutineSource string

const (
	// SelfAuthored routines are created by the user doing the workout.
	SelfAuthored RoutineSource = "self"
	// Assigned routines are created by a coach and assigned to a student.
	Assigned RoutineSource = "assigned"
)

func (rs RoutineSource) IsValid() bool {
	switch rs {
	case SelfAuthored, Assigned:
		return true
	default:
		return false
	}
}

type Routine struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Days []RoutineDay `json:"days"`
}

// Day returns the routine day with the given number.
func (r *Routine) Day(number int) (*RoutineDay, bool) {
	for i := range r.Days {
		if r.Days[i].Number == number {
			return &r.Days[i], true
		}
	}
	return nil, false
}

type RoutineDay struct {
	Number    int               `json:"number"`
	Name      string            `json:"name"`
	Exercises []RoutineExercise `json:"exercises"`
}

func (d *RoutineDay) Exercise(exerciseID string) (*RoutineExercise, bool) {
	for i := range d.Exercises {
		if d.Exercises[i].ExerciseID == exerciseID {
			return &d.Exercises[i], true
		}
	}
	return nil, false
}

type RoutineExercise struct {
	ExerciseID string       `json:"exerciseId"`
	Name       string       `json:"name"`
	Sets       []PlannedSet `json:"sets"`
}

// PlannedSet is the template for one set. Weight and LoadPercentage are both optional,
// a percentage resolves against the user's personal max for the exercise.
type PlannedSet struct {
	Reps           int      `json:"reps"`
	Weight         *float64 `json:"weight,omitempty"`
	LoadPercentage *float64 `json:"loadPercentage,omitempty"`
	RestSeconds    *int     `json:"restSeconds,omitempty"`
	RIR            *float64 `json:"rir,omitempty"`
}

// RestOr returns the rest after this set, falling back to def
// (and to DefaultRestSeconds if def itself is not positive).
func (ps PlannedSet) RestOr(def int) int {
	if ps.RestSeconds != nil && *ps.RestSeconds > 0 {
		return *ps.RestSeconds
	}
	if def <= 0 {
		return DefaultRestSeconds
	}
	return def
}

type PersonalMax struct {
	UserID     string    `json:"userId"`
	ExerciseID string    `json:"exerciseId"`
	MaxWeight  float64   `json:"maxWeight"`
	MaxReps    *int      `json:"maxReps,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SetRecord is one realized set. Created once, never edited.
type SetRecord struct {
	SetIndex    int       `json:"setIndex"`
	Weight      float64   `json:"weight"`
	Reps        int       `json:"reps"`
	CompletedAt time.Time `json:"completedAt"`
}

type ExerciseRecord struct {
	ExerciseID  string      `json:"exerciseId"`
	Name        string      `json:"name"`
	Sets        []SetRecord `json:"sets"`
	Completed   bool        `json:"completed"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
}

type Session struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	RoutineID   string           `json:"routineId"`
	RoutineName string           `json:"routineName"`
	DayNumber   int              `json:"dayNumber"`
	DayName     string           `json:"dayName"`
	Exercises   []ExerciseRecord `json:"exercises"`
	Completed   bool             `json:"completed"`
	StartTime   time.Time        `json:"startTime"`
	EndTime     *time.Time       `json:"endTime,omitempty"`
}

// NewSession holds the inputs of a session create call.
type NewSession struct {
	UserID      string
	RoutineID   string
	RoutineName string
	DayNumber   int
	DayName     string
	StartTime   time.Time
}

// SessionUpdate is a partial update, nil fields are left untouched.
type SessionUpdate struct {
	Exercises []ExerciseRecord
	Completed *bool
	EndTime   *time.Time
}
