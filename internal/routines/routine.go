package routines

import (
	"errors"
	"fmt"

	"github.com/2beens/gymcoach/internal/workout"
)

var (
	ErrRoutineNotFound = workout.ErrRoutineNotFound
	ErrInvalidRoutine  = errors.New("invalid routine")
)

type NewRoutine struct {
	Name string               `json:"name"`
	Days []workout.RoutineDay `json:"days"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRoutine, fmt.Sprintf(format, args...))
}

// Validate checks a routine before it is stored. Controllers rely on day numbers and
// exercise ids being unique.
func (nr NewRoutine) Validate() error {
	if nr.Name == "" {
		return invalid("name empty")
	}
	if len(nr.Days) == 0 {
		return invalid("no days")
	}

	dayNumbers := map[int]bool{}
	for _, day := range nr.Days {
		if day.Number < 1 {
			return invalid("day number %d not positive", day.Number)
		}
		if dayNumbers[day.Number] {
			return invalid("duplicate day %d", day.Number)
		}
		dayNumbers[day.Number] = true

		exerciseIDs := map[string]bool{}
		for _, ex := range day.Exercises {
			if ex.ExerciseID == "" {
				return invalid("day %d: exercise id empty", day.Number)
			}
			if exerciseIDs[ex.ExerciseID] {
				return invalid("day %d: duplicate exercise [%s]", day.Number, ex.ExerciseID)
			}
			exerciseIDs[ex.ExerciseID] = true

			for i, set := range ex.Sets {
				if err := validateSet(set); err != nil {
					return invalid("day %d, exercise [%s], set %d: %s", day.Number, ex.ExerciseID, i, err)
				}
			}
		}
	}

	return nil
}

func validateSet(set workout.PlannedSet) error {
	switch {
	case set.Reps < 1:
		return errors.New("reps must be positive")
	case set.Weight != nil && *set.Weight < 0:
		return errors.New("weight is negative")
	case set.LoadPercentage != nil && *set.LoadPercentage <= 0:
		return errors.New("load percentage must be positive")
	case set.RestSeconds != nil && *set.RestSeconds < 0:
		return errors.New("rest is negative")
	case set.RIR != nil && *set.RIR < 0:
		return errors.New("rir is negative")
	}
	return nil
}
