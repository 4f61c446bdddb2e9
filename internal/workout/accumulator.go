package workout

import (
	"fmt"
	"time"
)

// accumulator holds the in-memory records of the active session, keyed by exercise id.
// It is append only: set records are never edited and completed never reverts.
type accumulator struct {
	records map[string]*ExerciseRecord
	order   []string
}

func newAccumulator() *accumulator {
	return &accumulator{
		records: make(map[string]*ExerciseRecord),
	}
}

func (a *accumulator) record(exerciseID string) *ExerciseRecord {
	return a.records[exerciseID]
}

func (a *accumulator) recordedCount(exerciseID string) int {
	if rec, ok := a.records[exerciseID]; ok {
		return len(rec.Sets)
	}
	return 0
}

func (a *accumulator) isCompleted(exerciseID string) bool {
	rec, ok := a.records[exerciseID]
	return ok && rec.Completed
}

// appendSet adds the record for set index setIndex of ex. The index must equal the number
// of already recorded sets; the exercise gets completed with its last planned set.
func (a *accumulator) appendSet(ex RoutineExercise, setIndex int, weight float64, reps int, at time.Time) (*ExerciseRecord, error) {
	rec, ok := a.records[ex.ExerciseID]
	if !ok {
		rec = &ExerciseRecord{
			ExerciseID: ex.ExerciseID,
			Name:       ex.Name,
			Sets:       make([]SetRecord, 0, len(ex.Sets)),
		}
		a.records[ex.ExerciseID] = rec
		a.order = append(a.order, ex.ExerciseID)
	}

	if rec.Completed {
		return nil, ErrExerciseCompleted
	}
	if setIndex != len(rec.Sets) || setIndex >= len(ex.Sets) {
		return nil, fmt.Errorf("set %d of [%s] out of order, %d recorded of %d planned",
			setIndex, ex.ExerciseID, len(rec.Sets), len(ex.Sets))
	}

	rec.Sets = append(rec.Sets, SetRecord{
		SetIndex:    setIndex,
		Weight:      weight,
		Reps:        reps,
		CompletedAt: at,
	})
	if len(rec.Sets) == len(ex.Sets) {
		completedAt := at
		rec.Completed = true
		rec.CompletedAt = &completedAt
	}

	return rec, nil
}

// snapshot returns a deep copy of all records, in the order exercises were started.
func (a *accumulator) snapshot() []ExerciseRecord {
	out := make([]ExerciseRecord, 0, len(a.order))
	for _, id := range a.order {
		rec := a.records[id]
		cp := *rec
		cp.Sets = append([]SetRecord(nil), rec.Sets...)
		if rec.CompletedAt != nil {
			completedAt := *rec.CompletedAt
			cp.CompletedAt = &completedAt
		}
		out = append(out, cp)
	}
	return out
}

func (a *accumulator) allCompleted(day *RoutineDay) bool {
	for _, ex := range day.Exercises {
		if len(ex.Sets) == 0 {
			continue
		}
		if !a.isCompleted(ex.ExerciseID) {
			return false
		}
	}
	return true
}
