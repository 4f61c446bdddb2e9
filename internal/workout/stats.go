package workout

import "math"

// ResolveWeight picks the weight recorded for a set: the explicit override, else the
// planned fixed weight, else round(max * percentage / 100), else 0.
func ResolveWeight(planned PlannedSet, pm *PersonalMax, override *float64) float64 {
	if override != nil {
		return *override
	}
	if planned.Weight != nil {
		return *planned.Weight
	}
	if planned.LoadPercentage != nil && pm != nil {
		return math.Round(pm.MaxWeight * *planned.LoadPercentage / 100)
	}
	return 0
}

// ExerciseSummary is shown to the user once an exercise is done.
type ExerciseSummary struct {
	ExerciseID       string   `json:"exerciseId"`
	Name             string   `json:"name"`
	TotalSets        int      `json:"totalSets"`
	RecordedSets     int      `json:"recordedSets"`
	TotalWeight      float64  `json:"totalWeight"`
	TotalReps        int      `json:"totalReps"`
	TotalRestSeconds int      `json:"totalRestSeconds"`
	AvgRIR           *float64 `json:"avgRir,omitempty"`
}

// Summarize derives the summary of an exercise from its plan and the recorded sets.
// Rest of the last planned set is not counted, there's no rest after it.
func Summarize(ex RoutineExercise, rec *ExerciseRecord, defaultRest int) ExerciseSummary {
	summary := ExerciseSummary{
		ExerciseID: ex.ExerciseID,
		Name:       ex.Name,
		TotalSets:  len(ex.Sets),
	}

	if rec != nil {
		summary.RecordedSets = len(rec.Sets)
		for _, s := range rec.Sets {
			summary.TotalWeight += s.Weight
			summary.TotalReps += s.Reps
		}
	}

	var rirSum float64
	var rirCount int
	for i, planned := range ex.Sets {
		if i < len(ex.Sets)-1 {
			summary.TotalRestSeconds += planned.RestOr(defaultRest)
		}
		if planned.RIR != nil {
			rirSum += *planned.RIR
			rirCount++
		}
	}
	if rirCount > 0 {
		avg := rirSum / float64(rirCount)
		summary.AvgRIR = &avg
	}

	return summary
}
