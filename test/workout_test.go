//go:build integration_test || all_tests

package test

import (
	"context"
	"net/http"
	"time"

	"github.com/2beens/gymcoach/internal/routines"
	"github.com/2beens/gymcoach/internal/sessions"
	"github.com/2beens/gymcoach/internal/workout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func squatRoutine() routines.NewRoutine {
	return routines.NewRoutine{
		Name: "Squat Day",
		Days: []workout.RoutineDay{
			{
				Number: 1,
				Name:   "Legs",
				Exercises: []workout.RoutineExercise{
					{
						ExerciseID: "back-squat",
						Name:       "Back Squat",
						Sets: []workout.PlannedSet{
							{Reps: 5, LoadPercentage: ptr(50.0), RestSeconds: ptr(1)},
							{Reps: 5, LoadPercentage: ptr(50.0)},
						},
					},
				},
			},
		},
	}
}

func (s *IntegrationTestSuite) TestUnauthorized() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	anon := &apiClient{t: s.T()}
	status, _ := anon.do(ctx, http.MethodGet, "/workout", nil)
	s.Equal(http.StatusUnauthorized, status)

	status, _ = anon.do(ctx, http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, status)
}

func (s *IntegrationTestSuite) TestWorkout_FullSession() {
	t := s.T()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := s.newUser(ctx)

	var routine workout.Routine
	client.doJSON(ctx, http.MethodPost, "/routines", squatRoutine(), http.StatusCreated, &routine)
	require.NotEmpty(t, routine.ID)

	client.doJSON(ctx, http.MethodPut, "/personalmax", map[string]any{
		"exerciseId": "back-squat",
		"maxWeight":  120,
	}, http.StatusOK, nil)

	var snap workout.Snapshot
	client.doJSON(ctx, http.MethodPost, "/workout/start", workout.StartRequest{RoutineID: routine.ID}, http.StatusCreated, &snap)
	assert.Equal(t, workout.SelectingDay, snap.State)
	require.Len(t, snap.Days, 1)

	client.doJSON(ctx, http.MethodPost, "/workout/day", workout.SelectDayRequest{DayNumber: 1}, http.StatusOK, &snap)
	assert.Equal(t, workout.SelectingExercise, snap.State)
	require.NotEmpty(t, snap.SessionID)
	sessionID := snap.SessionID

	client.doJSON(ctx, http.MethodPost, "/workout/exercise", workout.SelectExerciseRequest{ExerciseID: "back-squat"}, http.StatusOK, &snap)
	assert.Equal(t, workout.ExecutingSet, snap.State)
	require.NotNil(t, snap.SuggestedWeight)
	assert.Equal(t, 60.0, *snap.SuggestedWeight)

	client.doJSON(ctx, http.MethodPost, "/workout/set/complete", nil, http.StatusOK, &snap)
	assert.Equal(t, workout.Resting, snap.State)
	assert.Equal(t, 1, snap.RemainingSeconds)

	// one second rest, finished by the ticker
	require.Eventually(t, func() bool {
		client.doJSON(ctx, http.MethodGet, "/workout", nil, http.StatusOK, &snap)
		return snap.State == workout.ExecutingSet
	}, 5*time.Second, 100*time.Millisecond)
	assert.Equal(t, 1, snap.SetIndex)

	client.doJSON(ctx, http.MethodPost, "/workout/set/complete", workout.CompleteSetRequest{Weight: ptr(62.5)}, http.StatusOK, &snap)
	assert.Equal(t, workout.ExerciseComplete, snap.State)
	require.NotNil(t, snap.Summary)
	assert.Equal(t, 122.5, snap.Summary.TotalWeight)

	client.doJSON(ctx, http.MethodPost, "/workout/back", nil, http.StatusOK, &snap)
	assert.True(t, snap.FinishAvailable)

	client.doJSON(ctx, http.MethodPost, "/workout/finish", nil, http.StatusOK, &snap)
	assert.Equal(t, workout.SessionFinished, snap.State)

	var stored workout.Session
	client.doJSON(ctx, http.MethodGet, "/sessions/"+sessionID, nil, http.StatusOK, &stored)
	assert.True(t, stored.Completed)
	assert.NotNil(t, stored.EndTime)
	require.Len(t, stored.Exercises, 1)
	assert.Len(t, stored.Exercises[0].Sets, 2)

	var page sessions.SessionsPageResponse
	client.doJSON(ctx, http.MethodGet, "/sessions/page/1/size/10", nil, http.StatusOK, &page)
	assert.Equal(t, 1, page.Total)

	var events workout.EventsResponse
	client.doJSON(ctx, http.MethodGet, "/workout/events", nil, http.StatusOK, &events)
	assert.NotEmpty(t, events.Events)

	status, _ := client.do(ctx, http.MethodDelete, "/workout", nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func (s *IntegrationTestSuite) TestWorkout_AssignedRoutine() {
	t := s.T()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	coach := s.newUser(ctx)
	student := s.newUser(ctx)

	var routine workout.Routine
	coach.doJSON(ctx, http.MethodPost, "/routines", squatRoutine(), http.StatusCreated, &routine)

	// not assigned yet, and the coach's own routine is not visible to anyone else
	status, _ := student.do(ctx, http.MethodPost, "/workout/start", workout.StartRequest{RoutineID: routine.ID, Assigned: true})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = student.do(ctx, http.MethodPost, "/workout/start", workout.StartRequest{RoutineID: routine.ID})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = student.do(ctx, http.MethodGet, "/routines/"+routine.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)

	var assigned workout.Routine
	coach.doJSON(ctx, http.MethodPost, "/routines/"+routine.ID+"/assign", routines.AssignRoutineRequest{StudentID: student.userID}, http.StatusCreated, &assigned)
	require.NotEqual(t, routine.ID, assigned.ID)

	var fetched workout.Routine
	student.doJSON(ctx, http.MethodGet, "/routines/"+assigned.ID+"?assigned=true", nil, http.StatusOK, &fetched)
	assert.Equal(t, assigned.Name, fetched.Name)
	coach.doJSON(ctx, http.MethodGet, "/routines/"+assigned.ID+"?assigned=true", nil, http.StatusOK, &fetched)
	outsider := s.newUser(ctx)
	status, _ = outsider.do(ctx, http.MethodGet, "/routines/"+assigned.ID+"?assigned=true", nil)
	assert.Equal(t, http.StatusNotFound, status)

	var list routines.AssignedRoutinesResponse
	student.doJSON(ctx, http.MethodGet, "/routines/assigned", nil, http.StatusOK, &list)
	require.Len(t, list.Routines, 1)
	assert.Equal(t, assigned.ID, list.Routines[0].ID)

	var snap workout.Snapshot
	student.doJSON(ctx, http.MethodPost, "/workout/start", workout.StartRequest{RoutineID: assigned.ID, Assigned: true}, http.StatusCreated, &snap)
	assert.Equal(t, workout.Assigned, snap.RoutineSource)

	// no personal max, so no suggested weight for a percentage set
	student.doJSON(ctx, http.MethodPost, "/workout/day", workout.SelectDayRequest{DayNumber: 1}, http.StatusOK, &snap)
	student.doJSON(ctx, http.MethodPost, "/workout/exercise", workout.SelectExerciseRequest{ExerciseID: "back-squat"}, http.StatusOK, &snap)
	assert.Nil(t, snap.SuggestedWeight)

	student.doJSON(ctx, http.MethodPost, "/workout/lifecycle", workout.LifecycleRequest{State: workout.Background}, http.StatusNoContent, nil)
	student.doJSON(ctx, http.MethodGet, "/workout", nil, http.StatusOK, &snap)
	assert.Equal(t, workout.Background, snap.AppState)

	student.doJSON(ctx, http.MethodPost, "/workout/abandon", nil, http.StatusOK, &snap)
	assert.Equal(t, workout.SelectingDay, snap.State)
}
