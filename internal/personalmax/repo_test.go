//go:build integration_test || all_tests

package personalmax_test

import (
	"testing"
	"time"

	"github.com/2beens/gymcoach/internal/personalmax"
	"github.com/2beens/gymcoach/internal/workout"
	testingpkg "github.com/2beens/gymcoach/pkg/testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo_UpsertAndGet(t *testing.T) {
	ctx, pool := testingpkg.GetPostgresPool(t)
	repo := personalmax.NewRepo(pool)

	userID := gofakeit.UUID()
	exerciseID := gofakeit.UUID()

	got, err := repo.Get(ctx, userID, exerciseID)
	require.NoError(t, err)
	assert.Nil(t, got)

	reps := 3
	_, err = repo.Upsert(ctx, workout.PersonalMax{
		UserID:     userID,
		ExerciseID: exerciseID,
		MaxWeight:  120.5,
		MaxReps:    &reps,
		UpdatedAt:  time.Now(),
	})
	require.NoError(t, err)

	got, err = repo.FetchPersonalMax(ctx, userID, exerciseID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 120.5, got.MaxWeight)
	require.NotNil(t, got.MaxReps)
	assert.Equal(t, 3, *got.MaxReps)

	_, err = repo.Upsert(ctx, workout.PersonalMax{
		UserID:     userID,
		ExerciseID: exerciseID,
		MaxWeight:  125,
	})
	require.NoError(t, err)

	got, err = repo.Get(ctx, userID, exerciseID)
	require.NoError(t, err)
	assert.Equal(t, 125.0, got.MaxWeight)
	assert.Nil(t, got.MaxReps)

	_, err = repo.Upsert(ctx, workout.PersonalMax{UserID: userID, ExerciseID: exerciseID, MaxWeight: -1})
	assert.ErrorIs(t, err, personalmax.ErrInvalidPersonalMax)
}
