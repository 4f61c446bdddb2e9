package personalmax

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/2beens/gymcoach/internal/telemetry/tracing"
	"github.com/2beens/gymcoach/internal/workout"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrInvalidPersonalMax = errors.New("invalid personal max")

	_ workout.PersonalMaxStore = (*Repo)(nil)
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Get returns nil, nil if the user has no recorded max for the exercise.
func (r *Repo) Get(ctx context.Context, userID, exerciseID string) (_ *workout.PersonalMax, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.personalmax.get")
	span.SetAttributes(attribute.String("exercise.id", exerciseID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	pm := &workout.PersonalMax{}
	err = r.db.
		QueryRow(ctx, `
			SELECT user_id, exercise_id, max_weight, max_reps, updated_at
			FROM personal_max
			WHERE user_id = $1 AND exercise_id = $2
		`, userID, exerciseID).
		Scan(&pm.UserID, &pm.ExerciseID, &pm.MaxWeight, &pm.MaxReps, &pm.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return pm, nil
}

func (r *Repo) FetchPersonalMax(ctx context.Context, userID, exerciseID string) (*workout.PersonalMax, error) {
	return r.Get(ctx, userID, exerciseID)
}

func (r *Repo) Upsert(ctx context.Context, pm workout.PersonalMax) (_ *workout.PersonalMax, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.personalmax.upsert")
	span.SetAttributes(attribute.String("exercise.id", pm.ExerciseID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := Validate(pm); err != nil {
		return nil, err
	}

	if pm.UpdatedAt.IsZero() {
		pm.UpdatedAt = time.Now()
	}
	if _, err := r.db.Exec(ctx, `
		INSERT INTO personal_max (user_id, exercise_id, max_weight, max_reps, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, exercise_id) DO UPDATE
		SET max_weight = EXCLUDED.max_weight,
			max_reps = EXCLUDED.max_reps,
			updated_at = EXCLUDED.updated_at
	`,
		pm.UserID,
		pm.ExerciseID,
		pm.MaxWeight,
		pm.MaxReps,
		pm.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &pm, nil
}

func Validate(pm workout.PersonalMax) error {
	if pm.UserID == "" || pm.ExerciseID == "" {
		return fmt.Errorf("%w: user and exercise id required", ErrInvalidPersonalMax)
	}
	if pm.MaxWeight < 0 || math.IsNaN(pm.MaxWeight) || math.IsInf(pm.MaxWeight, 0) {
		return fmt.Errorf("%w: max weight must be a non-negative number", ErrInvalidPersonalMax)
	}
	if pm.MaxReps != nil && *pm.MaxReps <= 0 {
		return fmt.Errorf("%w: max reps must be positive", ErrInvalidPersonalMax)
	}
	return nil
}
