package routines

import (
	"context"
	"errors"
	"time"

	"github.com/2beens/gymcoach/internal/telemetry/tracing"
	"github.com/2beens/gymcoach/internal/workout"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var _ workout.RoutineStore = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// FetchRoutine returns the routine only if userID authored it.
func (r *Repo) FetchRoutine(ctx context.Context, userID, id string) (_ *workout.Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.fetch")
	span.SetAttributes(attribute.String("id", id))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	routine := &workout.Routine{}
	err = r.db.
		QueryRow(ctx, `
			SELECT id, name, days
			FROM routine
			WHERE id = $1 AND user_id = $2
		`, id, userID).
		Scan(&routine.ID, &routine.Name, &routine.Days)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoutineNotFound
		}
		return nil, err
	}

	return routine, nil
}

// FetchAssignedRoutine returns the assigned routine to its student and to the coach who assigned it.
func (r *Repo) FetchAssignedRoutine(ctx context.Context, userID, id string) (_ *workout.Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.fetchAssigned")
	span.SetAttributes(attribute.String("id", id))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	routine := &workout.Routine{}
	err = r.db.
		QueryRow(ctx, `
			SELECT id, name, days
			FROM assigned_routine
			WHERE id = $1 AND (student_id = $2 OR coach_id = $2)
		`, id, userID).
		Scan(&routine.ID, &routine.Name, &routine.Days)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoutineNotFound
		}
		return nil, err
	}

	return routine, nil
}

func (r *Repo) AddRoutine(ctx context.Context, userID string, newRoutine NewRoutine) (_ *workout.Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := newRoutine.Validate(); err != nil {
		return nil, err
	}

	routine := &workout.Routine{
		ID:   uuid.NewString(),
		Name: newRoutine.Name,
		Days: newRoutine.Days,
	}
	if _, err := r.db.Exec(ctx, `
		INSERT INTO routine (id, user_id, name, days, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		routine.ID,
		userID,
		routine.Name,
		routine.Days,
		time.Now(),
	); err != nil {
		return nil, err
	}

	return routine, nil
}

// AssignRoutine copies a routine owned by coachID to studentID. Later changes to the
// original do not affect the assigned copy.
func (r *Repo) AssignRoutine(ctx context.Context, coachID, routineID, studentID string) (_ *workout.Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.assign")
	span.SetAttributes(attribute.String("routine.id", routineID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	assigned := &workout.Routine{
		ID: uuid.NewString(),
	}
	err = r.db.
		QueryRow(ctx, `
			INSERT INTO assigned_routine (id, coach_id, student_id, routine_id, name, days, created_at)
			SELECT $1, user_id, $2, id, name, days, $3
			FROM routine
			WHERE id = $4 AND user_id = $5
			RETURNING name, days
		`,
			assigned.ID,
			studentID,
			time.Now(),
			routineID,
			coachID,
		).
		Scan(&assigned.Name, &assigned.Days)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoutineNotFound
		}
		return nil, err
	}

	return assigned, nil
}

// ListAssigned returns routines assigned to the student, newest first.
func (r *Repo) ListAssigned(ctx context.Context, studentID string) (_ []workout.Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.listAssigned")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT id, name, days
		FROM assigned_routine
		WHERE student_id = $1
		ORDER BY created_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routines []workout.Routine
	for rows.Next() {
		var routine workout.Routine
		if err := rows.Scan(&routine.ID, &routine.Name, &routine.Days); err != nil {
			return nil, err
		}
		routines = append(routines, routine)
	}

	return routines, rows.Err()
}
