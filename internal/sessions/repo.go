package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2beens/gymcoach/internal/telemetry/tracing"
	"github.com/2beens/gymcoach/internal/workout"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("invalid session")

	_ workout.SessionStore = (*Repo)(nil)
)

type Repo struct {
	db *pgxpool.Pool
	// ability to inject id generator (for tests)
	newID func() string
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db:    db,
		newID: uuid.NewString,
	}
}

func (r *Repo) CreateSession(ctx context.Context, params workout.NewSession) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.create")
	span.SetAttributes(attribute.String("routine.id", params.RoutineID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if params.UserID == "" || params.RoutineID == "" {
		return "", fmt.Errorf("%w: user and routine id required", ErrInvalidSession)
	}

	id := r.newID()
	if _, err := r.db.Exec(ctx, `
		INSERT INTO workout_session (id, user_id, routine_id, routine_name, day_number, day_name, exercises, completed, start_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
	`,
		id,
		params.UserID,
		params.RoutineID,
		params.RoutineName,
		params.DayNumber,
		params.DayName,
		[]workout.ExerciseRecord{},
		params.StartTime,
	); err != nil {
		return "", err
	}

	return id, nil
}

// UpdateSession sets only the fields present in the update.
func (r *Repo) UpdateSession(ctx context.Context, sessionID string, update workout.SessionUpdate) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.update")
	span.SetAttributes(attribute.String("session.id", sessionID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	query, args := updateQuery(sessionID, update)
	if query == "" {
		return nil
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func updateQuery(sessionID string, update workout.SessionUpdate) (string, []any) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Exercises != nil {
		add("exercises", update.Exercises)
	}
	if update.Completed != nil {
		add("completed", *update.Completed)
	}
	if update.EndTime != nil {
		add("end_time", *update.EndTime)
	}
	if len(sets) == 0 {
		return "", nil
	}

	args = append(args, sessionID)
	return fmt.Sprintf(
		"UPDATE workout_session SET %s WHERE id = $%d",
		strings.Join(sets, ", "),
		len(args),
	), args
}

func (r *Repo) Get(ctx context.Context, userID, sessionID string) (_ *workout.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.get")
	span.SetAttributes(attribute.String("session.id", sessionID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrSessionNotFound
	}

	rows, err := r.db.Query(ctx, `
		SELECT id::text, user_id, routine_id, routine_name, day_number, day_name, exercises, completed, start_time, end_time
		FROM workout_session
		WHERE id = $1 AND user_id = $2
	`, sessionID, userID)
	if err != nil {
		return nil, err
	}

	session, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return session, nil
}

// ListForUser returns a page of the user's sessions, newest first. Pages start at 1.
func (r *Repo) ListForUser(ctx context.Context, userID string, page, size int) (_ []*workout.Session, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.list")
	span.SetAttributes(attribute.Int("page", page))
	span.SetAttributes(attribute.Int("size", size))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if page < 1 || size < 1 {
		return nil, 0, fmt.Errorf("%w: page and size must be positive", ErrInvalidSession)
	}

	if err := r.db.
		QueryRow(ctx, `SELECT COUNT(*) FROM workout_session WHERE user_id = $1`, userID).
		Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id::text, user_id, routine_id, routine_name, day_number, day_name, exercises, completed, start_time, end_time
		FROM workout_session
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`, userID, size, (page-1)*size)
	if err != nil {
		return nil, 0, err
	}

	sessions, err := pgx.CollectRows(rows, scanSession)
	if err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func scanSession(row pgx.CollectableRow) (*workout.Session, error) {
	s := &workout.Session{}
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.RoutineID,
		&s.RoutineName,
		&s.DayNumber,
		&s.DayName,
		&s.Exercises,
		&s.Completed,
		&s.StartTime,
		&s.EndTime,
	); err != nil {
		return nil, err
	}
	return s, nil
}
