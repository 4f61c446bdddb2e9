package workout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/gymcoach/internal/telemetry/metrics"
	"github.com/2beens/gymcoach/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultTickInterval    = time.Second
	defaultCallbackTimeout = 10 * time.Second
)

type Params struct {
	UserID string

	Routines      RoutineStore
	PersonalMaxes PersonalMaxStore
	Sessions      SessionStore
	// Alerts and Lifecycle are optional, without them the foreground tick is the only rest source.
	Alerts    AlertScheduler
	Lifecycle LifecycleSignal

	Clock              Clock
	Metrics            *metrics.Manager
	DefaultRestSeconds int
	TickInterval       time.Duration
	CallbackTimeout    time.Duration

	// OnEvent receives user facing messages, never called with the controller locked.
	OnEvent func(Event)
}

type activeSession struct {
	id          string
	day         *RoutineDay
	startTime   time.Time
	acc         *accumulator
	pendingSync bool
}

// Controller walks one user through a routine: day, exercise, sets and rests between them.
// All methods are safe for concurrent use.
type Controller struct {
	mu sync.Mutex
	wg sync.WaitGroup

	userID          string
	routines        RoutineStore
	personalMaxes   PersonalMaxStore
	sessions        SessionStore
	alerts          AlertScheduler
	lifecycle       LifecycleSignal
	clock           Clock
	metrics         *metrics.Manager
	defaultRest     int
	tickInterval    time.Duration
	callbackTimeout time.Duration
	onEvent         func(Event)

	closed        bool
	pending       []Event
	pendingAlerts []Alert
	state         StateKind
	appState      AppState

	routine       *Routine
	routineSource RoutineSource
	session       *activeSession

	exercise    *RoutineExercise
	setIndex    int
	personalMax *PersonalMax
	summary     *ExerciseSummary
	finished    *Session

	timer    *restTimer
	timerGen uint64

	unsubLifecycle func()
	unsubAlerts    func()
}

func NewController(params Params) (*Controller, error) {
	if params.UserID == "" {
		return nil, errors.New("user id not set")
	}
	if params.Routines == nil || params.Sessions == nil {
		return nil, errors.New("routine and session stores are required")
	}

	c := &Controller{
		userID:          params.UserID,
		routines:        params.Routines,
		personalMaxes:   params.PersonalMaxes,
		sessions:        params.Sessions,
		alerts:          params.Alerts,
		lifecycle:       params.Lifecycle,
		clock:           params.Clock,
		metrics:         params.Metrics,
		defaultRest:     params.DefaultRestSeconds,
		tickInterval:    params.TickInterval,
		callbackTimeout: params.CallbackTimeout,
		onEvent:         params.OnEvent,
		state:           SelectingDay,
		appState:        Foreground,
	}

	if c.clock == nil {
		c.clock = SystemClock{}
	}
	if c.defaultRest <= 0 {
		c.defaultRest = DefaultRestSeconds
	}
	if c.tickInterval <= 0 {
		c.tickInterval = defaultTickInterval
	}
	if c.callbackTimeout <= 0 {
		c.callbackTimeout = defaultCallbackTimeout
	}
	if c.lifecycle != nil {
		if current := c.lifecycle.Current(); current.IsValid() {
			c.appState = current
		}
	}

	return c, nil
}

func (c *Controller) UserID() string {
	return c.userID
}

// LoadRoutine fetches the routine the workout is done from. Allowed only while selecting a day.
func (c *Controller) LoadRoutine(ctx context.Context, routineID string, source RoutineSource) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.controller.loadRoutine")
	span.SetAttributes(attribute.String("routine.id", routineID), attribute.String("routine.source", string(source)))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if !source.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidRoutineKind, source)
	}

	c.mu.Lock()
	defer c.unlockAndFlush()

	if err := c.checkState("load routine", SelectingDay); err != nil {
		return err
	}

	var routine *Routine
	switch source {
	case Assigned:
		routine, err = c.routines.FetchAssignedRoutine(ctx, c.userID, routineID)
	default:
		routine, err = c.routines.FetchRoutine(ctx, c.userID, routineID)
	}
	if err == nil && (routine == nil || len(routine.Days) == 0) {
		err = ErrRoutineEmpty
	}
	if err != nil {
		loadErr := &LoadError{RoutineID: routineID, Source: source, Err: err}
		log.Errorf("workout [%s]: %s", c.userID, loadErr)
		c.emit(EventError, "Routine could not be loaded", loadErr)
		return loadErr
	}

	c.routine = routine
	c.routineSource = source
	log.Debugf("workout [%s]: loaded routine [%s] with %d days", c.userID, routine.ID, len(routine.Days))

	return nil
}

// SelectDay starts a new session for the given routine day.
func (c *Controller) SelectDay(ctx context.Context, dayNumber int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.controller.selectDay")
	span.SetAttributes(attribute.Int("day.number", dayNumber))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mu.Lock()
	defer c.unlockAndFlush()

	if err := c.checkState("select day", SelectingDay); err != nil {
		return err
	}
	if c.routine == nil {
		return ErrRoutineNotLoaded
	}

	day, ok := c.routine.Day(dayNumber)
	if !ok {
		return fmt.Errorf("%w: %d", ErrDayNotFound, dayNumber)
	}

	startTime := c.clock.Now()
	sessionID, err := c.sessions.CreateSession(ctx, NewSession{
		UserID:      c.userID,
		RoutineID:   c.routine.ID,
		RoutineName: c.routine.Name,
		DayNumber:   day.Number,
		DayName:     day.Name,
		StartTime:   startTime,
	})
	if err != nil {
		createErr := &SessionCreateError{DayNumber: dayNumber, Err: err}
		log.Errorf("workout [%s]: %s", c.userID, createErr)
		c.countPushFailure("create")
		c.emit(EventError, "Workout could not be started, try again", createErr)
		return createErr
	}

	c.session = &activeSession{
		id:        sessionID,
		day:       day,
		startTime: startTime,
		acc:       newAccumulator(),
	}
	c.state = SelectingExercise
	c.subscribe()

	if c.metrics != nil {
		c.metrics.CounterSessionsStarted.Inc()
	}
	log.Debugf("workout [%s]: session [%s] started for day %d", c.userID, sessionID, dayNumber)

	return nil
}

// SelectExercise starts (or resumes) execution of a not yet completed exercise.
func (c *Controller) SelectExercise(ctx context.Context, exerciseID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.controller.selectExercise")
	span.SetAttributes(attribute.String("exercise.id", exerciseID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mu.Lock()
	defer c.unlockAndFlush()

	if err := c.checkState("select exercise", SelectingExercise); err != nil {
		return err
	}

	ex, ok := c.session.day.Exercise(exerciseID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrExerciseNotFound, exerciseID)
	}
	if len(ex.Sets) == 0 {
		return fmt.Errorf("%w: %s", ErrNoPlannedSets, exerciseID)
	}
	if c.session.acc.isCompleted(exerciseID) {
		return fmt.Errorf("%w: %s", ErrExerciseCompleted, exerciseID)
	}

	c.exercise = ex
	c.setIndex = c.session.acc.recordedCount(exerciseID)
	c.personalMax = c.fetchPersonalMax(ctx, exerciseID)
	c.summary = nil
	c.state = ExecutingSet

	return nil
}

// fetchPersonalMax never fails, a missing or unreadable max only disables percentage weights.
func (c *Controller) fetchPersonalMax(ctx context.Context, exerciseID string) *PersonalMax {
	if c.personalMaxes == nil {
		return nil
	}

	pm, err := c.personalMaxes.FetchPersonalMax(ctx, c.userID, exerciseID)
	if err != nil {
		log.Warnf("workout [%s]: %s", c.userID, &PersonalMaxFetchError{ExerciseID: exerciseID, Err: err})
		return nil
	}
	return pm
}

// CompleteSet records the current set. The weight is the override if given, otherwise it
// is resolved from the planned set. Reps are always the planned ones.
func (c *Controller) CompleteSet(ctx context.Context, weightOverride *float64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.controller.completeSet")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if weightOverride != nil && *weightOverride < 0 {
		return ErrInvalidLoadWeight
	}

	c.mu.Lock()
	defer c.unlockAndFlush()

	if err := c.checkState("complete set", ExecutingSet); err != nil {
		return err
	}

	ex := c.exercise
	planned := ex.Sets[c.setIndex]
	weight := ResolveWeight(planned, c.personalMax, weightOverride)

	rec, err := c.session.acc.appendSet(*ex, c.setIndex, weight, planned.Reps, c.clock.Now())
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.String("exercise.id", ex.ExerciseID),
		attribute.Int("set.index", c.setIndex),
	)
	if c.metrics != nil {
		c.metrics.CounterSetsCompleted.Inc()
	}

	if !rec.Completed {
		c.startRest(ctx, planned.RestOr(c.defaultRest), c.setIndex+1)
		return nil
	}

	summary := Summarize(*ex, rec, c.defaultRest)
	c.summary = &summary
	c.state = ExerciseComplete
	if c.metrics != nil {
		c.metrics.CounterExercisesCompleted.Inc()
	}
	c.emit(EventToast, fmt.Sprintf("%s done", ex.Name), nil)
	c.pushPartial(ctx)

	return nil
}

// pushPartial stores the progress so far. A failure is logged and swallowed, the next
// push carries the full record list again. The write outlives a cancelled caller.
func (c *Controller) pushPartial(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.callbackTimeout)
	defer cancel()

	err := c.sessions.UpdateSession(ctx, c.session.id, SessionUpdate{
		Exercises: c.session.acc.snapshot(),
	})
	if err != nil {
		updateErr := &SessionUpdateError{SessionID: c.session.id, Err: err}
		log.Errorf("workout [%s]: %s", c.userID, updateErr)
		c.session.pendingSync = true
		c.countPushFailure("partial")
		c.emit(EventError, "Progress could not be saved, it will be saved with the next exercise", updateErr)
		return
	}
	c.session.pendingSync = false
}

func (c *Controller) SkipRest(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.controller.skipRest")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mu.Lock()
	defer c.unlockAndFlush()

	if err := c.checkState("skip rest", Resting); err != nil {
		return err
	}
	c.finishRest(ctx, restSourceSkip)

	return nil
}

// BackToExercises returns to exercise selection. Leaving mid exercise cancels the rest
// timer, sets recorded so far stay and the exercise can be resumed.
func (c *Controller) BackToExercises(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.controller.backToExercises")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mu.Lock()
	defer c.unlockAndFlush()

	if err := c.checkState("back to exercises", ExerciseComplete, ExecutingSet, Resting); err != nil {
		return err
	}

	c.clearRest(ctx)
	c.exercise = nil
	c.personalMax = nil
	c.summary = nil
	c.setIndex = 0
	c.state = SelectingExercise

	return nil
}

// Finish completes the session. Only possible once every exercise of the day is done;
// if the store write fails the controller stays on exercise selection.
func (c *Controller) Finish(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.controller.finish")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mu.Lock()
	defer c.unlockAndFlush()

	if err := c.checkState("finish", SelectingExercise); err != nil {
		return err
	}
	if !c.session.acc.allCompleted(c.session.day) {
		return ErrFinishUnavailable
	}

	endTime := c.clock.Now()
	completed := true
	records := c.session.acc.snapshot()
	if err := c.sessions.UpdateSession(ctx, c.session.id, SessionUpdate{
		Exercises: records,
		Completed: &completed,
		EndTime:   &endTime,
	}); err != nil {
		updateErr := &SessionUpdateError{SessionID: c.session.id, Final: true, Err: err}
		log.Errorf("workout [%s]: %s", c.userID, updateErr)
		c.countPushFailure("final")
		c.emit(EventError, "Workout could not be saved, try finishing again", updateErr)
		return updateErr
	}

	c.finished = &Session{
		ID:          c.session.id,
		UserID:      c.userID,
		RoutineID:   c.routine.ID,
		RoutineName: c.routine.Name,
		DayNumber:   c.session.day.Number,
		DayName:     c.session.day.Name,
		Exercises:   records,
		Completed:   true,
		StartTime:   c.session.startTime,
		EndTime:     &endTime,
	}
	c.session.pendingSync = false
	c.state = SessionFinished
	c.unsubscribe()

	if c.metrics != nil {
		c.metrics.CounterSessionsFinished.Inc()
		c.metrics.HistogramSessionDuration.Observe(endTime.Sub(c.session.startTime).Seconds())
	}
	c.emit(EventToast, "Workout finished", nil)
	log.Debugf("workout [%s]: session [%s] finished", c.userID, c.session.id)

	return nil
}

// Abandon goes back to day selection from any state. Progress already pushed to the
// session store stays there, the rest is dropped.
func (c *Controller) Abandon(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.controller.abandon")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mu.Lock()
	defer c.unlockAndFlush()

	if c.closed {
		return ErrControllerClosed
	}

	if c.session != nil && c.state != SessionFinished {
		log.Debugf("workout [%s]: session [%s] abandoned in %s", c.userID, c.session.id, c.state)
	}
	c.reset(ctx)

	return nil
}

func (c *Controller) reset(ctx context.Context) {
	c.clearRest(ctx)
	c.unsubscribe()
	c.session = nil
	c.exercise = nil
	c.personalMax = nil
	c.summary = nil
	c.finished = nil
	c.setIndex = 0
	c.state = SelectingDay
}

// Close releases timers and subscriptions and waits for the tick goroutine to exit.
// The controller can not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true

	ctx, cancel := c.callbackCtx()
	c.reset(ctx)
	cancel()
	c.pending = nil
	c.pendingAlerts = nil
	c.mu.Unlock()

	c.wg.Wait()
}

// Summary returns the summary of an exercise of the active day.
func (c *Controller) Summary(exerciseID string) (ExerciseSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return ExerciseSummary{}, invalidTransition("summary", c.state)
	}
	ex, ok := c.session.day.Exercise(exerciseID)
	if !ok {
		return ExerciseSummary{}, fmt.Errorf("%w: %s", ErrExerciseNotFound, exerciseID)
	}

	return Summarize(*ex, c.session.acc.record(exerciseID), c.defaultRest), nil
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	snap := Snapshot{
		State:    c.state,
		AppState: c.appState,
	}

	if c.routine != nil {
		snap.RoutineID = c.routine.ID
		snap.RoutineName = c.routine.Name
		snap.RoutineSource = c.routineSource
		snap.Days = make([]DayOption, 0, len(c.routine.Days))
		for _, d := range c.routine.Days {
			snap.Days = append(snap.Days, DayOption{
				Number:    d.Number,
				Name:      d.Name,
				Exercises: len(d.Exercises),
			})
		}
	}

	if s := c.session; s != nil {
		snap.SessionID = s.id
		snap.DayNumber = s.day.Number
		snap.DayName = s.day.Name
		snap.PendingSync = s.pendingSync
		snap.Exercises = make([]ExerciseProgress, 0, len(s.day.Exercises))
		for _, ex := range s.day.Exercises {
			snap.Exercises = append(snap.Exercises, ExerciseProgress{
				ExerciseID:   ex.ExerciseID,
				Name:         ex.Name,
				TotalSets:    len(ex.Sets),
				RecordedSets: s.acc.recordedCount(ex.ExerciseID),
				Completed:    len(ex.Sets) == 0 || s.acc.isCompleted(ex.ExerciseID),
			})
		}
		snap.FinishAvailable = c.state == SelectingExercise && s.acc.allCompleted(s.day)
	}

	if ex := c.exercise; ex != nil {
		snap.ExerciseID = ex.ExerciseID
		snap.ExerciseName = ex.Name
		snap.SetIndex = c.setIndex
		snap.TotalSets = len(ex.Sets)
		if c.timer != nil {
			snap.SetIndex = c.timer.nextSetIndex
		}
		if snap.SetIndex < len(ex.Sets) {
			planned := ex.Sets[snap.SetIndex]
			snap.PlannedReps = planned.Reps
			if w := ResolveWeight(planned, c.personalMax, nil); w > 0 {
				snap.SuggestedWeight = &w
			}
		}
		if c.personalMax != nil {
			maxWeight := c.personalMax.MaxWeight
			snap.PersonalMax = &maxWeight
		}
	}

	if t := c.timer; t != nil {
		startedAt := t.startedAt
		snap.RestStartedAt = &startedAt
		snap.RestDurationSeconds = int(t.duration / time.Second)
		snap.RemainingSeconds = t.remainingSeconds(now)
	}

	if c.summary != nil {
		summary := *c.summary
		snap.Summary = &summary
	}
	if c.finished != nil {
		finished := *c.finished
		snap.Finished = &finished
	}

	return snap
}

func (c *Controller) checkState(op string, allowed ...StateKind) error {
	if c.closed {
		return ErrControllerClosed
	}
	for _, s := range allowed {
		if c.state == s {
			return nil
		}
	}
	return invalidTransition(op, c.state)
}

func (c *Controller) subscribe() {
	if c.lifecycle != nil && c.unsubLifecycle == nil {
		c.unsubLifecycle = c.lifecycle.OnChange(c.onLifecycleChange)
		if current := c.lifecycle.Current(); current.IsValid() {
			c.appState = current
		}
	}
	if c.alerts != nil && c.unsubAlerts == nil {
		c.unsubAlerts = c.alerts.OnFired(c.onAlertFired)
	}
}

func (c *Controller) unsubscribe() {
	if c.unsubLifecycle != nil {
		c.unsubLifecycle()
		c.unsubLifecycle = nil
	}
	if c.unsubAlerts != nil {
		c.unsubAlerts()
		c.unsubAlerts = nil
	}
}

// callbackCtx is used by work not started by a caller (ticks, lifecycle and alert callbacks).
func (c *Controller) callbackCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.callbackTimeout)
}

func (c *Controller) countPushFailure(kind string) {
	if c.metrics != nil {
		c.metrics.CounterSessionPushFailures.WithLabelValues(kind).Inc()
	}
}
