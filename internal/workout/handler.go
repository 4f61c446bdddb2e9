package workout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/2beens/gymcoach/internal/auth"
	"github.com/2beens/gymcoach/internal/telemetry/tracing"
	"github.com/2beens/gymcoach/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type lifecyclePublisher interface {
	Publish(userID string, state AppState)
}

type StartRequest struct {
	RoutineID string `json:"routineId"`
	Assigned  bool   `json:"assigned"`
}

type SelectDayRequest struct {
	DayNumber int `json:"dayNumber"`
}

type SelectExerciseRequest struct {
	ExerciseID string `json:"exerciseId"`
}

type CompleteSetRequest struct {
	Weight *float64 `json:"weight,omitempty"`
}

type LifecycleRequest struct {
	State AppState `json:"state"`
}

type EventsResponse struct {
	Events []Event `json:"events"`
}

type Handler struct {
	manager    *Manager
	lifecycles lifecyclePublisher
}

func NewHandler(manager *Manager, lifecycles lifecyclePublisher) *Handler {
	return &Handler{
		manager:    manager,
		lifecycles: lifecycles,
	}
}

func (handler *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.start")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("start workout, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.RoutineID == "" {
		pkg.WriteJSONError(w, "error, routine id empty", http.StatusBadRequest)
		return
	}

	source := SelfAuthored
	if req.Assigned {
		source = Assigned
	}
	span.SetAttributes(attribute.String("routine.id", req.RoutineID))

	ctrl, err := handler.manager.Start(ctx, userID, req.RoutineID, source)
	if err != nil {
		writeError(w, userID, "start", err)
		return
	}

	pkg.WriteJSON(w, ctrl.Snapshot(), http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	handler.withController(w, r, "handler.workout.get", func(ctx context.Context, ctrl *Controller) error {
		return nil
	})
}

func (handler *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.events")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
		return
	}

	events, err := handler.manager.DrainEvents(userID)
	if err != nil {
		writeError(w, userID, "events", err)
		return
	}
	if events == nil {
		events = []Event{}
	}

	pkg.WriteJSON(w, EventsResponse{Events: events}, http.StatusOK)
}

func (handler *Handler) HandleSelectDay(w http.ResponseWriter, r *http.Request) {
	var req SelectDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	handler.withController(w, r, "handler.workout.selectDay", func(ctx context.Context, ctrl *Controller) error {
		return ctrl.SelectDay(ctx, req.DayNumber)
	})
}

func (handler *Handler) HandleSelectExercise(w http.ResponseWriter, r *http.Request) {
	var req SelectExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ExerciseID == "" {
		pkg.WriteJSONError(w, "error, exercise id empty", http.StatusBadRequest)
		return
	}

	handler.withController(w, r, "handler.workout.selectExercise", func(ctx context.Context, ctrl *Controller) error {
		return ctrl.SelectExercise(ctx, req.ExerciseID)
	})
}

func (handler *Handler) HandleCompleteSet(w http.ResponseWriter, r *http.Request) {
	var req CompleteSetRequest
	// empty body means no weight override
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	handler.withController(w, r, "handler.workout.completeSet", func(ctx context.Context, ctrl *Controller) error {
		return ctrl.CompleteSet(ctx, req.Weight)
	})
}

func (handler *Handler) HandleSkipRest(w http.ResponseWriter, r *http.Request) {
	handler.withController(w, r, "handler.workout.skipRest", func(ctx context.Context, ctrl *Controller) error {
		return ctrl.SkipRest(ctx)
	})
}

func (handler *Handler) HandleBack(w http.ResponseWriter, r *http.Request) {
	handler.withController(w, r, "handler.workout.back", func(ctx context.Context, ctrl *Controller) error {
		return ctrl.BackToExercises(ctx)
	})
}

func (handler *Handler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	handler.withController(w, r, "handler.workout.finish", func(ctx context.Context, ctrl *Controller) error {
		return ctrl.Finish(ctx)
	})
}

func (handler *Handler) HandleAbandon(w http.ResponseWriter, r *http.Request) {
	handler.withController(w, r, "handler.workout.abandon", func(ctx context.Context, ctrl *Controller) error {
		return ctrl.Abandon(ctx)
	})
}

func (handler *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.summary")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
		return
	}

	ctrl, err := handler.manager.Get(userID)
	if err != nil {
		writeError(w, userID, "summary", err)
		return
	}

	summary, err := ctrl.Summary(mux.Vars(r)["exerciseId"])
	if err != nil {
		writeError(w, userID, "summary", err)
		return
	}

	pkg.WriteJSON(w, summary, http.StatusOK)
}

func (handler *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.stop")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
		return
	}

	if err := handler.manager.Stop(userID); err != nil {
		writeError(w, userID, "stop", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleLifecycle receives app foreground / background transitions. They are accepted
// even without an active workout, so the next workout starts in the right app state.
func (handler *Handler) HandleLifecycle(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.lifecycle")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req LifecycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !req.State.IsValid() {
		pkg.WriteJSONError(w, "error, state must be foreground or background", http.StatusBadRequest)
		return
	}

	span.SetAttributes(attribute.String("app.state", string(req.State)))
	handler.lifecycles.Publish(userID, req.State)

	w.WriteHeader(http.StatusNoContent)
}

// withController runs op on the user's workout and responds with the resulting snapshot.
func (handler *Handler) withController(
	w http.ResponseWriter,
	r *http.Request,
	spanName string,
	op func(ctx context.Context, ctrl *Controller) error,
) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), spanName)
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
		return
	}

	ctrl, err := handler.manager.Get(userID)
	if err != nil {
		writeError(w, userID, spanName, err)
		return
	}

	if err := op(ctx, ctrl); err != nil {
		writeError(w, userID, spanName, err)
		return
	}

	pkg.WriteJSON(w, ctrl.Snapshot(), http.StatusOK)
}

func writeError(w http.ResponseWriter, userID, op string, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("workout [%s], %s: %s", userID, op, err)
	} else {
		log.Debugf("workout [%s], %s: %s", userID, op, err)
	}
	pkg.WriteJSONError(w, err.Error(), status)
}

func errorStatus(err error) int {
	var loadErr *LoadError
	var createErr *SessionCreateError
	var updateErr *SessionUpdateError

	switch {
	case errors.As(err, &loadErr):
		if errors.Is(loadErr, ErrRoutineNotFound) || errors.Is(loadErr, ErrRoutineEmpty) {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.As(err, &createErr):
		return http.StatusBadGateway
	case errors.As(err, &updateErr) && updateErr.Final:
		return http.StatusBadGateway
	case errors.Is(err, ErrNoActiveWorkout):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrFinishUnavailable),
		errors.Is(err, ErrExerciseCompleted),
		errors.Is(err, ErrRoutineNotLoaded):
		return http.StatusConflict
	case errors.Is(err, ErrControllerClosed):
		return http.StatusGone
	case errors.Is(err, ErrDayNotFound),
		errors.Is(err, ErrExerciseNotFound),
		errors.Is(err, ErrNoPlannedSets),
		errors.Is(err, ErrInvalidLoadWeight),
		errors.Is(err, ErrInvalidRoutineKind):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
