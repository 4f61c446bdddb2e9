package routines

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2beens/gymcoach/internal/auth"
	"github.com/2beens/gymcoach/internal/telemetry/tracing"
	"github.com/2beens/gymcoach/internal/workout"
	"github.com/2beens/gymcoach/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=routines_test

type routinesRepo interface {
	FetchRoutine(ctx context.Context, userID, id string) (*workout.Routine, error)
	FetchAssignedRoutine(ctx context.Context, userID, id string) (*workout.Routine, error)
	AddRoutine(ctx context.Context, userID string, newRoutine NewRoutine) (*workout.Routine, error)
	AssignRoutine(ctx context.Context, coachID, routineID, studentID string) (*workout.Routine, error)
	ListAssigned(ctx context.Context, studentID string) ([]workout.Routine, error)
}

type AssignRoutineRequest struct {
	StudentID string `json:"studentId"`
}

type AssignedRoutinesResponse struct {
	Routines []workout.Routine `json:"routines"`
}

type Handler struct {
	repo routinesRepo
}

func NewHandler(repo routinesRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		pkg.WriteJSONError(w, "error, id empty", http.StatusBadRequest)
		return
	}

	var routine *workout.Routine
	var err error
	if r.URL.Query().Get("assigned") == "true" {
		routine, err = handler.repo.FetchAssignedRoutine(ctx, userID, id)
	} else {
		routine, err = handler.repo.FetchRoutine(ctx, userID, id)
	}
	if err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			pkg.WriteJSONError(w, "routine not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get routine [%s]: %s", id, err)
		pkg.WriteJSONError(w, "failed to get routine", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, routine, http.StatusOK)
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.add")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
		return
	}

	var newRoutine NewRoutine
	if err := json.NewDecoder(r.Body).Decode(&newRoutine); err != nil {
		log.Errorf("new routine, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := newRoutine.Validate(); err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	routine, err := handler.repo.AddRoutine(ctx, userID, newRoutine)
	if err != nil {
		log.Errorf("failed to add routine [%s] of user [%s]: %s", newRoutine.Name, userID, err)
		pkg.WriteJSONError(w, "failed to add routine", http.StatusInternalServerError)
		return
	}

	log.Debugf("new routine added: [%s] %s", routine.ID, routine.Name)
	pkg.WriteJSON(w, routine, http.StatusCreated)
}

func (handler *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.assign")
	defer span.End()

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
		return
	}

	routineID := mux.Vars(r)["id"]
	var req AssignRoutineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if routineID == "" || req.StudentID == "" {
		pkg.WriteJSONError(w, "error, routine or student id empty", http.StatusBadRequest)
		return
	}

	assigned, err := handler.repo.AssignRoutine(ctx, coachID, routineID, req.StudentID)
	if err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			pkg.WriteJSONError(w, "routine not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to assign routine [%s] to [%s]: %s", routineID, req.StudentID, err)
		pkg.WriteJSONError(w, "failed to assign routine", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, assigned, http.StatusCreated)
}

func (handler *Handler) HandleListAssigned(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.listAssigned")
	defer span.End()

	studentID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
		return
	}

	routines, err := handler.repo.ListAssigned(ctx, studentID)
	if err != nil {
		log.Errorf("failed to list assigned routines of [%s]: %s", studentID, err)
		pkg.WriteJSONError(w, "failed to list routines", http.StatusInternalServerError)
		return
	}
	if routines == nil {
		routines = []workout.Routine{}
	}

	pkg.WriteJSON(w, AssignedRoutinesResponse{Routines: routines}, http.StatusOK)
}
