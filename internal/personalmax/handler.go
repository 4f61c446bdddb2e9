package personalmax

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/gymcoach/internal/auth"
	"github.com/2beens/gymcoach/internal/telemetry/tracing"
	"github.com/2beens/gymcoach/internal/workout"
	"github.com/2beens/gymcoach/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=personalmax_test

type personalMaxStore interface {
	Get(ctx context.Context, userID, exerciseID string) (*workout.PersonalMax, error)
	Upsert(ctx context.Context, pm workout.PersonalMax) (*workout.PersonalMax, error)
}

type UpsertRequest struct {
	ExerciseID string  `json:"exerciseId"`
	MaxWeight  float64 `json:"maxWeight"`
	MaxReps    *int    `json:"maxReps,omitempty"`
}

type Handler struct {
	store personalMaxStore
	now   func() time.Time
}

func NewHandler(store personalMaxStore) *Handler {
	return &Handler{
		store: store,
		now:   time.Now,
	}
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.personalmax.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
		return
	}

	exerciseID := mux.Vars(r)["exerciseId"]
	if exerciseID == "" {
		pkg.WriteJSONError(w, "error, exercise id empty", http.StatusBadRequest)
		return
	}

	pm, err := handler.store.Get(ctx, userID, exerciseID)
	if err != nil {
		log.Errorf("failed to get personal max [%s] of user [%s]: %s", exerciseID, userID, err)
		pkg.WriteJSONError(w, "failed to get personal max", http.StatusInternalServerError)
		return
	}
	if pm == nil {
		pkg.WriteJSONError(w, "personal max not found", http.StatusNotFound)
		return
	}

	pkg.WriteJSON(w, pm, http.StatusOK)
}

func (handler *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.personalmax.upsert")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("upsert personal max, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	pm := workout.PersonalMax{
		UserID:     userID,
		ExerciseID: req.ExerciseID,
		MaxWeight:  req.MaxWeight,
		MaxReps:    req.MaxReps,
		UpdatedAt:  handler.now(),
	}
	if err := Validate(pm); err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	saved, err := handler.store.Upsert(ctx, pm)
	if err != nil {
		if errors.Is(err, ErrInvalidPersonalMax) {
			pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("failed to upsert personal max [%s] of user [%s]: %s", pm.ExerciseID, userID, err)
		pkg.WriteJSONError(w, "failed to save personal max", http.StatusInternalServerError)
		return
	}

	log.Debugf("personal max [%s] of user [%s] set to %.2f", saved.ExerciseID, userID, saved.MaxWeight)
	pkg.WriteJSON(w, saved, http.StatusOK)
}
