package sessions

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/2beens/gymcoach/internal/auth"
	"github.com/2beens/gymcoach/internal/telemetry/tracing"
	"github.com/2beens/gymcoach/internal/workout"
	"github.com/2beens/gymcoach/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const maxPageSize = 100

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=sessions_test

type sessionsRepo interface {
	Get(ctx context.Context, userID, sessionID string) (*workout.Session, error)
	ListForUser(ctx context.Context, userID string, page, size int) ([]*workout.Session, int, error)
}

type SessionsPageResponse struct {
	Sessions []*workout.Session `json:"sessions"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	Size     int                `json:"size"`
}

type Handler struct {
	repo sessionsRepo
}

func NewHandler(repo sessionsRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
		return
	}

	id := mux.Vars(r)["id"]
	session, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			pkg.WriteJSONError(w, "session not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get session [%s]: %s", id, err)
		pkg.WriteJSONError(w, "failed to get session", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, session, http.StatusOK)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	page, err := strconv.Atoi(vars["page"])
	if err != nil || page < 1 {
		pkg.WriteJSONError(w, "invalid page", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(vars["size"])
	if err != nil || size < 1 || size > maxPageSize {
		pkg.WriteJSONError(w, "invalid size", http.StatusBadRequest)
		return
	}

	sessions, total, err := handler.repo.ListForUser(ctx, userID, page, size)
	if err != nil {
		log.Errorf("failed to list sessions of user [%s]: %s", userID, err)
		pkg.WriteJSONError(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []*workout.Session{}
	}

	pkg.WriteJSON(w, SessionsPageResponse{
		Sessions: sessions,
		Total:    total,
		Page:     page,
		Size:     size,
	}, http.StatusOK)
}
