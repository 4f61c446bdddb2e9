package notify

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/2beens/gymcoach/internal/auth"
	"github.com/2beens/gymcoach/internal/telemetry/tracing"
	"github.com/2beens/gymcoach/pkg"

	log "github.com/sirupsen/logrus"
)

type deviceRegistry interface {
	Register(ctx context.Context, userID, token string) error
}

type RegisterDeviceRequest struct {
	Token string `json:"token"`
}

type Handler struct {
	devices deviceRegistry
}

func NewHandler(devices deviceRegistry) *Handler {
	return &Handler{
		devices: devices,
	}
}

func (handler *Handler) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.devices.register")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("register device, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		pkg.WriteJSONError(w, "error, device token empty", http.StatusBadRequest)
		return
	}

	if err := handler.devices.Register(ctx, userID, req.Token); err != nil {
		log.Errorf("failed to register device of user [%s]: %s", userID, err)
		pkg.WriteJSONError(w, "failed to register device", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
