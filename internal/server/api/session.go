package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/poseplay/internal/app"
	"github.com/ayusman/poseplay/internal/detector"
	"github.com/ayusman/poseplay/internal/score"
)

// Controller is the part of the application the session endpoints drive.
type Controller interface {
	Snapshot() app.Snapshot
	RecordOutcome(ctx context.Context, o score.Outcome) (app.Snapshot, error)
	MarkCalibrated(ctx context.Context) (app.Snapshot, error)
	SetVideoAvailable(ctx context.Context, available bool) (app.Snapshot, error)
	SetError(ctx context.Context, active bool) (app.Snapshot, error)
	Reset(ctx context.Context) (app.Snapshot, error)
	Observe(ctx context.Context, poses []detector.Pose, frameWidth float64) (app.Snapshot, error)
}

// SessionHandler exposes the session state and the commands the kiosk UI sends.
//
//	GET  /api/state
//	POST /api/game/events       {"outcome": "hit"|"miss"}
//	POST /api/session/calibrated
//	POST /api/session/video     {"available": bool}
//	POST /api/session/error     {"active": bool}
//	POST /api/session/reset
//	POST /api/poses             {"frameWidth": 640, "poses": [...]}
type SessionHandler struct {
	ctl Controller
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(ctl Controller) *SessionHandler {
	return &SessionHandler{ctl: ctl}
}

type gameEventRequest struct {
	Outcome string `json:"outcome"`
}

type videoRequest struct {
	Available *bool `json:"available"`
}

type errorStateRequest struct {
	Active *bool `json:"active"`
}

type posesRequest struct {
	FrameWidth float64         `json:"frameWidth"`
	Poses      []detector.Pose `json:"poses"`
}

// ServeHTTP implements the http.Handler interface.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")

	if path == "/api/state" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.ctl.Snapshot())
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	switch path {
	case "/api/game/events":
		var req gameEventRequest
		if !decode(w, r, &req) {
			return
		}
		outcome, err := score.ParseOutcome(req.Outcome)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.respond(w)(h.ctl.RecordOutcome(ctx, outcome))

	case "/api/session/calibrated":
		h.respond(w)(h.ctl.MarkCalibrated(ctx))

	case "/api/session/video":
		var req videoRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Available == nil {
			writeError(w, http.StatusBadRequest, "available is required")
			return
		}
		h.respond(w)(h.ctl.SetVideoAvailable(ctx, *req.Available))

	case "/api/session/error":
		var req errorStateRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Active == nil {
			writeError(w, http.StatusBadRequest, "active is required")
			return
		}
		h.respond(w)(h.ctl.SetError(ctx, *req.Active))

	case "/api/session/reset":
		h.respond(w)(h.ctl.Reset(ctx))

	case "/api/poses":
		var req posesRequest
		if !decode(w, r, &req) {
			return
		}
		if req.FrameWidth <= 0 {
			writeError(w, http.StatusBadRequest, "frameWidth must be positive")
			return
		}
		h.respond(w)(h.ctl.Observe(ctx, req.Poses, req.FrameWidth))

	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// respond writes the snapshot, or maps err to a status code.
func (h *SessionHandler) respond(w http.ResponseWriter) func(app.Snapshot, error) {
	return func(s app.Snapshot, err error) {
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, s)
		case errors.Is(err, app.ErrNotPlaying), errors.Is(err, app.ErrNotCalibrating):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, app.ErrStopped):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}
