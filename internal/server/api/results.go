// Package api provides HTTP API handlers for the PosePlay kiosk.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/poseplay/internal/store"
)

// ResultsHandler handles HTTP requests for stored game results.
type ResultsHandler struct {
	store *store.Store
}

// NewResultsHandler creates a new ResultsHandler with the given store.
func NewResultsHandler(s *store.Store) *ResultsHandler {
	return &ResultsHandler{store: s}
}

// ServeHTTP routes requests to the appropriate method.
// Expected paths: /api/results, /api/results/best or /api/results/{id}
func (h *ResultsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/results")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	case "best":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.best(w, r)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, path)
	case http.MethodDelete:
		h.delete(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type listResultsResponse struct {
	Results []*store.Result `json:"results"`
}

type resultResponse struct {
	*store.Result
	Shares []*store.Share `json:"shares"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Debug().Err(err).Msg("failed to write response")
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// limitParam reads ?limit=, returning 0 (the store default) when absent.
func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return n, nil
}

// list handles GET /api/results and returns the most recent results.
func (h *ResultsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.store.Results().List(limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list results")
		writeError(w, http.StatusInternalServerError, "Failed to list results")
		return
	}
	writeJSON(w, http.StatusOK, listResultsResponse{Results: nonNil(results)})
}

// best handles GET /api/results/best and returns the leaderboard.
func (h *ResultsHandler) best(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.store.Results().Best(limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list best results")
		writeError(w, http.StatusInternalServerError, "Failed to list results")
		return
	}
	writeJSON(w, http.StatusOK, listResultsResponse{Results: nonNil(results)})
}

// get handles GET /api/results/{id} and returns one result with its share links.
func (h *ResultsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	result, err := h.store.Results().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Result not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get result")
		return
	}

	shares, err := h.store.Shares().ListByResult(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get share links")
		return
	}
	if shares == nil {
		shares = []*store.Share{}
	}

	writeJSON(w, http.StatusOK, resultResponse{Result: result, Shares: shares})
}

// delete handles DELETE /api/results/{id}.
func (h *ResultsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Results().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Result not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete result")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nonNil(results []*store.Result) []*store.Result {
	if results == nil {
		return []*store.Result{}
	}
	return results
}
