// Health and history handlers under the reserved path prefix.

package engine

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mockhost/mockhost/pkg/chaos"
	"github.com/mockhost/mockhost/pkg/httputil"
	"github.com/mockhost/mockhost/pkg/logging"
)

// HealthResponse is the body served at HealthPath.
type HealthResponse struct {
	Status    string              `json:"status"`
	Timestamp string              `json:"timestamp"`
	Endpoints int                 `json:"endpoints"`
	Invalid   []*BrokenEndpoint   `json:"invalid,omitempty"`
	Revision  uint64              `json:"revision"`
	Chaos     chaos.StatsSnapshot `json:"chaos"`
	Error     string              `json:"error,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET")
		return
	}

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Chaos:     h.stats.Snapshot(),
	}

	snap, err := h.Snapshot(r.Context())
	if err != nil {
		logging.FromContext(r.Context(), h.log).Warn("health check failed", "error", err)
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	resp.Endpoints = snap.Len()
	resp.Invalid = snap.Broken
	resp.Revision = snap.Revision
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// handleHistory lists recent resolutions (GET) or clears them (DELETE).
// GET accepts method, path, outcome, endpointId and limit query filters.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		filter := &HistoryFilter{
			Method:     q.Get("method"),
			Path:       q.Get("path"),
			Outcome:    Outcome(q.Get("outcome")),
			EndpointID: q.Get("endpointId"),
		}
		if s := q.Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				httputil.WriteBadRequest(w, "invalid_limit", "limit must be a non-negative integer")
				return
			}
			filter.Limit = n
		}
		entries := h.history.List(filter)
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"requests": entries,
			"count":    len(entries),
		})
	case http.MethodDelete:
		h.history.Clear()
		w.WriteHeader(http.StatusNoContent)
	default:
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET or DELETE")
	}
}
