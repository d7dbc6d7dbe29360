package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mockhost/mockhost/internal/storage"
	"github.com/mockhost/mockhost/pkg/chaos"
	"github.com/mockhost/mockhost/pkg/httputil"
	"github.com/mockhost/mockhost/pkg/logging"
	"github.com/mockhost/mockhost/pkg/metrics"
)

// Reserved paths. Requests under PathPrefix are never resolved against
// configured endpoints.
const (
	PathPrefix  = "/__mockhost/"
	HealthPath  = PathPrefix + "health"
	MetricsPath = PathPrefix + "metrics"
	HistoryPath = PathPrefix + "requests"
)

// RequestIDHeader carries the ID assigned to every request.
const RequestIDHeader = "X-Request-Id"

// Handler serves configured endpoints from a store.
type Handler struct {
	store    storage.EndpointStore
	resolver *Resolver
	log      *slog.Logger
	metrics  metrics.Provider
	registry *metrics.Registry
	stats    *chaos.Stats
	history  *History
	maxBody  int64

	// compileMu serializes snapshot rebuilds.
	compileMu sync.Mutex
	snap      atomic.Pointer[Snapshot]
}

// NewHandler creates a Handler over store.
func NewHandler(store storage.EndpointStore) *Handler {
	return &Handler{
		store:    store,
		resolver: NewResolver(nil),
		log:      logging.Nop(),
		metrics:  metrics.NoopProvider{},
		stats:    &chaos.Stats{},
		history:  NewHistory(DefaultHistorySize),
		maxBody:  MaxRequestBodySize,
	}
}

// SetLogger sets the operational logger.
func (h *Handler) SetLogger(log *slog.Logger) {
	if log == nil {
		log = logging.Nop()
	}
	h.log = log
}

// SetMetrics sets the metrics provider. A non-nil registry is also served
// at MetricsPath.
func (h *Handler) SetMetrics(provider metrics.Provider, registry *metrics.Registry) {
	if provider == nil {
		provider = metrics.NoopProvider{}
	}
	h.metrics = provider
	h.registry = registry
}

// SetSources sets where failure samples are drawn from.
func (h *Handler) SetSources(sources chaos.SourceFactory) {
	h.resolver = NewResolver(sources)
}

// SetMaxBodySize caps the request body read for rule evaluation.
func (h *Handler) SetMaxBodySize(n int64) {
	if n <= 0 {
		n = MaxRequestBodySize
	}
	h.maxBody = n
}

// SetHistory replaces the resolution history.
func (h *Handler) SetHistory(history *History) {
	if history != nil {
		h.history = history
	}
}

// Store returns the endpoint store.
func (h *Handler) Store() storage.EndpointStore { return h.store }

// Stats returns the chaos counters.
func (h *Handler) Stats() *chaos.Stats { return h.stats }

// History returns recent resolutions.
func (h *Handler) History() *History { return h.history }

// Snapshot returns the compiled endpoints for the store's current
// revision, rebuilding them when the store has changed. Endpoints that
// fail to compile are logged once per revision and kept in
// Snapshot.Broken; only store errors are returned.
func (h *Handler) Snapshot(ctx context.Context) (*Snapshot, error) {
	rev, err := h.store.Revision(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading store revision: %w", err)
	}
	if s := h.snap.Load(); s != nil && s.Revision == rev {
		return s, nil
	}

	h.compileMu.Lock()
	defer h.compileMu.Unlock()

	if s := h.snap.Load(); s != nil && s.Revision == rev {
		return s, nil
	}

	endpoints, err := h.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing endpoints: %w", err)
	}
	snap := CompileEach(endpoints)
	snap.Revision = rev
	h.snap.Store(snap)

	for _, b := range snap.Broken {
		h.log.Error("skipping invalid endpoint",
			"revision", rev, "position", b.Position, "endpoint_id", b.ID,
			"method", b.Method, "path", b.Path, "error", b.Error)
	}

	_ = h.metrics.Count(metrics.SnapshotCompiles, 1, nil)
	_ = h.metrics.Gauge(metrics.EndpointsTotal, float64(snap.Len()), nil)
	h.log.Debug("compiled endpoints", "revision", rev, "count", snap.Len(), "invalid", len(snap.Broken))
	return snap, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)

	log := h.log.With("request_id", requestID, "method", r.Method, "path", r.URL.Path)
	ctx := logging.WithLogger(r.Context(), log)
	r = r.WithContext(ctx)

	if strings.HasPrefix(r.URL.Path, PathPrefix) {
		h.serveReserved(w, r)
		return
	}

	req, err := NewRequest(r, h.maxBody)
	if err != nil {
		if errors.Is(err, ErrBodyTooLarge) {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "request_too_large", err.Error())
			return
		}
		log.Warn("failed to read request", "error", err)
		httputil.WriteBadRequest(w, "invalid_request", "Failed to read request body")
		return
	}

	var resp *ResolvedResponse
	snap, err := h.Snapshot(ctx)
	if err != nil {
		log.Error("endpoint configuration unavailable", "error", err)
		resp = errorResponse(&Trace{Method: req.Method, Path: req.Path, VariantIndex: -1, Error: err.Error()},
			http.StatusInternalServerError, OutcomeInvalidConfiguration,
			"Endpoint configuration could not be loaded")
	} else {
		resp = h.resolver.Resolve(snap, req)
	}

	h.logOutcome(log, resp)
	if resp.Trace != nil && resp.Trace.Chaos != nil {
		h.stats.Record(*resp.Trace.Chaos)
	}

	if resp.Delay > 0 {
		_ = h.metrics.Histogram(metrics.ChaosDelayMs, float64(resp.Delay.Milliseconds()), nil)
		if err := chaos.Sleep(ctx, resp.Delay); err != nil {
			h.stats.RecordCancelled()
			log.Debug("request cancelled during delay", "delay_ms", resp.Delay.Milliseconds())
			h.observe(req.Method, "cancelled", start)
			return
		}
	}

	body, contentType, err := EncodeBody(resp.Body)
	if err != nil {
		log.Error("failed to encode response body", "error", err)
		httputil.WriteInternalError(w, string(OutcomeInvalidConfiguration), "Response body could not be encoded")
		h.observe(req.Method, string(OutcomeInvalidConfiguration), start)
		return
	}
	httputil.WriteRaw(w, resp.Status, resp.Headers, contentType, body)

	h.observe(req.Method, string(resp.Outcome), start)
	h.history.Add(&HistoryEntry{
		ID:         requestID,
		Timestamp:  start,
		Method:     req.Method,
		Path:       req.Path,
		Status:     resp.Status,
		Outcome:    resp.Outcome,
		DurationMs: time.Since(start).Milliseconds(),
		Trace:      resp.Trace,
	})
}

func (h *Handler) logOutcome(log *slog.Logger, resp *ResolvedResponse) {
	tr := resp.Trace
	for _, a := range tr.Anomalies {
		log.Warn("configuration anomaly", "endpoint", tr.Endpoint, "anomaly", a)
	}

	switch resp.Outcome {
	case OutcomeNoVariant, OutcomeInvalidConfiguration:
		log.Error("request could not be resolved", "outcome", resp.Outcome, "endpoint", tr.Endpoint, "error", tr.Error)
	case OutcomeNotFound:
		log.Debug("no endpoint matched")
	default:
		log.Debug("request resolved",
			"outcome", resp.Outcome,
			"endpoint", tr.Endpoint,
			"variant", tr.Variant,
			"used_default", tr.UsedDefault,
			"status", resp.Status,
			"delay_ms", resp.Delay.Milliseconds())
	}
}

func (h *Handler) observe(method, outcome string, start time.Time) {
	tags := []string{
		metrics.Tag("outcome", outcome),
		metrics.Tag("method", strings.ToUpper(method)),
	}
	_ = h.metrics.Count(metrics.ResolveCount, 1, tags)
	_ = h.metrics.Histogram(metrics.ResolveLatencyMs, float64(time.Since(start).Microseconds())/1000, tags)
}

func (h *Handler) serveReserved(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case HealthPath:
		h.handleHealth(w, r)
	case HistoryPath:
		h.handleHistory(w, r)
	case MetricsPath:
		if h.registry == nil {
			httputil.WriteNotFound(w, "not_found", "Metrics are not enabled")
			return
		}
		h.registry.Handler().ServeHTTP(w, r)
	default:
		httputil.WriteNotFound(w, "not_found", fmt.Sprintf("Unknown path %s", r.URL.Path))
	}
}
