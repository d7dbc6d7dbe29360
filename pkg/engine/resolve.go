package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mockhost/mockhost/internal/matching"
	"github.com/mockhost/mockhost/pkg/chaos"
	"github.com/mockhost/mockhost/pkg/httputil"
	"github.com/mockhost/mockhost/pkg/mock"
	"github.com/mockhost/mockhost/pkg/template"
)

// Outcome classifies how a request was resolved.
type Outcome string

const (
	OutcomeMatched              Outcome = "matched"
	OutcomeSimulatedFailure     Outcome = "simulated_failure"
	OutcomeNotFound             Outcome = "not_found"
	OutcomeNoVariant            Outcome = "no_variant"
	OutcomeInvalidConfiguration Outcome = "invalid_configuration"
)

// Request is the part of an HTTP request that takes part in resolution.
type Request struct {
	Method  string
	Path    string
	Headers http.Header
	Query   url.Values

	// Body is the parsed request body: decoded JSON, form fields as
	// map[string]any, or nil.
	Body any
}

// Snapshot is a compiled, immutable view of an endpoint list.
type Snapshot struct {
	// Revision of the store the snapshot was built from.
	Revision uint64

	// Endpoints in declaration order.
	Endpoints []*matching.CompiledEndpoint

	// Broken lists endpoints that failed to compile, in declaration order.
	Broken []*BrokenEndpoint

	// routes is Endpoints interleaved with the broken endpoints whose path
	// still compiles, so a broken endpoint keeps the requests it would win.
	routes []*matching.CompiledEndpoint
	broken map[*matching.CompiledEndpoint]*BrokenEndpoint
}

// BrokenEndpoint is a stored endpoint that could not be compiled.
type BrokenEndpoint struct {
	Position int    `json:"position"`
	ID       string `json:"id,omitempty"`
	Method   string `json:"method,omitempty"`
	Path     string `json:"path,omitempty"`
	Error    string `json:"error"`
}

// Len returns the number of endpoints.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Endpoints)
}

func (s *Snapshot) candidates() []*matching.CompiledEndpoint {
	if s == nil {
		return nil
	}
	if s.routes != nil {
		return s.routes
	}
	return s.Endpoints
}

// Compile builds a Snapshot. Compilation is all or nothing: the first
// endpoint that fails is reported with its position and no snapshot is
// returned.
func Compile(endpoints []*mock.Endpoint) (*Snapshot, error) {
	snap := &Snapshot{Endpoints: make([]*matching.CompiledEndpoint, 0, len(endpoints))}
	for i, ep := range endpoints {
		ce, err := matching.CompileEndpoint(ep)
		if err != nil {
			return nil, fmt.Errorf("endpoint %d (%s): %w", i, endpointLabel(ep), err)
		}
		snap.Endpoints = append(snap.Endpoints, ce)
	}
	return snap, nil
}

// CompileEach builds a Snapshot from endpoints compiled one by one. An
// endpoint that fails is recorded in Broken and never served; when its
// path template is still valid, requests it would have won resolve to
// invalid_configuration instead of falling through to another endpoint.
func CompileEach(endpoints []*mock.Endpoint) *Snapshot {
	snap := &Snapshot{
		Endpoints: make([]*matching.CompiledEndpoint, 0, len(endpoints)),
		routes:    make([]*matching.CompiledEndpoint, 0, len(endpoints)),
	}
	for i, ep := range endpoints {
		ce, err := matching.CompileEndpoint(ep)
		if err == nil {
			snap.Endpoints = append(snap.Endpoints, ce)
			snap.routes = append(snap.routes, ce)
			continue
		}

		b := &BrokenEndpoint{Position: i, Error: err.Error()}
		snap.Broken = append(snap.Broken, b)
		if ep == nil {
			continue
		}
		b.ID, b.Method, b.Path = ep.ID, ep.Method, ep.Path

		own := ep.Clone()
		own.ApplyDefaults()
		path, perr := matching.CompilePath(own.Path)
		if perr != nil {
			continue
		}
		route := &matching.CompiledEndpoint{Endpoint: own, Path: path}
		snap.routes = append(snap.routes, route)
		if snap.broken == nil {
			snap.broken = make(map[*matching.CompiledEndpoint]*BrokenEndpoint)
		}
		snap.broken[route] = b
	}
	return snap
}

func (s *Snapshot) brokenFor(ep *matching.CompiledEndpoint) *BrokenEndpoint {
	if s == nil {
		return nil
	}
	return s.broken[ep]
}

func endpointLabel(ep *mock.Endpoint) string {
	if ep == nil {
		return "<nil>"
	}
	return ep.String()
}

// ResolvedResponse is the response the HTTP layer should produce.
type ResolvedResponse struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	Body    mock.Value        `json:"body"`

	// Delay must elapse before anything is written.
	Delay time.Duration `json:"delay"`

	// Failed reports a simulated failure; Status, Headers and Body already
	// describe the failure response.
	Failed bool `json:"failed"`

	Outcome Outcome `json:"outcome"`
	Trace   *Trace  `json:"trace,omitempty"`
}

// Trace explains how a response was chosen.
type Trace struct {
	Method string `json:"method"`
	Path   string `json:"path"`

	// Candidates is how many endpoints of the method matched the path.
	Candidates int `json:"candidates"`

	EndpointID  string            `json:"endpointId,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`
	Specificity int               `json:"specificity"`
	Params      map[string]string `json:"params,omitempty"`

	Variant      string                  `json:"variant,omitempty"`
	VariantIndex int                     `json:"variantIndex"`
	UsedDefault  bool                    `json:"usedDefault"`
	Evaluated    []matching.VariantTrace `json:"evaluated,omitempty"`

	Chaos     *chaos.Outcome `json:"chaos,omitempty"`
	Anomalies []string       `json:"anomalies,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Resolver runs the resolution pipeline. It is safe for concurrent use.
type Resolver struct {
	sources chaos.SourceFactory
}

// NewResolver creates a Resolver drawing failure samples from sources. A
// nil factory uses chaos.DefaultFactory.
func NewResolver(sources chaos.SourceFactory) *Resolver {
	if sources == nil {
		sources = chaos.DefaultFactory
	}
	return &Resolver{sources: sources}
}

// Resolve selects the endpoint and variant for req, applies chaos, and
// renders the response. Every request-level problem is reported through
// the returned Outcome.
func (r *Resolver) Resolve(snap *Snapshot, req *Request) *ResolvedResponse {
	if req == nil {
		req = &Request{}
	}
	trace := &Trace{Method: req.Method, Path: req.Path, VariantIndex: -1}

	match := matching.FindBestMatch(snap.candidates(), req.Method, req.Path)
	if match == nil {
		return errorResponse(trace, http.StatusNotFound, OutcomeNotFound,
			fmt.Sprintf("No endpoint configured for %s %s", req.Method, req.Path))
	}

	ep := match.Endpoint
	trace.Candidates = match.Candidates
	trace.EndpointID = ep.Endpoint.ID
	trace.Endpoint = ep.String()
	trace.Specificity = match.Specificity
	trace.Params = match.Params

	if b := snap.brokenFor(ep); b != nil {
		trace.Error = b.Error
		return errorResponse(trace, http.StatusInternalServerError, OutcomeInvalidConfiguration,
			fmt.Sprintf("Endpoint configuration is invalid for %s", ep))
	}

	res, err := matching.ResolveVariantTrace(ep, &matching.RequestContext{
		Headers:    req.Headers,
		Query:      req.Query,
		Body:       req.Body,
		PathParams: match.Params,
	})
	if err != nil {
		trace.Error = err.Error()
		if errors.Is(err, matching.ErrNoVariantAvailable) {
			return errorResponse(trace, http.StatusInternalServerError, OutcomeNoVariant,
				fmt.Sprintf("No response variant available for %s", ep))
		}
		return errorResponse(trace, http.StatusInternalServerError, OutcomeInvalidConfiguration, err.Error())
	}

	v := res.Variant
	trace.Variant = v.Label()
	trace.VariantIndex = v.Index
	trace.UsedDefault = res.UsedDefault
	trace.Evaluated = res.Evaluated
	trace.Anomalies = res.Anomalies

	out := chaos.Apply(&v.Variant, r.sources())
	trace.Chaos = &out

	if out.Failed {
		return &ResolvedResponse{
			Status:  chaos.FailureStatus,
			Headers: map[string]string{},
			Body:    chaos.FailureBody(),
			Delay:   out.Delay,
			Failed:  true,
			Outcome: OutcomeSimulatedFailure,
			Trace:   trace,
		}
	}

	body, headers := template.RenderVariant(&v.Variant, match.Params)
	if body.IsNull() {
		body = mock.Object(nil)
	}
	return &ResolvedResponse{
		Status:  v.EffectiveStatus(),
		Headers: headers,
		Body:    body,
		Delay:   out.Delay,
		Outcome: OutcomeMatched,
		Trace:   trace,
	}
}

func errorResponse(trace *Trace, status int, outcome Outcome, message string) *ResolvedResponse {
	return &ResolvedResponse{
		Status:  status,
		Headers: map[string]string{},
		Body: mock.Object(map[string]mock.Value{
			"error":   mock.String(string(outcome)),
			"message": mock.String(message),
		}),
		Outcome: outcome,
		Trace:   trace,
	}
}

// EncodeBody serializes a response body. A string body is written as is
// with a text content type; anything else is JSON.
func EncodeBody(body mock.Value) ([]byte, string, error) {
	if s, ok := body.AsString(); ok {
		return []byte(s), httputil.ContentTypeText, nil
	}
	if body.IsNull() {
		return []byte("{}"), httputil.ContentTypeJSON, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("encoding response body: %w", err)
	}
	return data, httputil.ContentTypeJSON, nil
}
