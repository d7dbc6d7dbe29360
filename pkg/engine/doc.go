// Package engine resolves requests against configured endpoints and serves
// the results over HTTP.
//
// Resolution is a pure pipeline over a compiled Snapshot:
//
//	snap, err := engine.Compile(endpoints)
//	resp := engine.NewResolver(nil).Resolve(snap, &engine.Request{
//	    Method: "GET",
//	    Path:   "/users/42",
//	})
//
// Resolve never returns a Go error for request-level problems. A missing
// endpoint, a missing variant and a simulated failure are all reported as
// data in ResolvedResponse.Outcome so the HTTP layer can always write a
// well-formed response.
//
// Handler wraps the pipeline in a net/http handler backed by a
// storage.EndpointStore, and Server runs that handler on a listener.
package engine
