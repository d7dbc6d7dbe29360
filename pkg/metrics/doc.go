// Package metrics records mockhost's operational metrics through a small
// Provider interface.
//
// Three providers are available:
//
//   - Noop: discards everything (the default)
//   - Registry: keeps values in process and serves them in the Prometheus
//     text format at /__mockhost/metrics
//   - Datadog: forwards to a DogStatsD agent
//
// Tags use the DogStatsD "key:value" form. The Registry turns them into
// Prometheus labels, and dots in metric names into underscores:
//
//	p.Count("resolve.count", 1, []string{"outcome:matched"})
//	// mockhost_resolve_count{outcome="matched"} 1
package metrics
