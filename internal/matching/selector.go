package matching

import (
	"strings"
)

// MatchResult contains the endpoint selected for a request.
type MatchResult struct {
	Endpoint    *CompiledEndpoint
	Params      map[string]string
	Specificity int

	// Candidates is how many endpoints of the request method matched the path.
	Candidates int
}

// FindBestMatch selects the endpoint for method and path. Only endpoints of
// the same method are considered. Among those whose template matches, the
// one with the most literal segments wins; equal specificity keeps the
// first in declaration order. Returns nil when nothing matches.
func FindBestMatch(endpoints []*CompiledEndpoint, method, path string) *MatchResult {
	method = strings.ToUpper(method)

	var best *MatchResult
	matched := 0

	for _, ep := range endpoints {
		if ep == nil || ep.Method() != method {
			continue
		}

		m := ep.Path.Match(path)
		if !m.Matched {
			continue
		}
		matched++

		spec := ep.Path.Specificity()
		// Strictly greater: an equal score never displaces an earlier one.
		if best == nil || spec > best.Specificity {
			best = &MatchResult{
				Endpoint:    ep,
				Params:      m.Params,
				Specificity: spec,
			}
		}
	}

	if best != nil {
		best.Candidates = matched
	}
	return best
}
