// Package matching provides the request matching algorithms of the mock host.
//
// It decides, for an incoming request and a set of endpoint configurations,
// which endpoint applies and which of its response variants is selected:
//
//   - Path matching: templates of literal and :param segments, compared
//     segment by segment with a single trailing slash ignored
//   - Endpoint selection: the matching candidate with the most literal
//     segments wins; ties keep declaration order
//   - Rule evaluation: header, query, body-field and path-param lookups
//     tested with equals, not-equals, contains, exists, not-exists,
//     matches-regex, numeric comparisons and expressions
//   - Variant resolution: non-default variants in ascending priority, the
//     first whose rules hold wins, otherwise the default variant
//
// Everything that can be rejected is rejected when an endpoint is compiled
// (malformed templates, invalid regular expressions or expressions), so the
// request path never fails on configuration shape. Absent request fields are
// never errors: they satisfy not-exists and not-equals and fail every other
// operator.
//
// Key types:
//
//   - CompiledPath: a parsed path template
//   - CompiledEndpoint: an endpoint with its path, variants and rules compiled
//   - RequestContext: the request data rules are evaluated against
//   - MatchResult: the selected endpoint, its parameters and specificity
//   - VariantTrace: per-variant, per-rule evaluation outcomes
package matching
