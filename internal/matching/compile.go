package matching

import (
	"fmt"
	"sort"

	"github.com/mockhost/mockhost/pkg/mock"
)

// CompiledVariant is a response variant with its rules compiled.
type CompiledVariant struct {
	mock.Variant

	// Index is the declaration position within the endpoint.
	Index int

	Rules []*CompiledRule
}

// Label returns the variant name, or its declaration index when unnamed.
func (v *CompiledVariant) Label() string {
	if v.Name != "" {
		return v.Name
	}
	return fmt.Sprintf("variants[%d]", v.Index)
}

// CompiledEndpoint is an endpoint prepared for request matching. It owns a
// private copy of the configuration, so later changes to the source do not
// leak into requests already being served.
type CompiledEndpoint struct {
	Endpoint *mock.Endpoint
	Path     *CompiledPath

	// Variants in declaration order.
	Variants []*CompiledVariant

	// candidates are the non-default variants in evaluation order.
	candidates []*CompiledVariant

	// fallback is the first variant marked default, if any.
	fallback *CompiledVariant

	defaultCount int
}

// CompileEndpoint copies, normalizes, validates and compiles an endpoint.
// Malformed templates, invalid rule operands and out-of-range values are
// rejected here so that request handling never sees them. An endpoint with
// no variants compiles; resolving it reports ErrNoVariantAvailable.
func CompileEndpoint(ep *mock.Endpoint) (*CompiledEndpoint, error) {
	if ep == nil {
		return nil, &mock.ValidationError{Field: "endpoint", Message: "endpoint is required"}
	}

	own := ep.Clone()
	own.ApplyDefaults()
	if err := own.Validate(); err != nil {
		return nil, err
	}

	path, err := CompilePath(own.Path)
	if err != nil {
		return nil, err
	}

	ce := &CompiledEndpoint{Endpoint: own, Path: path}

	for i := range own.Variants {
		cv := &CompiledVariant{Variant: own.Variants[i], Index: i}
		for j, r := range own.Variants[i].Rules {
			cr, err := CompileRule(r)
			if err != nil {
				return nil, fmt.Errorf("variants[%d].rules[%d]: %w", i, j, err)
			}
			cv.Rules = append(cv.Rules, cr)
		}
		ce.Variants = append(ce.Variants, cv)

		if cv.IsDefault {
			ce.defaultCount++
			if ce.fallback == nil {
				ce.fallback = cv
			}
			continue
		}
		ce.candidates = append(ce.candidates, cv)
	}

	// Ascending priority; SliceStable keeps declaration order for ties.
	sort.SliceStable(ce.candidates, func(i, j int) bool {
		return ce.candidates[i].Priority < ce.candidates[j].Priority
	})

	return ce, nil
}

// Method returns the endpoint method.
func (c *CompiledEndpoint) Method() string { return c.Endpoint.Method }

// Candidates returns the non-default variants in evaluation order.
func (c *CompiledEndpoint) Candidates() []*CompiledVariant {
	return append([]*CompiledVariant(nil), c.candidates...)
}

// Default returns the fallback variant, or nil.
func (c *CompiledEndpoint) Default() *CompiledVariant { return c.fallback }

// DefaultCount returns how many variants are marked default.
func (c *CompiledEndpoint) DefaultCount() int { return c.defaultCount }

func (c *CompiledEndpoint) String() string { return c.Endpoint.String() }
