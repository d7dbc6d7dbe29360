package matching

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedTemplate is returned when a path template cannot be compiled.
var ErrMalformedTemplate = errors.New("malformed path template")

// segment is one component of a compiled template.
type segment struct {
	literal string
	param   string // parameter name when the segment is :name
}

func (s segment) isParam() bool { return s.param != "" }

// CompiledPath is a parsed path template such as /users/:id.
// It is immutable and safe for concurrent use.
type CompiledPath struct {
	template string
	segments []segment
	params   []string
}

// PathMatch is the outcome of matching a request path against a template.
// Params is never nil: on failure it is an empty map.
type PathMatch struct {
	Matched bool
	Params  map[string]string
}

// CompilePath parses a path template. Segments starting with ':' are named
// parameters. The template must start with '/'; a single trailing slash is
// ignored. Empty interior segments, empty parameter names and duplicate
// parameter names are rejected.
func CompilePath(template string) (*CompiledPath, error) {
	if !strings.HasPrefix(template, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrMalformedTemplate, template)
	}

	cp := &CompiledPath{template: template}
	parts := splitPath(template)
	if len(parts) == 0 && template != "/" {
		return nil, fmt.Errorf("%w: %q has an empty segment at position 1", ErrMalformedTemplate, template)
	}
	seen := make(map[string]bool, len(parts))

	for i, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment at position %d", ErrMalformedTemplate, template, i+1)
		}
		if !strings.HasPrefix(part, ":") {
			cp.segments = append(cp.segments, segment{literal: part})
			continue
		}

		name := part[1:]
		if name == "" {
			return nil, fmt.Errorf("%w: %q has an unnamed parameter at position %d", ErrMalformedTemplate, template, i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %q declares parameter %q twice", ErrMalformedTemplate, template, name)
		}
		seen[name] = true
		cp.segments = append(cp.segments, segment{param: name})
		cp.params = append(cp.params, name)
	}

	return cp, nil
}

// MustCompilePath is CompilePath for templates known to be valid.
func MustCompilePath(template string) *CompiledPath {
	cp, err := CompilePath(template)
	if err != nil {
		panic(err)
	}
	return cp
}

// Template returns the source template.
func (c *CompiledPath) Template() string { return c.template }

// SegmentCount returns the number of segments. The root template has none.
func (c *CompiledPath) SegmentCount() int { return len(c.segments) }

// ParamNames returns the parameter names in template order.
func (c *CompiledPath) ParamNames() []string {
	return append([]string(nil), c.params...)
}

// Specificity is the number of literal segments. A fully literal template
// has the highest specificity possible for its segment count.
func (c *CompiledPath) Specificity() int {
	return len(c.segments) - len(c.params)
}

// Match tests a request path against the template. Parameter values are
// the raw path segments; no further decoding is applied.
func (c *CompiledPath) Match(path string) PathMatch {
	if len(c.segments) == 0 {
		// The root template matches only the root path.
		if path == "/" {
			return PathMatch{Matched: true, Params: map[string]string{}}
		}
		return noMatch()
	}

	parts := splitPath(path)
	if len(parts) != len(c.segments) {
		return noMatch()
	}

	params := make(map[string]string, len(c.params))
	for i, seg := range c.segments {
		if seg.isParam() {
			params[seg.param] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return noMatch()
		}
	}

	return PathMatch{Matched: true, Params: params}
}

// MatchPath compiles template and matches path against it. Invalid
// templates never match.
func MatchPath(template, path string) PathMatch {
	cp, err := CompilePath(template)
	if err != nil {
		return noMatch()
	}
	return cp.Match(path)
}

func noMatch() PathMatch {
	return PathMatch{Matched: false, Params: map[string]string{}}
}

// splitPath strips at most one trailing slash and the leading slash, then
// splits on '/'. The root path yields no segments.
func splitPath(p string) []string {
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
