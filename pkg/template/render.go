package template

import (
	"sort"
	"strings"

	"github.com/mockhost/mockhost/pkg/mock"
)

// binding is a parameter set with its names ordered longest first, so
// ":order-id" binds to "order-id" before "order".
type binding struct {
	params map[string]string
	names  []string
}

func newBinding(params map[string]string) *binding {
	names := make([]string, 0, len(params))
	for name := range params {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return &binding{params: params, names: names}
}

// match returns the bound name that s starts with. The name must not run on
// into further identifier characters, so ":idx" is never a partial match
// for "id".
func (b *binding) match(s string) (string, bool) {
	for _, name := range b.names {
		if !strings.HasPrefix(s, name) {
			continue
		}
		if rest := s[len(name):]; rest != "" && isIdentByte(rest[0]) {
			continue
		}
		return name, true
	}
	return "", false
}

func (b *binding) render(s string) string {
	if len(b.names) == 0 || !strings.Contains(s, ":") {
		return s
	}
	var out strings.Builder
	out.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] == ':' {
			if name, ok := b.match(s[i+1:]); ok {
				out.WriteString(b.params[name])
				i += 1 + len(name)
				continue
			}
		}
		out.WriteByte(s[i])
		i++
	}
	return out.String()
}

func isIdentByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// RenderString replaces every bound :name token in s. Names are taken from
// params as bound, so they may contain characters such as '-' or '.'.
func RenderString(s string, params map[string]string) string {
	if len(params) == 0 {
		return s
	}
	return newBinding(params).render(s)
}

// Render returns a copy of value with placeholders substituted in every
// string leaf.
func Render(value mock.Value, params map[string]string) mock.Value {
	return newBinding(params).value(value)
}

func (b *binding) value(value mock.Value) mock.Value {
	switch value.Kind() {
	case mock.KindString:
		s, _ := value.AsString()
		return mock.String(b.render(s))
	case mock.KindArray:
		items := value.Items()
		out := make([]mock.Value, len(items))
		for i, item := range items {
			out[i] = b.value(item)
		}
		return mock.Array(out...)
	case mock.KindObject:
		fields := value.Fields()
		out := make(map[string]mock.Value, len(fields))
		for k, f := range fields {
			out[k] = b.value(f)
		}
		return mock.Object(out)
	default:
		return value
	}
}

// RenderHeaders renders each header value. The result is always a new,
// non-nil map.
func RenderHeaders(headers map[string]string, params map[string]string) map[string]string {
	return newBinding(params).headers(headers)
}

func (b *binding) headers(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = b.render(v)
	}
	return out
}

// RenderVariant returns the body and headers a variant produces for params.
// Static variants come back as copies of their configured values.
func RenderVariant(v *mock.Variant, params map[string]string) (mock.Value, map[string]string) {
	if v == nil {
		return mock.Null(), map[string]string{}
	}
	if v.BodyType != mock.BodyTypeTemplate {
		return v.Body.Clone(), RenderHeaders(v.Headers, nil)
	}
	b := newBinding(params)
	return b.value(v.Body), b.headers(v.Headers)
}
