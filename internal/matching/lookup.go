package matching

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/mockhost/mockhost/pkg/mock"
)

// RequestContext bundles the parts of a request that rules inspect.
// Body holds decoded JSON (objects as map[string]any, numbers as
// json.Number) or decoded form fields; it may be nil.
type RequestContext struct {
	Headers    http.Header
	Query      url.Values
	Body       any
	PathParams map[string]string
}

// lookupHeader returns the first value of a header. Header names are
// case-insensitive.
func lookupHeader(headers http.Header, name string) (string, bool) {
	if headers == nil {
		return "", false
	}
	if vals, ok := headers[http.CanonicalHeaderKey(name)]; ok {
		return first(vals), true
	}
	// Maps built by hand may hold non-canonical keys.
	for k, vals := range headers {
		if strings.EqualFold(k, name) {
			return first(vals), true
		}
	}
	return "", false
}

// lookupQuery returns the first value of a query parameter. Names are
// case-sensitive. A parameter given without a value is present and empty.
func lookupQuery(query url.Values, name string) (string, bool) {
	if query == nil {
		return "", false
	}
	vals, ok := query[name]
	if !ok {
		return "", false
	}
	return first(vals), true
}

func lookupPathParam(params map[string]string, name string) (string, bool) {
	if params == nil {
		return "", false
	}
	v, ok := params[name]
	return v, ok
}

// lookupBody evaluates a compiled JSONPath against the body. A path that
// selects nothing means the field is absent.
func lookupBody(body any, path jp.Expr) (string, bool) {
	if body == nil || path == nil {
		return "", false
	}
	results := path.Get(body)
	if len(results) == 0 {
		return "", false
	}
	return textOf(results[0]), true
}

// compileBodyPath accepts a JSONPath ("$.user.name") or a dotted path
// ("user.name", "items[0].id").
func compileBodyPath(field string) (jp.Expr, error) {
	expr := strings.TrimSpace(field)
	if !strings.HasPrefix(expr, "$") {
		if strings.HasPrefix(expr, "[") {
			expr = "$" + expr
		} else {
			expr = "$." + expr
		}
	}
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid body field path %q: %w", field, err)
	}
	return x, nil
}

// textOf renders a decoded body value the way rule operands are written:
// strings verbatim, numbers as written, true/false, null, compact JSON for
// containers.
func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case mock.Value:
		return t.Text()
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
