package mock

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Value codecs
// =============================================================================

func TestValue_UnmarshalJSON(t *testing.T) {
	var v Value
	err := json.Unmarshal([]byte(`{"id":":id","count":12345678901234567890,"ok":true,"tags":["a",null],"ratio":0.5}`), &v)
	require.NoError(t, err)

	require.Equal(t, KindObject, v.Kind())
	fields := v.Fields()

	id, ok := fields["id"].AsString()
	assert.True(t, ok)
	assert.Equal(t, ":id", id)

	count, ok := fields["count"].AsNumber()
	assert.True(t, ok)
	assert.Equal(t, "12345678901234567890", count, "integers keep their literal text")

	b, ok := fields["ok"].AsBool()
	assert.True(t, ok)
	assert.True(t, b)

	tags := fields["tags"].Items()
	require.Len(t, tags, 2)
	assert.True(t, tags[1].IsNull())

	assert.Equal(t, "0.5", fields["ratio"].Text())
}

func TestValue_MarshalJSON(t *testing.T) {
	v := Object(map[string]Value{
		"b":    Bool(false),
		"a":    Int(7),
		"list": Array(String("x"), Null()),
	})
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":7,"b":false,"list":["x",null]}`, string(data))
}

func TestValue_YAMLRoundTrip(t *testing.T) {
	src := `
user:
  id: 42
  name: ":name"
  score: 1.5
  active: true
  nick: null
`
	var v Value
	require.NoError(t, yaml.Unmarshal([]byte(src), &v))

	user := v.Fields()["user"]
	require.Equal(t, KindObject, user.Kind())
	assert.Equal(t, "42", user.Fields()["id"].Text())
	assert.Equal(t, "1.5", user.Fields()["score"].Text())
	assert.True(t, user.Fields()["nick"].IsNull())

	out, err := yaml.Marshal(v)
	require.NoError(t, err)

	var back Value
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.True(t, v.Equal(back))
}

func TestValue_Text(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"string", String("hello"), "hello"},
		{"empty string", String(""), ""},
		{"integer", Int(10), "10"},
		{"float", Float(2.25), "2.25"},
		{"bool", Bool(true), "true"},
		{"null", Null(), "null"},
		{"array", Array(Int(1), String("a")), `[1,"a"]`},
		{"object", Object(map[string]Value{"k": String("v")}), `{"k":"v"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.Text())
		})
	}
}

func TestValue_ZeroIsNull(t *testing.T) {
	var v Value
	assert.True(t, v.IsNull())
	assert.Equal(t, KindNull, v.Kind())
	assert.Nil(t, v.Any())
}

func TestValue_FromAnyRejectsUnsupported(t *testing.T) {
	_, err := FromAny(struct{}{})
	assert.Error(t, err)

	_, err = Number("not-a-number")
	assert.Error(t, err)
}

func TestValue_CloneIsDeep(t *testing.T) {
	orig := Object(map[string]Value{"list": Array(String("a"))})
	c := orig.Clone()
	c.Fields()["list"].Items()[0] = String("changed")

	s, _ := orig.Fields()["list"].Items()[0].AsString()
	assert.Equal(t, "a", s)
}

// =============================================================================
// Defaults
// =============================================================================

func TestVariant_ApplyDefaults(t *testing.T) {
	v := Variant{}
	v.ApplyDefaults()

	assert.Equal(t, DefaultStatus, v.Status)
	assert.Equal(t, BodyTypeStatic, v.BodyType)
	assert.Equal(t, RuleLogicAnd, v.RuleLogic)
	assert.NotNil(t, v.Headers)
}

func TestEndpoint_ApplyDefaultsUppercasesMethod(t *testing.T) {
	e := Endpoint{Method: " get ", Path: "/users", Variants: []Variant{{}}}
	e.ApplyDefaults()
	assert.Equal(t, MethodGet, e.Method)
	assert.Equal(t, 200, e.Variants[0].Status)
}

func TestEndpoint_UnmarshalJSON(t *testing.T) {
	data := `{
		"id": "ep-1",
		"method": "GET",
		"path": "/users/:id",
		"variants": [
			{
				"name": "vip",
				"priority": 1,
				"status": 200,
				"headers": {"X-User": ":id"},
				"body": {"id": ":id", "tier": "gold"},
				"bodyType": "template",
				"delay": 250,
				"failRate": 0.1,
				"rules": [{"source": "header", "field": "x-tier", "operator": "equals", "value": "gold"}],
				"ruleLogic": "or"
			},
			{"name": "fallback", "isDefault": true, "body": {}}
		]
	}`

	var e Endpoint
	require.NoError(t, json.Unmarshal([]byte(data), &e))
	require.Len(t, e.Variants, 2)

	vip := e.Variants[0]
	assert.Equal(t, BodyTypeTemplate, vip.BodyType)
	assert.Equal(t, RuleLogicOr, vip.RuleLogic)
	assert.Equal(t, 250, vip.Delay)
	assert.InDelta(t, 0.1, vip.FailRate, 1e-9)
	require.Len(t, vip.Rules, 1)
	assert.Equal(t, SourceHeader, vip.Rules[0].Source)
	assert.Equal(t, OpEquals, vip.Rules[0].Operator)

	assert.True(t, e.Variants[1].IsDefault)
	assert.NoError(t, e.Validate())
}

func TestEndpoint_CloneIsIndependent(t *testing.T) {
	e := &Endpoint{
		Method: MethodGet,
		Path:   "/a",
		Variants: []Variant{{
			Headers: map[string]string{"X": "1"},
			Rules:   []Rule{{Source: SourceQuery, Field: "q", Operator: OpExists}},
		}},
	}
	c := e.Clone()
	c.Variants[0].Headers["X"] = "2"
	c.Variants[0].Rules[0].Field = "other"

	assert.Equal(t, "1", e.Variants[0].Headers["X"])
	assert.Equal(t, "q", e.Variants[0].Rules[0].Field)
}

// =============================================================================
// Validation
// =============================================================================

func validEndpoint() *Endpoint {
	return &Endpoint{
		ID:     "ep",
		Method: MethodGet,
		Path:   "/users/:id",
		Variants: []Variant{
			{Name: "ok", Status: 200, Body: Object(nil), IsDefault: true},
		},
	}
}

func TestEndpoint_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(e *Endpoint)
		wantField string
	}{
		{name: "valid", mutate: func(e *Endpoint) {}},
		{name: "missing method", mutate: func(e *Endpoint) { e.Method = "" }, wantField: "method"},
		{name: "unsupported method", mutate: func(e *Endpoint) { e.Method = "HEAD" }, wantField: "method"},
		{name: "missing path", mutate: func(e *Endpoint) { e.Path = "" }, wantField: "path"},
		{name: "relative path", mutate: func(e *Endpoint) { e.Path = "users" }, wantField: "path"},
		{name: "negative delay", mutate: func(e *Endpoint) { e.Variants[0].Delay = -1 }, wantField: "variants[0].delay"},
		{name: "delay too large", mutate: func(e *Endpoint) { e.Variants[0].Delay = MaxDelayMs + 1 }, wantField: "variants[0].delay"},
		{name: "max delay allowed", mutate: func(e *Endpoint) { e.Variants[0].Delay = MaxDelayMs }},
		{name: "fail rate above one", mutate: func(e *Endpoint) { e.Variants[0].FailRate = 1.5 }, wantField: "variants[0].failRate"},
		{name: "fail rate negative", mutate: func(e *Endpoint) { e.Variants[0].FailRate = -0.1 }, wantField: "variants[0].failRate"},
		{name: "bad status", mutate: func(e *Endpoint) { e.Variants[0].Status = 42 }, wantField: "variants[0].status"},
		{name: "bad body type", mutate: func(e *Endpoint) { e.Variants[0].BodyType = "dynamic" }, wantField: "variants[0].bodyType"},
		{name: "bad rule logic", mutate: func(e *Endpoint) { e.Variants[0].RuleLogic = "xor" }, wantField: "variants[0].ruleLogic"},
		{
			name: "bad rule source",
			mutate: func(e *Endpoint) {
				e.Variants[0].Rules = []Rule{{Source: "cookie", Field: "a", Operator: OpExists}}
			},
			wantField: "variants[0].rules[0].source",
		},
		{
			name: "bad rule operator",
			mutate: func(e *Endpoint) {
				e.Variants[0].Rules = []Rule{{Source: SourceQuery, Field: "a", Operator: "like"}}
			},
			wantField: "variants[0].rules[0].operator",
		},
		{
			name: "existence operator with value",
			mutate: func(e *Endpoint) {
				e.Variants[0].Rules = []Rule{{Source: SourceQuery, Field: "a", Operator: OpExists, Value: "x"}}
			},
			wantField: "variants[0].rules[0].value",
		},
		{
			name: "empty expression",
			mutate: func(e *Endpoint) {
				e.Variants[0].Rules = []Rule{{Source: SourceQuery, Field: "a", Operator: OpExpression}}
			},
			wantField: "variants[0].rules[0].value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEndpoint()
			tt.mutate(e)
			err := e.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected *ValidationError, got %T", err)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestEndpoint_DefaultCount(t *testing.T) {
	e := validEndpoint()
	e.Variants = append(e.Variants, Variant{IsDefault: true}, Variant{})
	assert.Equal(t, 2, e.DefaultCount())
}
