package template

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockhost/mockhost/pkg/mock"
)

func jsonValue(t *testing.T, s string) mock.Value {
	t.Helper()
	var v mock.Value
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func renderedJSON(t *testing.T, v mock.Value) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestRenderString(t *testing.T) {
	params := map[string]string{"id": "123", "org": "acme", "user_id": "u-9"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single", ":id", "123"},
		{"embedded", "/users/:id/orders", "/users/123/orders"},
		{"repeated", ":id-:id", "123-123"},
		{"multiple", ":org/:id", "acme/123"},
		{"underscore name", "user :user_id", "user u-9"},
		{"unbound left alone", ":missing and :id", ":missing and 123"},
		{"longer name not partially replaced", ":idx", ":idx"},
		{"colon without name", "a : b", "a : b"},
		{"url scheme", "https://example.com/:id", "https://example.com/123"},
		{"no placeholders", "plain text", "plain text"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderString(tt.in, params))
		})
	}
}

func TestRenderString_NamesWithPunctuation(t *testing.T) {
	params := map[string]string{"order-id": "42", "order": "o", "user.id": "u7"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"hyphenated", ":order-id", "42"},
		{"longest name wins", "/orders/:order-id/:order", "/orders/42/o"},
		{"shorter name before punctuation", ":order-", "o-"},
		{"dotted", "user :user.id", "user u7"},
		{"dotted name not a prefix of a longer word", ":user.idx", ":user.idx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderString(tt.in, params))
		})
	}
}

func TestRenderVariant_HyphenatedParam(t *testing.T) {
	v := &mock.Variant{
		BodyType: mock.BodyTypeTemplate,
		Headers:  map[string]string{"X-Order": ":order-id"},
		Body:     jsonValue(t, `{"id":":order-id"}`),
	}
	body, headers := RenderVariant(v, map[string]string{"order-id": "42"})
	assert.JSONEq(t, `{"id":"42"}`, renderedJSON(t, body))
	assert.Equal(t, "42", headers["X-Order"])
}

func TestRenderString_NoParams(t *testing.T) {
	assert.Equal(t, "/users/:id", RenderString("/users/:id", nil))
	assert.Equal(t, "/users/:id", RenderString("/users/:id", map[string]string{}))
}

func TestRender(t *testing.T) {
	params := map[string]string{"id": "123"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"object leaf", `{"id":":id"}`, `{"id":"123"}`},
		{"nested", `{"user":{"id":":id","links":["/u/:id",":other"]}}`, `{"user":{"id":"123","links":["/u/123",":other"]}}`},
		{"non-strings untouched", `{"n":1.50,"b":true,"z":null}`, `{"n":1.50,"b":true,"z":null}`},
		{"keys untouched", `{":id":":id"}`, `{":id":"123"}`},
		{"top-level string", `"id is :id"`, `"id is 123"`},
		{"array", `[":id",2,":id"]`, `["123",2,"123"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(jsonValue(t, tt.in), params)
			assert.JSONEq(t, tt.want, renderedJSON(t, got))
		})
	}
}

func TestRender_IdempotentWithoutPlaceholders(t *testing.T) {
	in := jsonValue(t, `{"a":"plain","b":[1,"two",{"c":false}],"d":null}`)
	params := map[string]string{"id": "1"}

	once := Render(in, params)
	twice := Render(once, params)
	assert.True(t, in.Equal(once))
	assert.True(t, once.Equal(twice))
}

func TestRender_DoesNotModifyInput(t *testing.T) {
	in := jsonValue(t, `{"id":":id","list":[":id"]}`)
	_ = Render(in, map[string]string{"id": "9"})
	assert.JSONEq(t, `{"id":":id","list":[":id"]}`, renderedJSON(t, in))
}

func TestRenderHeaders(t *testing.T) {
	got := RenderHeaders(map[string]string{
		"Location": "/users/:id",
		"X-Static": "fixed",
	}, map[string]string{"id": "7"})

	assert.Equal(t, map[string]string{"Location": "/users/7", "X-Static": "fixed"}, got)
	assert.NotNil(t, RenderHeaders(nil, nil))
}

func TestRenderVariant(t *testing.T) {
	params := map[string]string{"id": "42"}
	body := jsonValue(t, `{"id":":id"}`)
	headers := map[string]string{"Location": "/items/:id"}

	t.Run("template substitutes", func(t *testing.T) {
		v := &mock.Variant{BodyType: mock.BodyTypeTemplate, Body: body, Headers: headers}
		gotBody, gotHeaders := RenderVariant(v, params)
		assert.JSONEq(t, `{"id":"42"}`, renderedJSON(t, gotBody))
		assert.Equal(t, "/items/42", gotHeaders["Location"])
	})

	t.Run("static is verbatim", func(t *testing.T) {
		v := &mock.Variant{BodyType: mock.BodyTypeStatic, Body: body, Headers: headers}
		gotBody, gotHeaders := RenderVariant(v, params)
		assert.JSONEq(t, `{"id":":id"}`, renderedJSON(t, gotBody))
		assert.Equal(t, "/items/:id", gotHeaders["Location"])
	})

	t.Run("unset body type is static", func(t *testing.T) {
		v := &mock.Variant{Body: body}
		gotBody, _ := RenderVariant(v, params)
		assert.JSONEq(t, `{"id":":id"}`, renderedJSON(t, gotBody))
	})

	t.Run("nil variant", func(t *testing.T) {
		gotBody, gotHeaders := RenderVariant(nil, params)
		assert.True(t, gotBody.IsNull())
		assert.NotNil(t, gotHeaders)
	})
}
