package matching

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockhost/mockhost/pkg/mock"
)

func headerCtx(kv ...string) *RequestContext {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return &RequestContext{Headers: h}
}

func headerRule(name, value string) mock.Rule {
	return mock.Rule{Source: mock.SourceHeader, Field: name, Operator: mock.OpEquals, Value: value}
}

func TestResolveVariant(t *testing.T) {
	ep, err := CompileEndpoint(&mock.Endpoint{
		Method: "GET",
		Path:   "/orders/:id",
		Variants: []mock.Variant{
			{Name: "default", IsDefault: true, Status: 200},
			{Name: "gold", Priority: 2, Rules: []mock.Rule{headerRule("X-Tier", "gold")}},
			{Name: "vip", Priority: 1, Rules: []mock.Rule{headerRule("X-Tier", "gold"), headerRule("X-Vip", "yes")}},
			{Name: "either", Priority: 3, RuleLogic: mock.RuleLogicOr, Rules: []mock.Rule{headerRule("X-A", "1"), headerRule("X-B", "1")}},
		},
	})
	require.NoError(t, err)

	tests := []struct {
		name        string
		ctx         *RequestContext
		want        string
		usedDefault bool
	}{
		{name: "no headers uses default", ctx: headerCtx(), want: "default", usedDefault: true},
		{name: "lower priority number first", ctx: headerCtx("X-Tier", "gold", "X-Vip", "yes"), want: "vip"},
		{name: "and logic needs every rule", ctx: headerCtx("X-Tier", "gold"), want: "gold"},
		{name: "or logic needs one rule", ctx: headerCtx("X-B", "1"), want: "either"},
		{name: "nil context", ctx: nil, want: "default", usedDefault: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ResolveVariant(ep, tt.ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Name)

			res, err := ResolveVariantTrace(ep, tt.ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Variant.Name)
			assert.Equal(t, tt.usedDefault, res.UsedDefault)
			assert.Empty(t, res.Anomalies)
		})
	}
}

func TestResolveVariant_TieKeepsDeclarationOrder(t *testing.T) {
	ep, err := CompileEndpoint(&mock.Endpoint{
		Method: "GET",
		Path:   "/x",
		Variants: []mock.Variant{
			{Name: "a", Priority: 5},
			{Name: "b", Priority: 5},
			{Name: "fallback", IsDefault: true},
		},
	})
	require.NoError(t, err)

	v, err := ResolveVariant(ep, &RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, "a", v.Name, "empty rules always hold, first declared wins")
}

func TestResolveVariant_DefaultRulesIgnored(t *testing.T) {
	ep, err := CompileEndpoint(&mock.Endpoint{
		Method: "GET",
		Path:   "/x",
		Variants: []mock.Variant{
			{Name: "default", IsDefault: true, Rules: []mock.Rule{headerRule("X-Never", "sent")}},
			{Name: "specific", Rules: []mock.Rule{headerRule("X-Mode", "special")}},
		},
	})
	require.NoError(t, err)

	v, err := ResolveVariant(ep, headerCtx("X-Mode", "plain"))
	require.NoError(t, err)
	assert.Equal(t, "default", v.Name)
}

func TestResolveVariant_MultipleDefaults(t *testing.T) {
	ep, err := CompileEndpoint(&mock.Endpoint{
		Method: "GET",
		Path:   "/x",
		Variants: []mock.Variant{
			{Name: "one", IsDefault: true},
			{Name: "two", IsDefault: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, ep.DefaultCount())

	res, err := ResolveVariantTrace(ep, &RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, "one", res.Variant.Name)
	assert.True(t, res.UsedDefault)
	require.Len(t, res.Anomalies, 1)
	assert.Contains(t, res.Anomalies[0], "marked default")
}

func TestResolveVariant_NoVariantAvailable(t *testing.T) {
	empty, err := CompileEndpoint(&mock.Endpoint{Method: "GET", Path: "/empty"})
	require.NoError(t, err)

	_, err = ResolveVariant(empty, &RequestContext{})
	assert.True(t, errors.Is(err, ErrNoVariantAvailable))

	noDefault, err := CompileEndpoint(&mock.Endpoint{
		Method: "GET",
		Path:   "/strict",
		Variants: []mock.Variant{
			{Name: "only", Rules: []mock.Rule{headerRule("X-Key", "k")}},
		},
	})
	require.NoError(t, err)

	_, err = ResolveVariant(noDefault, headerCtx("X-Key", "wrong"))
	assert.True(t, errors.Is(err, ErrNoVariantAvailable))

	v, err := ResolveVariant(noDefault, headerCtx("X-Key", "k"))
	require.NoError(t, err)
	assert.Equal(t, "only", v.Name)

	_, err = ResolveVariant(nil, &RequestContext{})
	assert.True(t, errors.Is(err, ErrNoVariantAvailable))
}

func TestResolveVariantTrace_ReportsEveryCandidate(t *testing.T) {
	ep, err := CompileEndpoint(&mock.Endpoint{
		Method: "GET",
		Path:   "/x",
		Variants: []mock.Variant{
			{Name: "first", Priority: 1, Rules: []mock.Rule{headerRule("X-A", "1")}},
			{Name: "second", Priority: 2, Rules: []mock.Rule{headerRule("X-B", "1")}},
			{Name: "third", Priority: 3},
		},
	})
	require.NoError(t, err)

	res, err := ResolveVariantTrace(ep, headerCtx("X-B", "1"))
	require.NoError(t, err)
	assert.Equal(t, "second", res.Variant.Name)
	require.Len(t, res.Evaluated, 2, "evaluation stops at the selected variant")

	assert.Equal(t, "first", res.Evaluated[0].Name)
	assert.False(t, res.Evaluated[0].Matched)
	require.Len(t, res.Evaluated[0].Rules, 1)
	assert.False(t, res.Evaluated[0].Rules[0].Present)

	assert.True(t, res.Evaluated[1].Matched)
	assert.Equal(t, "1", res.Evaluated[1].Rules[0].Actual)
}
