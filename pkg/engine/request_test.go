package engine

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest_Body(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        any
	}{
		{
			name:        "json keeps numbers",
			contentType: "application/json",
			body:        `{"n": 12.50, "s": "x"}`,
			want:        map[string]any{"n": json.Number("12.50"), "s": "x"},
		},
		{
			name:        "json suffix with charset",
			contentType: "application/vnd.api+json; charset=utf-8",
			body:        `[1]`,
			want:        []any{json.Number("1")},
		},
		{
			name:        "no content type tries json",
			contentType: "",
			body:        `{"a": true}`,
			want:        map[string]any{"a": true},
		},
		{
			name:        "malformed json is absent",
			contentType: "application/json",
			body:        `{"a":`,
			want:        nil,
		},
		{
			name:        "trailing data is absent",
			contentType: "application/json",
			body:        `{"a":1} {"b":2}`,
			want:        nil,
		},
		{
			name:        "form first values",
			contentType: "application/x-www-form-urlencoded",
			body:        "a=1&a=2&b=x+y",
			want:        map[string]any{"a": "1", "b": "x y"},
		},
		{
			name:        "other types absent",
			contentType: "text/plain",
			body:        "hello",
			want:        nil,
		},
		{
			name:        "blank body absent",
			contentType: "application/json",
			body:        "   ",
			want:        nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/x?q=1", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			req, err := NewRequest(r, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Body)
			assert.Equal(t, "POST", req.Method)
			assert.Equal(t, "/x", req.Path)
			assert.Equal(t, "1", req.Query.Get("q"))
		})
	}
}

func TestNewRequest_TooLarge(t *testing.T) {
	r := httptest.NewRequest("POST", "/x", strings.NewReader(strings.Repeat("a", 11)))
	_, err := NewRequest(r, 10)
	assert.True(t, errors.Is(err, ErrBodyTooLarge))

	r = httptest.NewRequest("POST", "/x", strings.NewReader(strings.Repeat("a", 10)))
	_, err = NewRequest(r, 10)
	assert.NoError(t, err)
}
