package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_EvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Add(&HistoryEntry{ID: fmt.Sprint(i), Method: "GET", Path: "/x"})
	}

	assert.Equal(t, 3, h.Len())
	assert.Nil(t, h.Get("0"))
	assert.Nil(t, h.Get("1"))
	require.NotNil(t, h.Get("4"))
	assert.False(t, h.Get("4").Timestamp.IsZero())

	list := h.List(nil)
	require.Len(t, list, 3)
	assert.Equal(t, "4", list[0].ID)
	assert.Equal(t, "2", list[2].ID)
}

func TestHistory_Filter(t *testing.T) {
	h := NewHistory(0)
	h.Add(&HistoryEntry{ID: "a", Method: "GET", Path: "/a", Outcome: OutcomeMatched, Trace: &Trace{EndpointID: "ep-a"}})
	h.Add(&HistoryEntry{ID: "b", Method: "POST", Path: "/a", Outcome: OutcomeNotFound})
	h.Add(&HistoryEntry{ID: "c", Method: "GET", Path: "/c", Outcome: OutcomeMatched, Trace: &Trace{EndpointID: "ep-c"}})
	h.Add(nil)

	tests := []struct {
		name   string
		filter *HistoryFilter
		want   []string
	}{
		{"all", &HistoryFilter{}, []string{"c", "b", "a"}},
		{"method", &HistoryFilter{Method: "GET"}, []string{"c", "a"}},
		{"path", &HistoryFilter{Path: "/a"}, []string{"b", "a"}},
		{"outcome", &HistoryFilter{Outcome: OutcomeNotFound}, []string{"b"}},
		{"endpoint", &HistoryFilter{EndpointID: "ep-a"}, []string{"a"}},
		{"limit", &HistoryFilter{Limit: 2}, []string{"c", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, e := range h.List(tt.filter) {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	h.Clear()
	assert.Equal(t, 0, h.Len())
}
