package chaos

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockhost/mockhost/pkg/mock"
)

func TestApply_FailRateBounds(t *testing.T) {
	const trials = 1000

	always := &mock.Variant{FailRate: 1.0}
	never := &mock.Variant{FailRate: 0.0}

	for i := 0; i < trials; i++ {
		src := NewSource()
		assert.True(t, Apply(always, src).Failed, "failRate 1 must always fail")
		assert.False(t, Apply(never, src).Failed, "failRate 0 must never fail")
	}
}

func TestApply_FixedSequence(t *testing.T) {
	tests := []struct {
		name     string
		failRate float64
		roll     float64
		want     bool
	}{
		{"roll below rate fails", 0.25, 0.1, true},
		{"roll equal to rate passes", 0.25, 0.25, false},
		{"roll above rate passes", 0.25, 0.9, false},
		{"zero rate with zero roll passes", 0, 0, false},
		{"full rate with max roll fails", 1, 0.999999, true},
		{"rate above range clamps", 7, 0.999999, true},
		{"negative rate clamps", -1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Apply(&mock.Variant{FailRate: tt.failRate}, Sequence(tt.roll))
			assert.Equal(t, tt.want, out.Failed)
			assert.Equal(t, tt.roll, out.Roll)
		})
	}
}

func TestApply_DelayAppliedRegardlessOfFailure(t *testing.T) {
	v := &mock.Variant{Delay: 250, FailRate: 1}

	out := Apply(v, Sequence(0.5))
	assert.True(t, out.Failed)
	assert.Equal(t, 250*time.Millisecond, out.Delay)
	assert.Equal(t, int64(250), out.DelayMs())

	v.FailRate = 0
	out = Apply(v, Sequence(0.5))
	assert.False(t, out.Failed)
	assert.Equal(t, 250*time.Millisecond, out.Delay)
}

func TestApply_DoesNotModifyVariant(t *testing.T) {
	v := &mock.Variant{Status: 201, Delay: 10, FailRate: 0, Body: mock.String("ok")}
	before := *v

	_ = Apply(v, Sequence(0.3))
	assert.Equal(t, before.Status, v.Status)
	assert.True(t, before.Body.Equal(v.Body))
}

func TestApply_DelayClamped(t *testing.T) {
	assert.Equal(t, time.Duration(0), Apply(&mock.Variant{Delay: -5}, Sequence(0)).Delay)
	assert.Equal(t, mock.MaxDelayMs*time.Millisecond, Apply(&mock.Variant{Delay: mock.MaxDelayMs * 2}, Sequence(0)).Delay)
}

func TestApply_NilVariant(t *testing.T) {
	assert.Equal(t, Outcome{}, Apply(nil, Sequence(0)))
}

func TestSequence_Repeats(t *testing.T) {
	s := Sequence(0.1, 0.2)
	assert.Equal(t, 0.1, s.Float64())
	assert.Equal(t, 0.2, s.Float64())
	assert.Equal(t, 0.1, s.Float64())

	assert.Equal(t, 0.0, Sequence().Float64())
}

func TestSeededFactory_Reproducible(t *testing.T) {
	f := SeededFactory(42)
	a, b := f(), f()
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestSeededStream_ContinuesAcrossSources(t *testing.T) {
	a, b := SeededStream(7), SeededStream(7)

	first := []float64{a().Float64(), a().Float64(), a().Float64()}
	second := []float64{b().Float64(), b().Float64(), b().Float64()}
	assert.Equal(t, first, second)
	assert.NotEqual(t, first[0], first[1], "each source continues the shared stream")
}

func TestSeededStream_ConcurrentDrawsShareOneSequence(t *testing.T) {
	const workers, draws = 8, 50

	want := SeededStream(11)
	expected := make(map[float64]int)
	for i := 0; i < workers*draws; i++ {
		expected[want().Float64()]++
	}

	factory := SeededStream(11)
	var (
		mu  sync.Mutex
		got = make(map[float64]int)
		wg  sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < draws; i++ {
				v := factory().Float64()
				mu.Lock()
				got[v]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Concurrent callers split one sequence; only the assignment varies.
	assert.Equal(t, expected, got)
}

func TestNewSource_Range(t *testing.T) {
	src := NewSource()
	for i := 0; i < 1000; i++ {
		v := src.Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestSleep(t *testing.T) {
	t.Run("waits", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, Sleep(context.Background(), 20*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("zero returns immediately", func(t *testing.T) {
		require.NoError(t, Sleep(context.Background(), 0))
	})

	t.Run("cancel interrupts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		err := Sleep(ctx, 5*time.Second)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("already cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, Sleep(ctx, 0), context.Canceled)
	})
}

func TestSleep_DoesNotBlockOthers(t *testing.T) {
	slow, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = Sleep(slow, 10*time.Second) }()

	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = Sleep(context.Background(), time.Millisecond)
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("short sleeps blocked by a long one")
	}
}

func TestStats(t *testing.T) {
	var s Stats
	s.Record(Outcome{Failed: true})
	s.Record(Outcome{Delay: time.Millisecond})
	s.Record(Outcome{})
	s.RecordCancelled()

	snap := s.Snapshot()
	assert.Equal(t, StatsSnapshot{Evaluations: 3, Failures: 1, Delayed: 1, Cancelled: 1}, snap)

	s.Reset()
	assert.Equal(t, StatsSnapshot{}, s.Snapshot())
}

func TestFailureBody(t *testing.T) {
	data, err := FailureBody().MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"simulated_failure","message":"Random failure triggered"}`, string(data))
}
