package chaos

import (
	"context"
	"math"
	"time"

	"github.com/mockhost/mockhost/pkg/mock"
)

// Simulated failure response.
const (
	FailureStatus  = 500
	FailureError   = "simulated_failure"
	FailureMessage = "Random failure triggered"
)

// FailureBody returns the body sent in place of a failed variant.
func FailureBody() mock.Value {
	return mock.Object(map[string]mock.Value{
		"error":   mock.String(FailureError),
		"message": mock.String(FailureMessage),
	})
}

// Outcome is the side effect a variant requests for one response.
type Outcome struct {
	// Delay is applied before any byte is written, failed or not.
	Delay time.Duration `json:"delay"`

	// Failed means the variant's status, headers and body are discarded in
	// favor of the simulated failure.
	Failed bool `json:"failed"`

	// Roll is the sample drawn against the fail rate.
	Roll float64 `json:"roll"`
}

// DelayMs returns Delay in whole milliseconds.
func (o Outcome) DelayMs() int64 { return o.Delay.Milliseconds() }

// Apply draws one sample from src and decides the outcome for v. The
// variant is never modified. A nil source behaves like a fresh NewSource.
func Apply(v *mock.Variant, src Source) Outcome {
	if v == nil {
		return Outcome{}
	}
	if src == nil {
		src = NewSource()
	}

	roll := src.Float64()
	return Outcome{
		Delay:  time.Duration(clampDelay(v.Delay)) * time.Millisecond,
		Failed: roll < clampRate(v.FailRate),
		Roll:   roll,
	}
}

// Sleep waits for d or until ctx is done, whichever comes first. It returns
// ctx.Err() when the wait was cut short.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Ranges are validated with the endpoint; these guard hand-built variants.
func clampDelay(ms int) int {
	if ms < 0 {
		return 0
	}
	if ms > mock.MaxDelayMs {
		return mock.MaxDelayMs
	}
	return ms
}

func clampRate(rate float64) float64 {
	if rate < 0 || math.IsNaN(rate) {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
