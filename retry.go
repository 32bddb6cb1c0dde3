package waypoint

import (
	"context"
	"time"
)

// RetryPolicy controls how often a failing Tracker or Debugger call is
// attempted and how long to wait in between.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	// MaxBackoff caps the delay; zero means no cap.
	MaxBackoff time.Duration
}

// delay returns the wait before retry number n (1-based).
func (p RetryPolicy) delay(n int) time.Duration {
	d := p.InitialBackoff
	if d <= 0 {
		return 0
	}
	for i := 1; i < n && p.BackoffMultiplier > 0; i++ {
		d = time.Duration(float64(d) * p.BackoffMultiplier)
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

func (p RetryPolicy) do(ctx context.Context, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || attempt >= p.MaxAttempts {
			return err
		}
		d := p.delay(attempt)
		if d <= 0 {
			if ctx.Err() != nil {
				return err
			}
			continue
		}
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}

// RetryBuilder provides a fluent way to construct RetryPolicy values and to
// wrap analytics sinks with them:
//
//	tracker := waypoint.Retry(3).
//	    WithExponentialBackoff(100*time.Millisecond, 2.0, 2*time.Second).
//	    Tracker(segmentTracker)
//
// Events are delivered by a single background goroutine, so backoff delays
// later events rather than reordering them.
type RetryBuilder struct {
	policy RetryPolicy
}

// Retry creates a RetryBuilder with the given maxAttempts.
//
// maxAttempts <= 0 is treated as 1 (no retries).
func Retry(maxAttempts int) RetryBuilder {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return RetryBuilder{
		policy: RetryPolicy{
			MaxAttempts: maxAttempts,
		},
	}
}

// WithExponentialBackoff configures exponential backoff:
//
//   - initial is the delay before the first retry.
//   - multiplier > 1 grows the delay each attempt (default 2.0 if <= 0).
//   - max caps the delay; if <= 0, there is no cap.
func (r RetryBuilder) WithExponentialBackoff(initial time.Duration, multiplier float64, max time.Duration) RetryBuilder {
	p := r.policy
	p.InitialBackoff = initial
	p.MaxBackoff = max
	if multiplier <= 0 {
		multiplier = 2.0
	}
	p.BackoffMultiplier = multiplier
	return RetryBuilder{policy: p}
}

// WithConstantBackoff configures a constant backoff between retries.
func (r RetryBuilder) WithConstantBackoff(delay time.Duration) RetryBuilder {
	p := r.policy
	p.InitialBackoff = delay
	p.MaxBackoff = 0
	p.BackoffMultiplier = 1.0
	return RetryBuilder{policy: p}
}

// Immediate disables any sleep between retries.
// Retries will still respect MaxAttempts.
func (r RetryBuilder) Immediate() RetryBuilder {
	p := r.policy
	p.InitialBackoff = 0
	p.MaxBackoff = 0
	p.BackoffMultiplier = 0
	return RetryBuilder{policy: p}
}

// Policy returns the underlying RetryPolicy.
func (r RetryBuilder) Policy() RetryPolicy {
	return r.policy
}

// Tracker wraps t so that failing calls are retried.
func (r RetryBuilder) Tracker(t Tracker) Tracker {
	return &retryTracker{next: t, policy: r.policy}
}

// Debugger wraps d so that failing calls are retried.
func (r RetryBuilder) Debugger(d Debugger) Debugger {
	return &retryDebugger{next: d, policy: r.policy}
}

type retryTracker struct {
	next   Tracker
	policy RetryPolicy
}

func (t *retryTracker) Track(ctx context.Context, ev TrackingEvent) error {
	return t.policy.do(ctx, func() error { return t.next.Track(ctx, ev) })
}

type retryDebugger struct {
	next   Debugger
	policy RetryPolicy
}

func (d *retryDebugger) Report(ctx context.Context, ev DebugEvent) (string, error) {
	var ref string
	err := d.policy.do(ctx, func() error {
		var err error
		ref, err = d.next.Report(ctx, ev)
		return err
	})
	return ref, err
}
