// Package loop drives a sample-synchronous processor at a fixed cadence
// and enforces the real-time budget: every tick must finish within one
// sample period, since the whole cancellation scheme rests on the
// processing latency staying below the acoustic propagation time from
// reference sensor to actuator. A tick that overruns its period is
// reported as a [DeadlineError], never silently absorbed.
package loop

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Processor consumes one reference/error sample pair per tick and
// produces the actuator sample. Implemented by controller.Controller.
type Processor interface {
	Tick(reference, errSample float64) float64
}

// Source delivers per-tick sensor frames, synchronized to the sample
// clock. ok reports false when the stream ends.
type Source interface {
	ReadFrame() (reference, errSample float64, ok bool)
}

// Sink consumes one actuator sample per tick.
type Sink interface {
	WriteSample(sample float64) error
}

// Frame bundles the samples of one completed tick.
type Frame struct {
	Reference float64
	Error     float64
	Actuator  float64
}

// ErrNilProcessor is returned by New for a missing processor.
var ErrNilProcessor = errors.New("loop: processor must not be nil")

// DeadlineError reports a tick whose processing exceeded the sample period.
type DeadlineError struct {
	Tick    int
	Elapsed time.Duration
	Period  time.Duration
}

// Error describes the missed deadline.
func (e *DeadlineError) Error() string {
	return fmt.Sprintf("loop: tick %d took %v, sample period is %v",
		e.Tick, e.Elapsed, e.Period)
}

// Loop invokes a Processor once per sample period.
type Loop struct {
	proc   Processor
	period time.Duration
	now    func() time.Time
	tick   int
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock replaces the wall clock used for deadline accounting.
// Tests inject deterministic clocks here.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a loop for the given processor and sample rate.
func New(proc Processor, sampleRate float64, opts ...Option) (*Loop, error) {
	if proc == nil {
		return nil, ErrNilProcessor
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("loop: sample rate must be > 0: %v", sampleRate)
	}
	l := &Loop{
		proc:   proc,
		period: time.Duration(float64(time.Second) / sampleRate),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// Period returns the sample period.
func (l *Loop) Period() time.Duration {
	return l.period
}

// Ticks returns the number of completed ticks.
func (l *Loop) Ticks() int {
	return l.tick
}

// Tick runs one processor invocation under the deadline budget. The
// actuator sample is returned even when the deadline was missed, so a
// host that chooses to continue despite degraded latency still has a
// valid output; the error reports the overrun.
func (l *Loop) Tick(reference, errSample float64) (float64, error) {
	start := l.now()
	out := l.proc.Tick(reference, errSample)
	elapsed := l.now().Sub(start)
	l.tick++
	if elapsed > l.period {
		return out, &DeadlineError{Tick: l.tick, Elapsed: elapsed, Period: l.period}
	}
	return out, nil
}

// Run drives the processor from src into sink until the source drains,
// ctx is cancelled, or a deadline is missed. Ticks are strictly
// sequential; there is no buffering and no concurrency.
func (l *Loop) Run(ctx context.Context, src Source, sink Sink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		reference, errSample, ok := src.ReadFrame()
		if !ok {
			return nil
		}
		out, err := l.Tick(reference, errSample)
		if err != nil {
			return err
		}
		if err := sink.WriteSample(out); err != nil {
			return fmt.Errorf("loop: sink: %w", err)
		}
	}
}
