// Package replay reproduces a recorded or synthesized action sequence
// through an abstract input sink, preserving relative timing. The emission
// loop is the concurrency-sensitive piece: it schedules against a monotonic
// clock, subtracts the sink's observed delivery latency from each wait so
// drift never compounds, and checks cancellation at least once per event.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
)

// Sink delivers one low-level input event to its concrete transport. A sink
// is exclusively owned by one in-flight replay at a time.
type Sink interface {
	Deliver(ctx context.Context, ev schemas.InputEvent) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev schemas.InputEvent) error

func (f SinkFunc) Deliver(ctx context.Context, ev schemas.InputEvent) error { return f(ctx, ev) }

// ErrReplayInFlight is returned when Replay is called while another replay
// is still running on the same engine.
var ErrReplayInFlight = errors.New("replay: another replay is in flight")

// DeliveryError reports the 0-based index of the event the sink rejected.
// Replay aborts immediately on delivery failure; retry policy belongs to the
// caller.
type DeliveryError struct {
	Index int
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("replay: delivery failed at event %d: %v", e.Index, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Options tune the emission loop.
type Options struct {
	// LatencyGain is the EWMA weight applied to newly observed sink delivery
	// latencies. Higher values track latency changes faster at the cost of
	// more scheduling noise.
	LatencyGain float64
}

// DefaultOptions returns the documented replay defaults.
func DefaultOptions() Options {
	return Options{LatencyGain: 0.2}
}

// Engine schedules event emission. One engine serves one sink; a second
// Replay call while one is running fails with ErrReplayInFlight.
type Engine struct {
	log  *zap.Logger
	opts Options

	// now and sleep are injection points for deterministic tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	inFlight atomic.Bool
}

// NewEngine creates a replay engine.
func NewEngine(logger *zap.Logger, opts Options) *Engine {
	if opts.LatencyGain <= 0 || opts.LatencyGain > 1 {
		opts.LatencyGain = DefaultOptions().LatencyGain
	}
	return &Engine{
		log:   logger.Named("replay"),
		opts:  opts,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Replay emits events through the sink, scheduling each at
// (timestamp - firstTimestamp) / speed relative to the replay start. A
// non-nil profile enables profile-derived transforms (micro-jitter on
// pointer moves); a nil profile is a correctly scheduled pass-through.
// Replay returns once every event is emitted, the context is canceled, or
// the sink rejects an event.
func (e *Engine) Replay(ctx context.Context, events []schemas.InputEvent, profile *schemas.Profile, speed float64, sink Sink) error {
	if !e.inFlight.CompareAndSwap(false, true) {
		return ErrReplayInFlight
	}
	defer e.inFlight.Store(false)

	if len(events) == 0 {
		return nil
	}
	if speed <= 0 {
		speed = 1
	}

	var jitter *jitterInjector
	if profile != nil && profile.Pointer.JitterAmplitude > 0 {
		jitter = newJitterInjector(profile.Pointer)
	}

	first := events[0].Timestamp
	start := e.now()
	var latency time.Duration

	e.log.Debug("replay started",
		zap.Int("events", len(events)),
		zap.Float64("speed", speed),
		zap.Bool("profile_transform", jitter != nil),
	)

	for i, ev := range events {
		target := start.Add(time.Duration(float64(ev.Timestamp-first) / speed))

		// Lead the schedule by the observed delivery latency so the event
		// lands at its target time instead of latency-late.
		if wait := target.Sub(e.now()) - latency; wait > 0 {
			if err := e.sleep(ctx, wait); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		out := ev
		if jitter != nil && ev.Kind == schemas.EventPointerMove {
			out = jitter.apply(out, e.now().Sub(start))
		}

		sentAt := e.now()
		if err := sink.Deliver(ctx, out); err != nil {
			e.log.Warn("sink rejected event", zap.Int("index", i), zap.Error(err))
			return &DeliveryError{Index: i, Err: err}
		}
		observed := e.now().Sub(sentAt)
		latency += time.Duration(e.opts.LatencyGain * float64(observed-latency))
	}

	e.log.Debug("replay finished", zap.Duration("wall", e.now().Sub(start)))
	return nil
}

// sleepCtx waits for d or until the context ends.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
