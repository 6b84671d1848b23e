// Package capture pumps a raw hardware-event source into an append-only
// sink. Capture is pure transport: no coalescing, no reordering, no
// analysis. Burst micro-timing is the signal being measured, so the source
// callback is decoupled from the sink by a queue drained in a dedicated
// goroutine and is never blocked by a slow consumer.
package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
)

// Source is a raw hardware-event feed. Run delivers events through emit
// until the context is canceled (clean stop, return nil) or the source is
// lost (return the loss error). Sources must deliver monotonically
// timestamped events from a single clock.
type Source interface {
	Run(ctx context.Context, emit func(schemas.InputEvent)) error
}

// Sink receives the ordered, timestamp-repaired event stream, one event per
// call, from a single goroutine.
type Sink func(ev schemas.InputEvent) error

// Options tune the recorder.
type Options struct {
	// QueueSize bounds the source-to-writer queue. The writer only appends,
	// so the queue exists to absorb bursts, not sustained backlog.
	QueueSize int
}

// DefaultOptions returns the documented capture defaults.
func DefaultOptions() Options {
	return Options{QueueSize: 4096}
}

// ErrAlreadyStarted is returned by Start on a running or finished recorder.
var ErrAlreadyStarted = errors.New("capture: recorder already started")

// Recorder runs one capture session: a source-pump goroutine feeding a
// single-writer goroutine that forwards to the sink.
type Recorder struct {
	source Source
	sink   Sink
	log    *zap.Logger
	opts   Options

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	lastTS  time.Duration
	haveTS  bool
	lost    bool
	sinkErr error
}

// NewRecorder creates a recorder for one session.
func NewRecorder(source Source, sink Sink, logger *zap.Logger, opts Options) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultOptions().QueueSize
	}
	return &Recorder{
		source: source,
		sink:   sink,
		log:    logger.Named("capture"),
		opts:   opts,
		done:   make(chan struct{}),
	}
}

// Start begins capturing. It returns immediately; events flow until Stop is
// called, the context ends, or the source is lost. On source loss a terminal
// capture_lost marker is forwarded to the sink before the stream closes.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrAlreadyStarted
	}
	r.started = true

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	queue := make(chan schemas.InputEvent, r.opts.QueueSize)

	// Source pump: its only job is to move events onto the queue so the
	// hardware callback path never runs consumer code.
	go func() {
		defer close(queue)
		err := r.source.Run(runCtx, func(ev schemas.InputEvent) {
			select {
			case queue <- ev:
			case <-runCtx.Done():
			}
		})
		if err != nil && runCtx.Err() == nil {
			r.log.Warn("capture source lost", zap.Error(err))
			r.mu.Lock()
			r.lost = true
			r.mu.Unlock()
			select {
			case queue <- schemas.InputEvent{Kind: schemas.EventCaptureLost}:
			case <-runCtx.Done():
			}
		}
	}()

	// Single writer: repairs timestamp ties and forwards in order.
	go func() {
		defer close(r.done)
		for ev := range queue {
			r.forward(ev)
		}
	}()
	return nil
}

// forward enforces strictly increasing timestamps (ties broken by insertion
// order via a minimal bump) and hands the event to the sink.
func (r *Recorder) forward(ev schemas.InputEvent) {
	r.mu.Lock()
	if r.haveTS && ev.Timestamp <= r.lastTS {
		ev.Timestamp = r.lastTS + time.Microsecond
	}
	r.lastTS = ev.Timestamp
	r.haveTS = true
	alreadyFailed := r.sinkErr != nil
	r.mu.Unlock()

	if alreadyFailed {
		return
	}
	if err := r.sink(ev); err != nil {
		r.log.Error("capture sink rejected event", zap.Error(err))
		r.mu.Lock()
		r.sinkErr = err
		r.mu.Unlock()
	}
}

// Wait blocks until the source stops on its own (EOF, loss, or context end)
// and the queue drains. Callers that want the whole stream call Wait before
// Stop.
func (r *Recorder) Wait() {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return
	}
	<-r.done
}

// Stop halts capture and waits for the queue to drain. It returns the first
// sink error, if any.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	started := r.started
	cancel := r.cancel
	r.mu.Unlock()
	if !started {
		return nil
	}
	cancel()
	<-r.done

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sinkErr
}

// Lost reports whether the raw source disappeared mid-session.
func (r *Recorder) Lost() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lost
}
