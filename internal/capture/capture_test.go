package capture

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// sliceSource emits a fixed event slice, then optionally fails.
type sliceSource struct {
	events []schemas.InputEvent
	err    error
}

func (s *sliceSource) Run(ctx context.Context, emit func(schemas.InputEvent)) error {
	for _, ev := range s.events {
		if ctx.Err() != nil {
			return nil
		}
		emit(ev)
	}
	return s.err
}

// collectSink appends every delivered event under a lock.
type collectSink struct {
	mu     sync.Mutex
	events []schemas.InputEvent
}

func (c *collectSink) sink(ev schemas.InputEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *collectSink) snapshot() []schemas.InputEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]schemas.InputEvent(nil), c.events...)
}

func TestRecorderForwardsInOrder(t *testing.T) {
	src := &sliceSource{events: []schemas.InputEvent{
		{Timestamp: 0, Kind: schemas.EventPointerMove, X: 1},
		{Timestamp: 10 * time.Millisecond, Kind: schemas.EventPointerMove, X: 2},
		{Timestamp: 20 * time.Millisecond, Kind: schemas.EventButtonDown, Button: schemas.ButtonLeft},
	}}
	var sink collectSink

	rec := NewRecorder(src, sink.sink, zap.NewNop(), DefaultOptions())
	require.NoError(t, rec.Start(context.Background()))
	rec.Wait()
	require.NoError(t, rec.Stop())

	got := sink.snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, 1.0, got[0].X)
	assert.Equal(t, schemas.EventButtonDown, got[2].Kind)
	assert.False(t, rec.Lost())
}

func TestRecorderRepairsTimestamps(t *testing.T) {
	// Ties and a backwards step, as a jittery source clock would produce.
	src := &sliceSource{events: []schemas.InputEvent{
		{Timestamp: 5 * time.Millisecond, Kind: schemas.EventPointerMove},
		{Timestamp: 5 * time.Millisecond, Kind: schemas.EventPointerMove},
		{Timestamp: 3 * time.Millisecond, Kind: schemas.EventPointerMove},
		{Timestamp: 9 * time.Millisecond, Kind: schemas.EventPointerMove},
	}}
	var sink collectSink

	rec := NewRecorder(src, sink.sink, zap.NewNop(), DefaultOptions())
	require.NoError(t, rec.Start(context.Background()))
	rec.Wait()
	require.NoError(t, rec.Stop())

	got := sink.snapshot()
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].Timestamp, got[i-1].Timestamp, "event %d", i)
	}
	// Untouched timestamps stay exact.
	assert.Equal(t, 5*time.Millisecond, got[0].Timestamp)
	assert.Equal(t, 9*time.Millisecond, got[3].Timestamp)
}

func TestRecorderSourceLoss(t *testing.T) {
	src := &sliceSource{
		events: []schemas.InputEvent{
			{Timestamp: time.Millisecond, Kind: schemas.EventPointerMove},
		},
		err: errors.New("device unplugged"),
	}
	var sink collectSink

	rec := NewRecorder(src, sink.sink, zap.NewNop(), DefaultOptions())
	require.NoError(t, rec.Start(context.Background()))
	rec.Wait()
	require.NoError(t, rec.Stop())

	got := sink.snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, schemas.EventCaptureLost, got[1].Kind)
	// The marker still lands after the last real event on the repaired clock.
	assert.Greater(t, got[1].Timestamp, got[0].Timestamp)
	assert.True(t, rec.Lost())
}

func TestRecorderSinkError(t *testing.T) {
	src := &sliceSource{events: []schemas.InputEvent{
		{Timestamp: 1 * time.Millisecond, Kind: schemas.EventPointerMove},
		{Timestamp: 2 * time.Millisecond, Kind: schemas.EventPointerMove},
		{Timestamp: 3 * time.Millisecond, Kind: schemas.EventPointerMove},
	}}

	sinkErr := errors.New("disk full")
	delivered := 0
	sink := func(ev schemas.InputEvent) error {
		delivered++
		if delivered == 2 {
			return sinkErr
		}
		return nil
	}

	rec := NewRecorder(src, sink, zap.NewNop(), DefaultOptions())
	require.NoError(t, rec.Start(context.Background()))
	rec.Wait()
	require.ErrorIs(t, rec.Stop(), sinkErr)
	// Delivery stops at the first sink failure.
	assert.Equal(t, 2, delivered)
}

func TestRecorderDoubleStart(t *testing.T) {
	src := &sliceSource{}
	var sink collectSink

	rec := NewRecorder(src, sink.sink, zap.NewNop(), DefaultOptions())
	require.NoError(t, rec.Start(context.Background()))
	require.ErrorIs(t, rec.Start(context.Background()), ErrAlreadyStarted)
	rec.Wait()
	require.NoError(t, rec.Stop())
}

func TestStopWithoutStart(t *testing.T) {
	rec := NewRecorder(&sliceSource{}, func(schemas.InputEvent) error { return nil }, zap.NewNop(), DefaultOptions())
	require.NoError(t, rec.Stop())
}

func TestJSONLSource(t *testing.T) {
	t.Run("decodes a stream", func(t *testing.T) {
		input := strings.Join([]string{
			`{"ts":0,"kind":"pointer_move","x":10,"y":20}`,
			``,
			`{"ts":16000000,"kind":"button_down","x":10,"y":20,"button":"left"}`,
			`{"ts":80000000,"kind":"key_down","key":"a"}`,
		}, "\n")

		var got []schemas.InputEvent
		err := NewJSONLSource(strings.NewReader(input)).Run(context.Background(), func(ev schemas.InputEvent) {
			got = append(got, ev)
		})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, schemas.EventPointerMove, got[0].Kind)
		assert.Equal(t, 16*time.Millisecond, got[1].Timestamp)
		assert.Equal(t, schemas.ButtonLeft, got[1].Button)
		assert.Equal(t, "a", got[2].Key)
	})

	t.Run("malformed line is source loss", func(t *testing.T) {
		input := `{"ts":0,"kind":"pointer_move"}` + "\n" + `{not json`
		err := NewJSONLSource(strings.NewReader(input)).Run(context.Background(), func(schemas.InputEvent) {})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("through the recorder a bad stream yields the loss marker", func(t *testing.T) {
		input := `{"ts":1000000,"kind":"pointer_move"}` + "\n" + `garbage`
		var sink collectSink

		rec := NewRecorder(NewJSONLSource(strings.NewReader(input)), sink.sink, zap.NewNop(), DefaultOptions())
		require.NoError(t, rec.Start(context.Background()))
		rec.Wait()
		require.NoError(t, rec.Stop())

		got := sink.snapshot()
		require.Len(t, got, 2)
		assert.Equal(t, schemas.EventCaptureLost, got[1].Kind)
		assert.True(t, rec.Lost())
	})
}
