package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	blobs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return New(blobs, zap.NewNop())
}

func sampleEvents() []schemas.InputEvent {
	return []schemas.InputEvent{
		{Timestamp: 0, Kind: schemas.EventPointerMove, X: 10, Y: 20},
		{Timestamp: 16 * time.Millisecond, Kind: schemas.EventPointerMove, X: 40, Y: 25},
		{Timestamp: 30 * time.Millisecond, Kind: schemas.EventButtonDown, X: 40, Y: 25, Button: schemas.ButtonLeft},
		{Timestamp: 95 * time.Millisecond, Kind: schemas.EventButtonUp, X: 40, Y: 25, Button: schemas.ButtonLeft},
		{Timestamp: 130 * time.Millisecond, Kind: schemas.EventKeyDown, Key: "a"},
		{Timestamp: 210 * time.Millisecond, Kind: schemas.EventKeyUp, Key: "a"},
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	id := store.Begin("login-flow")
	require.NotEmpty(t, id)

	events := sampleEvents()
	require.NoError(t, store.Append(id, events...))
	require.NoError(t, store.SetTargetWidth(id, 2, 44))

	ended, err := store.End(ctx, id)
	require.NoError(t, err)
	assert.True(t, ended.Ended())
	assert.Equal(t, "login-flow", ended.TaskLabel)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	if diff := cmp.Diff(events, got.Events); diff != "" {
		t.Fatalf("events changed across persistence (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[int]float64{2: 44}, got.TargetWidths)
}

// flakyBlobStore fails the first n Put calls, then behaves normally.
type flakyBlobStore struct {
	storage.BlobStore
	failures int
}

func (f *flakyBlobStore) Put(ctx context.Context, key string, data []byte) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("backend unavailable")
	}
	return f.BlobStore.Put(ctx, key, data)
}

func TestEndRetriesAfterPersistFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	blobs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	flaky := &flakyBlobStore{BlobStore: blobs, failures: 1}
	store := New(flaky, zap.NewNop())

	id := store.Begin("checkout")
	events := sampleEvents()
	require.NoError(t, store.Append(id, events...))

	_, err = store.End(ctx, id)
	require.Error(t, err)

	// The session survived the failed End: it is still open and writable.
	_, err = store.Get(ctx, id)
	require.ErrorIs(t, err, ErrSessionOpen)
	require.NoError(t, store.Append(id, schemas.InputEvent{
		Timestamp: 300 * time.Millisecond, Kind: schemas.EventCaptureLost,
	}))

	ended, err := store.End(ctx, id)
	require.NoError(t, err)
	assert.True(t, ended.Ended())

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, got.Events, len(events)+1)
}

func TestGetOpenSessionFails(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	id := store.Begin("")
	_, err := store.Get(context.Background(), id)
	require.ErrorIs(t, err, ErrSessionOpen)
}

func TestWritesAfterEndFail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	id := store.Begin("")
	_, err := store.End(ctx, id)
	require.NoError(t, err)

	err = store.Append(id, schemas.InputEvent{Kind: schemas.EventPointerMove})
	require.ErrorIs(t, err, ErrUnknownSession)
	require.ErrorIs(t, store.SetTargetWidth(id, 0, 10), ErrUnknownSession)

	_, err = store.End(ctx, id)
	require.ErrorIs(t, err, ErrUnknownSession)
}

func TestUnknownSession(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	require.ErrorIs(t, store.Append("nope"), ErrUnknownSession)
	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownSession)
}

func TestSchemaVersionGuard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	blobs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	store := New(blobs, zap.NewNop())

	require.NoError(t, blobs.Put(ctx, "session/old", []byte(`{"version":0,"session":{"id":"old"}}`)))
	_, err = store.Get(ctx, "old")
	require.ErrorIs(t, err, ErrSchemaVersion)
}

func TestList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	a := store.Begin("a")
	b := store.Begin("b")
	_, err := store.End(ctx, a)
	require.NoError(t, err)
	_, err = store.End(ctx, b)
	require.NoError(t, err)
	// Still-open sessions are not listed.
	store.Begin("c")

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, ids)
}
