package profilestore

import (
	"context"
	"strings"
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

func sampleProfile() schemas.Profile {
	p := schemas.Profile{
		SchemaVersion: schemas.ProfileSchemaVersion,
		CreatedAt:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		TaskLabel:     "checkout-flow",
		Pointer:       schemas.DefaultPointerProfile(),
		Keyboard:      schemas.DefaultKeyboardProfile(),
	}
	p.Pointer.FittsA = 63.27
	p.Pointer.FittsB = 141.09
	p.Pointer.FittsR2 = 0.87
	p.Pointer.VelocityMean = 712.445
	p.Pointer.JitterAmplitude = 1.375
	p.Keyboard.WPMMean = 58.12
	p.Keyboard.Digraphs = map[string]float64{"th": 118.25, "he": 104.5}
	return p
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	want := sampleProfile()
	handle, err := store.Save(ctx, want)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(handle, "profile/"))

	got, err := store.Load(ctx, handle)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("profile changed across round-trip (-want +got):\n%s", diff)
	}
}

func TestRoundTripZeroDataProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	// A profile analyzed from an empty session: all defaults, empty digraphs.
	want := schemas.Profile{
		SchemaVersion: schemas.ProfileSchemaVersion,
		CreatedAt:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Pointer:       schemas.DefaultPointerProfile(),
		Keyboard:      schemas.DefaultKeyboardProfile(),
	}

	handle, err := store.Save(ctx, want)
	require.NoError(t, err)

	got, err := store.Load(ctx, handle)
	require.NoError(t, err)
	require.NotNil(t, got.Keyboard.Digraphs)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("profile changed across round-trip (-want +got):\n%s", diff)
	}
}

func TestSaveStampsSchemaVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	p := sampleProfile()
	p.SchemaVersion = 0

	handle, err := store.Save(ctx, p)
	require.NoError(t, err)

	got, err := store.Load(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, schemas.ProfileSchemaVersion, got.SchemaVersion)
}

func TestLoadRejectsUnknownSchemaVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	blobs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	store := New(blobs, zap.NewNop())

	// A profile written by some future build.
	future := []byte(`{"version":99,"profile":{"schema_version":99}}`)
	require.NoError(t, blobs.Put(ctx, "profile/future", future))

	_, err = store.Load(ctx, "profile/future")
	require.ErrorIs(t, err, ErrSchemaVersion)
}

func TestLoadMissingHandle(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	_, err := store.Load(context.Background(), "profile/does-not-exist")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	h1, err := store.Save(ctx, sampleProfile())
	require.NoError(t, err)
	h2, err := store.Save(ctx, sampleProfile())
	require.NoError(t, err)

	handles, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{h1, h2}, handles)
}
