// Package profilestore serializes profiles to a portable, versioned
// representation on top of the blob backend. Round-trips are lossless: every
// numeric field survives save/load, and an unrecognized schema version fails
// loudly instead of being silently misread.
package profilestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/storage"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrSchemaVersion is returned when a stored profile carries a version
	// this build does not understand.
	ErrSchemaVersion = errors.New("profilestore: unsupported schema version")
	// ErrNotFound is returned for handles with no stored profile.
	ErrNotFound = errors.New("profilestore: profile not found")
)

type envelope struct {
	Version int             `json:"version"`
	Profile schemas.Profile `json:"profile"`
}

// Store persists profiles under "profile/<uuid>" handles.
type Store struct {
	blobs storage.BlobStore
	log   *zap.Logger
}

// New creates a profile store on top of a blob backend.
func New(blobs storage.BlobStore, logger *zap.Logger) *Store {
	return &Store{blobs: blobs, log: logger.Named("profilestore")}
}

// Save persists the profile and returns an opaque handle for Load.
func (s *Store) Save(ctx context.Context, p schemas.Profile) (string, error) {
	p.SchemaVersion = schemas.ProfileSchemaVersion
	data, err := json.Marshal(envelope{Version: schemas.ProfileSchemaVersion, Profile: p})
	if err != nil {
		return "", fmt.Errorf("profilestore: marshal: %w", err)
	}

	handle := "profile/" + uuid.NewString()
	if err := s.blobs.Put(ctx, handle, data); err != nil {
		return "", fmt.Errorf("profilestore: persist %s: %w", handle, err)
	}
	s.log.Info("profile saved", zap.String("handle", handle))
	return handle, nil
}

// Load retrieves a profile by handle, rejecting unknown schema versions.
func (s *Store) Load(ctx context.Context, handle string) (schemas.Profile, error) {
	data, err := s.blobs.Get(ctx, handle)
	if errors.Is(err, storage.ErrNotFound) {
		return schemas.Profile{}, fmt.Errorf("%w: %s", ErrNotFound, handle)
	}
	if err != nil {
		return schemas.Profile{}, fmt.Errorf("profilestore: load %s: %w", handle, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return schemas.Profile{}, fmt.Errorf("profilestore: decode %s: %w", handle, err)
	}
	if env.Version != schemas.ProfileSchemaVersion {
		return schemas.Profile{}, fmt.Errorf("%w: got %d, want %d",
			ErrSchemaVersion, env.Version, schemas.ProfileSchemaVersion)
	}
	if env.Profile.Keyboard.Digraphs == nil {
		env.Profile.Keyboard.Digraphs = map[string]float64{}
	}
	return env.Profile, nil
}

// List returns every stored profile handle.
func (s *Store) List(ctx context.Context) ([]string, error) {
	return s.blobs.List(ctx, "profile/")
}
