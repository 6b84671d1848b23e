// Package session owns recording-session lifecycle: begin, append, end, and
// persistence of the raw event log. A session is writable only between Begin
// and End; analysis consumers can only observe ended sessions, which keeps
// segmentation and profiling pure functions over a frozen log.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/storage"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrSessionOpen is returned when a read is attempted on a session that
	// has not been ended.
	ErrSessionOpen = errors.New("session: still open for writes")
	// ErrSessionEnded is returned when a write is attempted after End.
	ErrSessionEnded = errors.New("session: already ended")
	// ErrUnknownSession is returned for ids with no open or persisted session.
	ErrUnknownSession = errors.New("session: unknown id")
	// ErrSchemaVersion is returned for persisted sessions with an
	// unrecognized schema version.
	ErrSchemaVersion = errors.New("session: unsupported schema version")
)

// envelopeVersion is the persisted session schema.
const envelopeVersion = 1

type envelope struct {
	Version int                      `json:"version"`
	Session schemas.RecordingSession `json:"session"`
}

// Store manages open sessions in memory and persists ended ones through the
// blob backend under "session/<id>".
type Store struct {
	blobs storage.BlobStore
	log   *zap.Logger

	mu   sync.Mutex
	open map[string]*schemas.RecordingSession
}

// New creates a session store on top of a blob backend.
func New(blobs storage.BlobStore, logger *zap.Logger) *Store {
	return &Store{
		blobs: blobs,
		log:   logger.Named("session"),
		open:  map[string]*schemas.RecordingSession{},
	}
}

// Begin opens a new recording session and returns its id.
func (s *Store) Begin(taskLabel string) string {
	sess := &schemas.RecordingSession{
		ID:        uuid.NewString(),
		TaskLabel: taskLabel,
		StartedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.open[sess.ID] = sess
	s.mu.Unlock()

	s.log.Info("session started", zap.String("session_id", sess.ID), zap.String("task", taskLabel))
	return sess.ID
}

// Append adds events to an open session. The capture recorder is the single
// writer; Append preserves its ordering untouched.
func (s *Store) Append(id string, events ...schemas.InputEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.open[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	sess.Events = append(sess.Events, events...)
	return nil
}

// SetTargetWidth attaches a target-width hint from the surrounding system to
// the button_down event at eventIndex.
func (s *Store) SetTargetWidth(id string, eventIndex int, width float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.open[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	if sess.TargetWidths == nil {
		sess.TargetWidths = map[int]float64{}
	}
	sess.TargetWidths[eventIndex] = width
	return nil
}

// End closes the session for writes, persists it, and returns the frozen
// session.
func (s *Store) End(ctx context.Context, id string) (*schemas.RecordingSession, error) {
	s.mu.Lock()
	sess, ok := s.open[id]
	if ok {
		delete(s.open, id)
	}
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	sess.EndedAt = time.Now().UTC()
	data, err := json.Marshal(envelope{Version: envelopeVersion, Session: *sess})
	if err != nil {
		s.reopen(sess)
		return nil, fmt.Errorf("session: marshal %s: %w", id, err)
	}
	if err := s.blobs.Put(ctx, blobKey(id), data); err != nil {
		s.reopen(sess)
		return nil, fmt.Errorf("session: persist %s: %w", id, err)
	}

	s.log.Info("session ended",
		zap.String("session_id", id),
		zap.Int("events", len(sess.Events)),
		zap.Duration("length", sess.EndedAt.Sub(sess.StartedAt)),
	)
	return sess, nil
}

// reopen puts a session back in the open map after a failed End so the
// caller can retry instead of losing the recording.
func (s *Store) reopen(sess *schemas.RecordingSession) {
	sess.EndedAt = time.Time{}
	s.mu.Lock()
	s.open[sess.ID] = sess
	s.mu.Unlock()
}

// Get loads an ended session. Asking for a session that is still open is an
// ErrSessionOpen error, enforcing the ended-before-analysis rule.
func (s *Store) Get(ctx context.Context, id string) (*schemas.RecordingSession, error) {
	s.mu.Lock()
	_, isOpen := s.open[id]
	s.mu.Unlock()
	if isOpen {
		return nil, fmt.Errorf("%w: %s", ErrSessionOpen, id)
	}

	data, err := s.blobs.Get(ctx, blobKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	if err != nil {
		return nil, fmt.Errorf("session: load %s: %w", id, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", id, err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchemaVersion, env.Version, envelopeVersion)
	}
	return &env.Session, nil
}

// List returns the ids of all persisted sessions.
func (s *Store) List(ctx context.Context) ([]string, error) {
	keys, err := s.blobs.List(ctx, "session/")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, key[len("session/"):])
	}
	return ids, nil
}

func blobKey(id string) string {
	return "session/" + id
}
