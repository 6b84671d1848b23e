// Package analyzer distills a recorded session into a behavioral Profile:
// a timing-law regression over movement segments, motion statistics
// (velocity, curvature, overshoot, jitter), click timing, and keystroke
// dynamics. Analysis is pure and CPU-bound; independent sessions can be
// analyzed in parallel.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/segment"
)

// ErrSessionOpen is returned when analysis is attempted on a session that has
// not been ended. An open session may still be growing, which would make the
// "pure function over an ended session" guarantee a lie.
var ErrSessionOpen = errors.New("analyzer: session is still open for writes")

// Options are the analysis thresholds. The overshoot fraction and the jitter
// stationarity threshold are heuristic constants without a principled
// derivation; they are kept tunable pending empirical calibration.
type Options struct {
	Segment segment.Options

	// MinFittsSegments is the minimum number of width-carrying segments
	// required before the timing-law regression is trusted. Below it the
	// documented defaults (a=50, b=150, r2=0) are reported instead.
	MinFittsSegments int

	// OvershootFraction: a segment overshoots when an intermediate sample
	// passes the end point by more than this fraction of the straight-line
	// distance.
	OvershootFraction float64

	// JitterWindow and JitterRMSThreshold control micro-jitter extraction:
	// pointer samples are bucketed into fixed windows, and windows whose RMS
	// distance from their centroid stays under the threshold are treated as
	// near-stationary and pooled into the jitter estimate.
	JitterWindow       time.Duration
	JitterRMSThreshold float64

	// DoubleClickMax is the largest same-button down-to-down gap counted as a
	// double-click interval.
	DoubleClickMax time.Duration

	// DigraphCap bounds the digraph table; the highest-frequency pairs win.
	DigraphCap int
}

// DefaultOptions returns the documented analysis defaults.
func DefaultOptions() Options {
	return Options{
		Segment:            segment.DefaultOptions(),
		MinFittsSegments:   5,
		OvershootFraction:  0.10,
		JitterWindow:       500 * time.Millisecond,
		JitterRMSThreshold: 50,
		DoubleClickMax:     500 * time.Millisecond,
		DigraphCap:         64,
	}
}

// Analyzer computes Profiles from ended sessions.
type Analyzer struct {
	opts Options
	log  *zap.Logger
}

// New creates an Analyzer. Zero-valued option fields are replaced with the
// documented defaults.
func New(logger *zap.Logger, opts Options) *Analyzer {
	def := DefaultOptions()
	if opts.MinFittsSegments <= 0 {
		opts.MinFittsSegments = def.MinFittsSegments
	}
	if opts.OvershootFraction <= 0 {
		opts.OvershootFraction = def.OvershootFraction
	}
	if opts.JitterWindow <= 0 {
		opts.JitterWindow = def.JitterWindow
	}
	if opts.JitterRMSThreshold <= 0 {
		opts.JitterRMSThreshold = def.JitterRMSThreshold
	}
	if opts.DoubleClickMax <= 0 {
		opts.DoubleClickMax = def.DoubleClickMax
	}
	if opts.DigraphCap <= 0 {
		opts.DigraphCap = def.DigraphCap
	}
	return &Analyzer{opts: opts, log: logger.Named("analyzer")}
}

// Analyze derives a complete Profile from an ended session. Every profile
// field is populated: statistics with too few samples resolve to the
// documented defaults rather than being omitted.
func (a *Analyzer) Analyze(sess *schemas.RecordingSession) (schemas.Profile, error) {
	if sess == nil {
		return schemas.Profile{}, fmt.Errorf("analyzer: nil session")
	}
	if !sess.Ended() {
		return schemas.Profile{}, ErrSessionOpen
	}

	movements := segment.Movements(sess.Events, sess.TargetWidths)
	runs := segment.Keystrokes(sess.Events, a.opts.Segment)

	profile := schemas.Profile{
		SchemaVersion: schemas.ProfileSchemaVersion,
		CreatedAt:     time.Now().UTC(),
		TaskLabel:     sess.TaskLabel,
		Pointer:       a.analyzePointer(sess.Events, movements),
		Keyboard:      a.analyzeKeyboard(runs),
	}

	a.log.Debug("session analyzed",
		zap.String("session_id", sess.ID),
		zap.Int("events", len(sess.Events)),
		zap.Int("movement_segments", len(movements)),
		zap.Int("keystroke_runs", len(runs)),
		zap.Float64("fitts_r2", profile.Pointer.FittsR2),
	)
	return profile, nil
}

// AnalyzeMany analyzes independent sessions concurrently. The result slice is
// index-aligned with the input; the first failure cancels the remainder.
func (a *Analyzer) AnalyzeMany(parent context.Context, sessions []*schemas.RecordingSession) ([]schemas.Profile, error) {
	profiles := make([]schemas.Profile, len(sessions))
	g, ctx := errgroup.WithContext(parent)
	for i, sess := range sessions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := a.Analyze(sess)
			if err != nil {
				return fmt.Errorf("session %s: %w", sess.ID, err)
			}
			profiles[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return profiles, nil
}
