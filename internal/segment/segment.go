// Package segment partitions a raw event log into discrete movement segments
// and keystroke runs. Segmentation is pure and repeatable: the same log and
// options always produce the same result, so derived segments are recomputed
// on demand and never persisted.
package segment

import (
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/geom"
)

// Options carries the segmentation thresholds. Defaults come from
// DefaultOptions; callers override fields explicitly rather than mutating
// package state.
type Options struct {
	// PauseThreshold splits keystroke runs: a key-down arriving this long (or
	// longer) after the previous key-down starts a new run.
	PauseThreshold time.Duration

	// DigraphGapMax is the largest key-down to key-down gap still recorded as
	// a digraph timing.
	DigraphGapMax time.Duration
}

// DefaultOptions returns the documented segmentation defaults.
func DefaultOptions() Options {
	return Options{
		PauseThreshold: 2 * time.Second,
		DigraphGapMax:  2 * time.Second,
	}
}

// MovementSegment is a maximal run of pointer_move samples between a button
// release (or session start) and the next button_down. Segments always hold
// at least two samples and a positive duration.
type MovementSegment struct {
	Samples []schemas.InputEvent

	Start      geom.Vec
	End        geom.Vec
	ClickPoint geom.Vec

	Duration time.Duration
	// Distance is the straight-line start-to-end distance.
	Distance float64

	// TargetWidth is the clicked target's on-screen width in pixels when the
	// surrounding system supplied a hint, 0 when unknown. Only segments with
	// a known width qualify for the timing-law regression.
	TargetWidth float64
}

// Digraph is the timing of one ordered pair of consecutively typed
// characters.
type Digraph struct {
	First  string
	Second string
	Gap    time.Duration
}

// KeystrokeRun is a maximal burst of key events separated by pauses. Derived
// timing fields are filled in during segmentation.
type KeystrokeRun struct {
	Events []schemas.InputEvent

	// Holds are the down-to-up durations of keys whose release was observed
	// within the run.
	Holds []time.Duration
	// InterKey are the consecutive key-down gaps within the run.
	InterKey []time.Duration
	Digraphs []Digraph

	// Corrections counts corrective key-downs (Backspace, Delete).
	Corrections int
	// CorrectionLatencies are the gaps from the keystroke preceding each
	// corrective event to the correction itself.
	CorrectionLatencies []time.Duration
}

// KeyDownCount returns the number of key-down events in the run.
func (r *KeystrokeRun) KeyDownCount() int {
	n := 0
	for _, ev := range r.Events {
		if ev.Kind == schemas.EventKeyDown {
			n++
		}
	}
	return n
}

// Span returns the first-to-last key-down duration of the run.
func (r *KeystrokeRun) Span() time.Duration {
	var first, last time.Duration
	seen := false
	for _, ev := range r.Events {
		if ev.Kind != schemas.EventKeyDown {
			continue
		}
		if !seen {
			first = ev.Timestamp
			seen = true
		}
		last = ev.Timestamp
	}
	if !seen {
		return 0
	}
	return last - first
}

// IsCorrective reports whether a logical key id represents an error
// correction.
func IsCorrective(key string) bool {
	return key == "Backspace" || key == "Delete"
}

// characterKey returns the single printable rune a key id stands for, if any.
// Digraph timing only applies to character pairs.
func characterKey(key string) (rune, bool) {
	r, size := utf8.DecodeRuneInString(key)
	if size != len(key) || r == utf8.RuneError {
		return 0, false
	}
	if !unicode.IsGraphic(r) || unicode.IsSpace(r) {
		return 0, false
	}
	return r, true
}

// Movements partitions events into movement segments. widths maps the index
// of a terminating button_down event to a target-width hint in pixels; nil
// means no hints. Segments with fewer than two samples or a non-positive
// duration are dropped.
func Movements(events []schemas.InputEvent, widths map[int]float64) []MovementSegment {
	var segs []MovementSegment
	var cur []schemas.InputEvent
	collecting := true // a segment may begin at session start

	for i, ev := range events {
		switch ev.Kind {
		case schemas.EventPointerMove:
			if collecting {
				cur = append(cur, ev)
			}
		case schemas.EventButtonDown:
			if seg, ok := closeSegment(cur, ev, widths, i); ok {
				segs = append(segs, seg)
			}
			cur = nil
			collecting = false
		case schemas.EventButtonUp:
			// A release (drag end or click end) starts the next segment.
			cur = nil
			collecting = true
		}
	}
	// Trailing moves with no terminating click are a discarded remainder.
	return segs
}

func closeSegment(samples []schemas.InputEvent, click schemas.InputEvent, widths map[int]float64, clickIndex int) (MovementSegment, bool) {
	if len(samples) < 2 {
		return MovementSegment{}, false
	}
	first, last := samples[0], samples[len(samples)-1]
	dur := last.Timestamp - first.Timestamp
	if dur <= 0 {
		return MovementSegment{}, false
	}

	seg := MovementSegment{
		Samples:    samples,
		Start:      geom.Vec{X: first.X, Y: first.Y},
		End:        geom.Vec{X: last.X, Y: last.Y},
		ClickPoint: geom.Vec{X: click.X, Y: click.Y},
		Duration:   dur,
	}
	seg.Distance = seg.Start.Dist(seg.End)
	if widths != nil {
		seg.TargetWidth = widths[clickIndex]
	}
	return seg, true
}

// Keystrokes partitions events into keystroke runs. A run ends at a key-down
// gap of at least opts.PauseThreshold or at any non-keyboard event; runs with
// no key-down events are dropped.
func Keystrokes(events []schemas.InputEvent, opts Options) []KeystrokeRun {
	if opts.PauseThreshold <= 0 {
		opts.PauseThreshold = DefaultOptions().PauseThreshold
	}
	if opts.DigraphGapMax <= 0 {
		opts.DigraphGapMax = DefaultOptions().DigraphGapMax
	}

	var runs []KeystrokeRun
	var cur []schemas.InputEvent
	var lastDown time.Duration
	haveDown := false

	flush := func() {
		if run, ok := deriveRun(cur, opts); ok {
			runs = append(runs, run)
		}
		cur = nil
		haveDown = false
	}

	for _, ev := range events {
		if !ev.IsKeyboard() {
			if ev.Kind == schemas.EventCaptureLost {
				continue
			}
			flush()
			continue
		}
		if ev.Kind == schemas.EventKeyDown {
			if haveDown && ev.Timestamp-lastDown >= opts.PauseThreshold {
				flush()
			}
			lastDown = ev.Timestamp
			haveDown = true
		}
		cur = append(cur, ev)
	}
	flush()
	return runs
}

func deriveRun(events []schemas.InputEvent, opts Options) (KeystrokeRun, bool) {
	run := KeystrokeRun{Events: events}
	if run.KeyDownCount() == 0 {
		return KeystrokeRun{}, false
	}

	// Hold durations: match each key-down to the next key-up of the same key.
	claimed := make([]bool, len(events))
	for i, ev := range events {
		if ev.Kind != schemas.EventKeyDown {
			continue
		}
		for j := i + 1; j < len(events); j++ {
			if claimed[j] || events[j].Kind != schemas.EventKeyUp || events[j].Key != ev.Key {
				continue
			}
			claimed[j] = true
			run.Holds = append(run.Holds, events[j].Timestamp-ev.Timestamp)
			break
		}
	}

	// Inter-key intervals, digraphs, and corrections walk the key-down
	// subsequence.
	var prev *schemas.InputEvent
	for i := range events {
		ev := &events[i]
		if ev.Kind != schemas.EventKeyDown {
			continue
		}
		if prev != nil {
			gap := ev.Timestamp - prev.Timestamp
			run.InterKey = append(run.InterKey, gap)

			if gap < opts.DigraphGapMax {
				if a, ok := characterKey(prev.Key); ok {
					if b, ok := characterKey(ev.Key); ok {
						run.Digraphs = append(run.Digraphs, Digraph{
							First:  string(a),
							Second: string(b),
							Gap:    gap,
						})
					}
				}
			}
			if IsCorrective(ev.Key) {
				run.Corrections++
				run.CorrectionLatencies = append(run.CorrectionLatencies, gap)
			}
		} else if IsCorrective(ev.Key) {
			run.Corrections++
		}
		prev = ev
	}
	return run, true
}
