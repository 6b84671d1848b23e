package replay

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/aquilax/go-perlin"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/geom"
)

// ActionKind discriminates logical actions in an externally constructed
// sequence.
type ActionKind string

const (
	ActionMoveTo   ActionKind = "move_to"
	ActionClick    ActionKind = "click"
	ActionTypeText ActionKind = "type_text"
)

// Action is one logical step handed to the synthesizer: move here, click,
// type this. The synthesizer expands it into low-level events whose timing
// is drawn from a Profile.
type Action struct {
	Kind ActionKind `json:"kind"`

	// Move target, for move_to.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
	// TargetWidth feeds the timing-law duration for the move; 0 falls back
	// to a nominal 30px target.
	TargetWidth float64 `json:"target_width,omitempty"`

	// Button for click; empty means left.
	Button schemas.MouseButton `json:"button,omitempty"`

	// Text for type_text.
	Text string `json:"text,omitempty"`
}

// nominalTargetWidth is assumed when a move carries no width hint.
const nominalTargetWidth = 30.0

// Synthesizer expands logical actions into a timestamped event log shaped by
// a behavioral profile: timing-law movement durations, eased Bézier paths
// with Perlin drift and Gaussian tremor scaled to the profile's jitter, click
// holds and inter-key gaps drawn from the profile's distributions, and
// digraph-specific typing rhythm.
type Synthesizer struct {
	profile schemas.Profile
	rng     *rand.Rand
	noiseX  *perlin.Perlin
	noiseY  *perlin.Perlin

	pos   geom.Vec
	clock time.Duration
}

// NewSynthesizer creates a synthesizer starting at the given cursor
// position. The seed pins the random stream for reproducible sequences.
func NewSynthesizer(profile schemas.Profile, start geom.Vec, seed int64) *Synthesizer {
	const alpha, beta, octaves = 2.0, 2.0, int32(3)
	return &Synthesizer{
		profile: profile,
		rng:     rand.New(rand.NewSource(seed)),
		noiseX:  perlin.NewPerlin(alpha, beta, octaves, seed),
		noiseY:  perlin.NewPerlin(alpha, beta, octaves, seed+1),
	}
}

// Synthesize expands the action sequence into an ordered event log with
// strictly increasing timestamps, ready for the replay engine.
func (s *Synthesizer) Synthesize(actions []Action) ([]schemas.InputEvent, error) {
	var events []schemas.InputEvent
	for i, action := range actions {
		if i > 0 {
			// Brief planning pause between logical actions.
			s.clock += s.normalDur(150, 50, 20)
		}
		switch action.Kind {
		case ActionMoveTo:
			events = append(events, s.synthesizeMove(action)...)
		case ActionClick:
			events = append(events, s.synthesizeClick(action)...)
		case ActionTypeText:
			events = append(events, s.synthesizeTyping(action.Text)...)
		default:
			return nil, fmt.Errorf("replay: unknown action kind %q at index %d", action.Kind, i)
		}
	}
	return normalizeTimestamps(events), nil
}

// synthesizeMove produces a pointer_move trail along an eased Bézier curve
// whose duration follows the profile's timing law.
func (s *Synthesizer) synthesizeMove(action Action) []schemas.InputEvent {
	target := geom.Vec{X: action.X, Y: action.Y}
	dist := s.pos.Dist(target)
	if dist < 1 {
		s.pos = target
		return nil
	}

	width := action.TargetWidth
	if width <= 0 {
		width = nominalTargetWidth
	}
	p := s.profile.Pointer

	id := math.Log2(dist/width + 1)
	durMs := p.FittsA + p.FittsB*id
	durMs *= 1 + (s.rng.Float64()*0.3 - 0.15)
	if durMs < 20 {
		durMs = 20
	}
	duration := time.Duration(durMs * float64(time.Millisecond))

	steps := int(duration / (10 * time.Millisecond))
	if steps < 2 {
		steps = 2
	}

	path := s.bezierPath(s.pos, target, steps)
	events := make([]schemas.InputEvent, 0, steps)
	for i, pt := range path {
		t := float64(i) / float64(len(path)-1)
		eased := easeInOutCubic(t)

		out := pt
		if i != len(path)-1 {
			// Perlin drift plus Gaussian tremor, capped at three jitter
			// amplitudes; the final sample lands exactly on target so the
			// following click is honest.
			elapsed := eased * duration.Seconds()
			noise := geom.Vec{
				X: s.noiseX.Noise1D(elapsed*0.8) * p.JitterAmplitude,
				Y: s.noiseY.Noise1D(elapsed*0.8) * p.JitterAmplitude,
			}
			noise = noise.Add(geom.Vec{
				X: s.rng.NormFloat64() * p.JitterAmplitude * 0.5,
				Y: s.rng.NormFloat64() * p.JitterAmplitude * 0.5,
			})
			out = out.Add(noise.Limit(3 * p.JitterAmplitude))
		}

		events = append(events, schemas.InputEvent{
			Timestamp: s.clock + time.Duration(eased*float64(duration)),
			Kind:      schemas.EventPointerMove,
			X:         out.X,
			Y:         out.Y,
		})
	}

	s.clock += duration
	s.pos = target
	return events
}

// bezierPath samples a cubic Bézier from start to end whose bow is sized so
// the path-to-straight ratio approximates the profile's mean curvature.
func (s *Synthesizer) bezierPath(start, end geom.Vec, steps int) []geom.Vec {
	dist := start.Dist(end)
	dir := end.Sub(start).Normalize()
	perp := dir.Perp()

	bowFrac := s.profile.Pointer.CurvatureMean - 1
	if bowFrac < 0 {
		bowFrac = 0
	}
	bow := dist * bowFrac * (1.2 + s.rng.Float64()*0.6)
	if s.rng.Intn(2) == 0 {
		bow = -bow
	}

	p0 := start
	p1 := start.Add(dir.Mul(dist / 3)).Add(perp.Mul(bow))
	p2 := start.Add(dir.Mul(dist * 2 / 3)).Add(perp.Mul(bow * 0.6))
	p3 := end

	// De Casteljau evaluation, so t=0 and t=1 hit the endpoints exactly.
	path := make([]geom.Vec, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1)
		a := p0.Lerp(p1, t)
		b := p1.Lerp(p2, t)
		c := p2.Lerp(p3, t)
		path[i] = a.Lerp(b, t).Lerp(b.Lerp(c, t), t)
	}
	return path
}

// synthesizeClick emits a button press and release with a hold drawn from
// the profile's click-hold distribution.
func (s *Synthesizer) synthesizeClick(action Action) []schemas.InputEvent {
	button := action.Button
	if button == "" {
		button = schemas.ButtonLeft
	}
	p := s.profile.Pointer
	hold := s.normalDur(p.ClickHoldMean, p.ClickHoldStdDev, 20)

	events := []schemas.InputEvent{
		{Timestamp: s.clock, Kind: schemas.EventButtonDown, X: s.pos.X, Y: s.pos.Y, Button: button},
		{Timestamp: s.clock + hold, Kind: schemas.EventButtonUp, X: s.pos.X, Y: s.pos.Y, Button: button},
	}
	s.clock += hold
	return events
}

// synthesizeTyping emits key_down/key_up pairs whose down-to-down gaps come
// from the profile's digraph table (falling back to the inter-key
// distribution) and whose holds come from the hold distribution. Word and
// sentence boundaries get their profiled pauses.
func (s *Synthesizer) synthesizeTyping(text string) []schemas.InputEvent {
	k := s.profile.Keyboard
	var events []schemas.InputEvent
	var prev rune
	havePrev := false

	for _, r := range text {
		if havePrev {
			s.clock += s.interKeyGap(prev, r)
		}
		hold := s.normalDur(k.HoldMean, k.HoldStdDev, 15)
		key := keyID(r)
		events = append(events,
			schemas.InputEvent{Timestamp: s.clock, Kind: schemas.EventKeyDown, Key: key},
			schemas.InputEvent{Timestamp: s.clock + hold, Kind: schemas.EventKeyUp, Key: key},
		)
		prev, havePrev = r, true
	}
	if len(events) > 0 {
		s.clock = events[len(events)-1].Timestamp
	}
	return events
}

// interKeyGap picks the down-to-down gap preceding cur.
func (s *Synthesizer) interKeyGap(prev, cur rune) time.Duration {
	k := s.profile.Keyboard
	switch prev {
	case ' ':
		return s.normalDur(k.WordPauseMean, k.WordPauseMean*0.25, 40)
	case '.', '!', '?':
		return s.normalDur(k.SentencePauseMean, k.SentencePauseMean*0.25, 60)
	}
	if mean, ok := k.Digraphs[string(prev)+string(cur)]; ok {
		return s.normalDur(mean, k.InterKeyStdDev*0.5, 30)
	}
	return s.normalDur(k.InterKeyMean, k.InterKeyStdDev, 30)
}

// normalDur samples a normally distributed duration in milliseconds with a
// floor.
func (s *Synthesizer) normalDur(meanMs, stdDevMs, minMs float64) time.Duration {
	ms := s.rng.NormFloat64()*stdDevMs + meanMs
	if ms < minMs {
		ms = minMs
	}
	return time.Duration(ms * float64(time.Millisecond))
}

func keyID(r rune) string {
	if r == ' ' {
		return "space"
	}
	return string(r)
}

// easeInOutCubic shapes movement pacing: slow start, fast middle, settled
// end.
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// normalizeTimestamps orders events by timestamp (stable for ties) and bumps
// duplicates so the log satisfies the strictly-increasing invariant the
// engine and segmenter rely on.
func normalizeTimestamps(events []schemas.InputEvent) []schemas.InputEvent {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp <= events[i-1].Timestamp {
			events[i].Timestamp = events[i-1].Timestamp + time.Microsecond
		}
	}
	return events
}
