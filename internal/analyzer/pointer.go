package analyzer

import (
	"math"
	"time"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/geom"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/segment"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/stats"
)

// analyzePointer reduces movement segments and the raw pointer stream into
// the pointer half of a Profile.
func (a *Analyzer) analyzePointer(events []schemas.InputEvent, segs []segment.MovementSegment) schemas.PointerProfile {
	p := schemas.DefaultPointerProfile()
	p.SegmentCount = len(segs)

	var velocities, curvatures []float64
	var overshootDists []float64
	overshoots := 0
	curved := 0

	envelope := make([]float64, schemas.EnvelopeBins)
	envelopeSegs := 0

	for _, seg := range segs {
		// Velocity: straight-line distance over duration. Segments with a
		// non-positive duration were already dropped by the segmenter.
		velocities = append(velocities, seg.Distance/seg.Duration.Seconds())

		if seg.Distance > 0 {
			curvatures = append(curvatures, pathLength(seg)/seg.Distance)
			curved++

			if excess := maxOvershoot(seg); excess > a.opts.OvershootFraction*seg.Distance {
				overshoots++
				overshootDists = append(overshootDists, excess)
			}
		}

		if env := segmentEnvelope(seg); env != nil {
			for i, v := range env {
				envelope[i] += v
			}
			envelopeSegs++
		}
	}

	if len(velocities) > 0 {
		p.VelocityMean, p.VelocityStdDev = stats.MeanStdDev(velocities)
	}
	if len(curvatures) > 0 {
		p.CurvatureMean, p.CurvatureStdDev = stats.MeanStdDev(curvatures)
	}
	if curved > 0 {
		p.OvershootRate = float64(overshoots) / float64(curved)
		p.OvershootMeanDistance = stats.Mean(overshootDists)
	}
	if envelopeSegs > 0 {
		for i := range envelope {
			p.VelocityEnvelope[i] = envelope[i] / float64(envelopeSegs)
		}
	}

	a.fitTimingLaw(&p, segs)
	a.extractJitter(&p, events)
	a.extractClickTiming(&p, events)
	return p
}

// fitTimingLaw regresses segment duration (ms) on the index of difficulty
// log2(distance/width + 1) across segments carrying a target-width hint. With
// fewer than MinFittsSegments qualifying segments the defaults stand.
func (a *Analyzer) fitTimingLaw(p *schemas.PointerProfile, segs []segment.MovementSegment) {
	var ids, durations []float64
	for _, seg := range segs {
		if seg.TargetWidth <= 0 || seg.Distance <= 0 {
			continue
		}
		ids = append(ids, indexOfDifficulty(seg.Distance, seg.TargetWidth))
		durations = append(durations, toMillis(seg.Duration))
	}
	if len(ids) < a.opts.MinFittsSegments {
		return
	}
	if intercept, slope, r2, ok := stats.LinearRegression(ids, durations); ok {
		p.FittsA, p.FittsB, p.FittsR2 = intercept, slope, r2
	}
}

// indexOfDifficulty is the timing-law quantity log2(distance/width + 1).
func indexOfDifficulty(distance, width float64) float64 {
	return math.Log2(distance/width + 1)
}

// extractJitter pools per-sample deviations from near-stationary windows of
// the pointer stream. The characteristic frequency is approximated as half
// the mean sample rate inside qualifying windows.
func (a *Analyzer) extractJitter(p *schemas.PointerProfile, events []schemas.InputEvent) {
	type window struct {
		points []geom.Vec
	}
	windows := map[int64]*window{}
	for _, ev := range events {
		if ev.Kind != schemas.EventPointerMove {
			continue
		}
		idx := int64(ev.Timestamp / a.opts.JitterWindow)
		w := windows[idx]
		if w == nil {
			w = &window{}
			windows[idx] = w
		}
		w.points = append(w.points, geom.Vec{X: ev.X, Y: ev.Y})
	}

	var pooled []float64
	qualifying := 0
	sampleCount := 0
	for _, w := range windows {
		if len(w.points) < 2 {
			continue
		}
		var centroid geom.Vec
		for _, pt := range w.points {
			centroid = centroid.Add(pt)
		}
		centroid = centroid.Mul(1.0 / float64(len(w.points)))

		devs := make([]float64, len(w.points))
		for i, pt := range w.points {
			devs[i] = pt.Dist(centroid)
		}
		if stats.RMS(devs) >= a.opts.JitterRMSThreshold {
			// The pointer was in transit, not idling.
			continue
		}
		pooled = append(pooled, devs...)
		qualifying++
		sampleCount += len(w.points)
	}

	if qualifying == 0 {
		return
	}
	p.JitterAmplitude = stats.RMS(pooled)
	rate := float64(sampleCount) / float64(qualifying) / a.opts.JitterWindow.Seconds()
	p.JitterFrequency = rate / 2
}

// extractClickTiming derives click hold durations and double-click intervals
// from the raw button stream.
func (a *Analyzer) extractClickTiming(p *schemas.PointerProfile, events []schemas.InputEvent) {
	var holds, doubles []float64
	lastDown := map[schemas.MouseButton]time.Duration{}
	pendingDown := map[schemas.MouseButton]time.Duration{}
	havePending := map[schemas.MouseButton]bool{}
	haveLast := map[schemas.MouseButton]bool{}

	for _, ev := range events {
		switch ev.Kind {
		case schemas.EventButtonDown:
			if haveLast[ev.Button] {
				if gap := ev.Timestamp - lastDown[ev.Button]; gap < a.opts.DoubleClickMax {
					doubles = append(doubles, float64(gap)/float64(time.Millisecond))
				}
			}
			lastDown[ev.Button] = ev.Timestamp
			haveLast[ev.Button] = true
			pendingDown[ev.Button] = ev.Timestamp
			havePending[ev.Button] = true
		case schemas.EventButtonUp:
			if havePending[ev.Button] {
				holds = append(holds, float64(ev.Timestamp-pendingDown[ev.Button])/float64(time.Millisecond))
				havePending[ev.Button] = false
			}
		}
	}

	if len(holds) > 0 {
		p.ClickHoldMean, p.ClickHoldStdDev = stats.MeanStdDev(holds)
	}
	if len(doubles) > 0 {
		p.DoubleClickMean, p.DoubleClickStdDev = stats.MeanStdDev(doubles)
	}
}

// pathLength sums consecutive-sample distances across a segment.
func pathLength(seg segment.MovementSegment) float64 {
	total := 0.0
	for i := 1; i < len(seg.Samples); i++ {
		a := geom.Vec{X: seg.Samples[i-1].X, Y: seg.Samples[i-1].Y}
		b := geom.Vec{X: seg.Samples[i].X, Y: seg.Samples[i].Y}
		total += a.Dist(b)
	}
	return total
}

// maxOvershoot returns the farthest any intermediate sample traveled past the
// end point, measured along the start-to-end axis. Zero means no sample
// passed the target.
func maxOvershoot(seg segment.MovementSegment) float64 {
	dir := seg.End.Sub(seg.Start).Normalize()
	max := 0.0
	for i := 1; i < len(seg.Samples)-1; i++ {
		pt := geom.Vec{X: seg.Samples[i].X, Y: seg.Samples[i].Y}
		excess := pt.Sub(seg.Start).Dot(dir) - seg.Distance
		if excess > max {
			max = excess
		}
	}
	return max
}

// segmentEnvelope resamples a segment's per-step speed onto the canonical
// bin count, normalized to the segment's own peak. nil when no step has a
// positive time delta.
func segmentEnvelope(seg segment.MovementSegment) []float64 {
	var speeds []float64
	for i := 1; i < len(seg.Samples); i++ {
		dt := (seg.Samples[i].Timestamp - seg.Samples[i-1].Timestamp).Seconds()
		if dt <= 0 {
			continue
		}
		a := geom.Vec{X: seg.Samples[i-1].X, Y: seg.Samples[i-1].Y}
		b := geom.Vec{X: seg.Samples[i].X, Y: seg.Samples[i].Y}
		speeds = append(speeds, a.Dist(b)/dt)
	}
	if len(speeds) == 0 {
		return nil
	}
	return stats.NormalizePeak(stats.Resample(speeds, schemas.EnvelopeBins))
}
