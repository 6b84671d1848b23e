package replay

import (
	"time"

	"github.com/aquilax/go-perlin"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
)

// jitterInjector perturbs replayed pointer positions with smooth Perlin
// drift at the profile's jitter amplitude and characteristic frequency, so a
// pass-through replay still carries the operator's micro-motion texture.
type jitterInjector struct {
	amplitude float64
	frequency float64
	noiseX    *perlin.Perlin
	noiseY    *perlin.Perlin
}

func newJitterInjector(p schemas.PointerProfile) *jitterInjector {
	const alpha, beta, octaves = 2.0, 2.0, int32(3)
	seed := time.Now().UnixNano()
	freq := p.JitterFrequency
	if freq <= 0 {
		freq = schemas.DefaultPointerProfile().JitterFrequency
	}
	return &jitterInjector{
		amplitude: p.JitterAmplitude,
		frequency: freq,
		noiseX:    perlin.NewPerlin(alpha, beta, octaves, seed),
		noiseY:    perlin.NewPerlin(alpha, beta, octaves, seed+1),
	}
}

// apply offsets a pointer_move by the noise field sampled at the replay
// clock. Click and key events pass through untouched elsewhere; only motion
// carries jitter.
func (j *jitterInjector) apply(ev schemas.InputEvent, elapsed time.Duration) schemas.InputEvent {
	t := elapsed.Seconds() * j.frequency
	ev.X += j.noiseX.Noise1D(t) * j.amplitude
	ev.Y += j.noiseY.Noise1D(t) * j.amplitude
	return ev
}
