package schemas

import "time"

// ProfileSchemaVersion is the current serialized profile schema. The profile
// store rejects any other version rather than guessing at field meanings.
const ProfileSchemaVersion = 1

// EnvelopeBins is the number of bins in the normalized velocity envelope.
const EnvelopeBins = 10

// Profile is the portable, versioned aggregate of one operator's pointer and
// keyboard behavior. It is a standalone value: no back-reference to the
// sessions it was derived from. Profiles are immutable; re-analysis produces
// a new Profile rather than mutating one in place.
//
// Every numeric field is always a finite number. Statistics with too few
// samples resolve to the documented defaults in DefaultPointerProfile and
// DefaultKeyboardProfile, never to an absent or NaN field, so replay code
// never has to branch on "missing".
type Profile struct {
	SchemaVersion int             `json:"schema_version"`
	CreatedAt     time.Time       `json:"created_at"`
	TaskLabel     string          `json:"task_label,omitempty"`
	Pointer       PointerProfile  `json:"pointer"`
	Keyboard      KeyboardProfile `json:"keyboard"`
}

// PointerProfile summarizes pointer motion statistics.
type PointerProfile struct {
	// Timing-law regression of movement duration (ms) on the index of
	// difficulty log2(distance/width + 1). FittsR2 is the coefficient of
	// determination of the fit, in [0,1].
	FittsA  float64 `json:"fitts_a"`
	FittsB  float64 `json:"fitts_b"`
	FittsR2 float64 `json:"fitts_r2"`

	VelocityMean   float64 `json:"velocity_mean"`    // px/s
	VelocityStdDev float64 `json:"velocity_stddev"`  // px/s
	CurvatureMean  float64 `json:"curvature_mean"`   // path length / straight distance
	CurvatureStdDev float64 `json:"curvature_stddev"`

	OvershootRate         float64 `json:"overshoot_rate"` // fraction of segments
	OvershootMeanDistance float64 `json:"overshoot_mean_distance"` // px

	JitterAmplitude float64 `json:"jitter_amplitude"` // px RMS during stationary windows
	JitterFrequency float64 `json:"jitter_frequency"` // Hz, approximate

	ClickHoldMean     float64 `json:"click_hold_mean"`      // ms
	ClickHoldStdDev   float64 `json:"click_hold_stddev"`    // ms
	DoubleClickMean   float64 `json:"double_click_mean"`    // ms
	DoubleClickStdDev float64 `json:"double_click_stddev"`  // ms

	// VelocityEnvelope is the canonical acceleration curve: per-segment step
	// speed resampled to EnvelopeBins bins, normalized to each segment's own
	// peak, then averaged across segments.
	VelocityEnvelope [EnvelopeBins]float64 `json:"velocity_envelope"`

	// SegmentCount is the number of movement segments the statistics were
	// derived from. Zero means every pointer field is a default.
	SegmentCount int `json:"segment_count"`
}

// KeyboardProfile summarizes typing statistics.
type KeyboardProfile struct {
	WPMMean   float64 `json:"wpm_mean"`
	WPMStdDev float64 `json:"wpm_stddev"`

	InterKeyMean   float64 `json:"inter_key_mean"`   // ms
	InterKeyStdDev float64 `json:"inter_key_stddev"` // ms
	HoldMean       float64 `json:"hold_mean"`        // ms
	HoldStdDev     float64 `json:"hold_stddev"`      // ms

	// Digraphs maps an ordered character pair ("th") to its mean key-down to
	// key-down gap in ms. The table is capped by the analyzer; high-frequency
	// pairs win.
	Digraphs map[string]float64 `json:"digraphs"`

	CorrectionRate        float64 `json:"correction_rate"`         // corrective events per 100 keys
	CorrectionLatencyMean float64 `json:"correction_latency_mean"` // ms, error to correction

	WordPauseMean     float64 `json:"word_pause_mean"`     // ms
	SentencePauseMean float64 `json:"sentence_pause_mean"` // ms

	// KeyCount is the number of key-down events the statistics were derived
	// from. Zero means every keyboard field is a default.
	KeyCount int `json:"key_count"`
}

// Documented defaults used whenever a statistic has zero qualifying samples.
// The pointer timing-law defaults (a=50, b=150, r2=0) are fixed by contract;
// the rest are population-plausible values for an average adult operator and
// are deliberately unremarkable.
const (
	DefaultFittsA  = 50.0
	DefaultFittsB  = 150.0
	DefaultFittsR2 = 0.0
)

// DefaultPointerProfile returns the pointer statistics used when a session
// contains no qualifying movement segments.
func DefaultPointerProfile() PointerProfile {
	return PointerProfile{
		FittsA:                DefaultFittsA,
		FittsB:                DefaultFittsB,
		FittsR2:               DefaultFittsR2,
		VelocityMean:          650,
		VelocityStdDev:        180,
		CurvatureMean:         1.12,
		CurvatureStdDev:       0.08,
		OvershootRate:         0.08,
		OvershootMeanDistance: 12,
		JitterAmplitude:       1.2,
		JitterFrequency:       8,
		ClickHoldMean:         85,
		ClickHoldStdDev:       25,
		DoubleClickMean:       180,
		DoubleClickStdDev:     40,
		VelocityEnvelope: [EnvelopeBins]float64{
			0.15, 0.45, 0.75, 0.95, 1.0, 0.95, 0.80, 0.60, 0.35, 0.15,
		},
	}
}

// DefaultKeyboardProfile returns the keyboard statistics used when a session
// contains no keystroke runs.
func DefaultKeyboardProfile() KeyboardProfile {
	return KeyboardProfile{
		WPMMean:               42,
		WPMStdDev:             8,
		InterKeyMean:          185,
		InterKeyStdDev:        60,
		HoldMean:              95,
		HoldStdDev:            30,
		Digraphs:              map[string]float64{},
		CorrectionRate:        3.5,
		CorrectionLatencyMean: 320,
		WordPauseMean:         280,
		SentencePauseMean:     600,
	}
}
