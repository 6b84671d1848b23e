package analyzer

import (
	"sort"
	"time"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/segment"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/stats"
)

// analyzeKeyboard reduces keystroke runs into the keyboard half of a
// Profile.
func (a *Analyzer) analyzeKeyboard(runs []segment.KeystrokeRun) schemas.KeyboardProfile {
	k := schemas.DefaultKeyboardProfile()

	var interKey, holds, wpms []float64
	var latencies []float64
	var wordPauses, sentencePauses []float64
	digraphSum := map[string]float64{}
	digraphCount := map[string]int{}
	totalKeys := 0
	totalCorrections := 0

	for _, run := range runs {
		keys := run.KeyDownCount()
		totalKeys += keys
		totalCorrections += run.Corrections

		for _, gap := range run.InterKey {
			interKey = append(interKey, toMillis(gap))
		}
		for _, hold := range run.Holds {
			holds = append(holds, toMillis(hold))
		}
		for _, d := range run.Digraphs {
			key := d.First + d.Second
			digraphSum[key] += toMillis(d.Gap)
			digraphCount[key]++
		}
		for _, lat := range run.CorrectionLatencies {
			latencies = append(latencies, toMillis(lat))
		}

		if span := run.Span(); span > 0 && keys >= 2 {
			// Standard five-characters-per-word convention.
			wpms = append(wpms, float64(keys)/5.0/span.Minutes())
		}

		collectStructuralPauses(run, &wordPauses, &sentencePauses)
	}

	k.KeyCount = totalKeys
	if len(interKey) > 0 {
		k.InterKeyMean, k.InterKeyStdDev = stats.MeanStdDev(interKey)
	}
	if len(holds) > 0 {
		k.HoldMean, k.HoldStdDev = stats.MeanStdDev(holds)
	}
	if len(wpms) > 0 {
		k.WPMMean, k.WPMStdDev = stats.MeanStdDev(wpms)
	}
	if totalKeys > 0 {
		k.CorrectionRate = float64(totalCorrections) / float64(totalKeys) * 100
	}
	if len(latencies) > 0 {
		k.CorrectionLatencyMean = stats.Mean(latencies)
	}
	if len(wordPauses) > 0 {
		k.WordPauseMean = stats.Mean(wordPauses)
	}
	if len(sentencePauses) > 0 {
		k.SentencePauseMean = stats.Mean(sentencePauses)
	}
	if len(digraphSum) > 0 {
		k.Digraphs = capDigraphs(digraphSum, digraphCount, a.opts.DigraphCap)
	}
	return k
}

// collectStructuralPauses records the gap following a word boundary (space)
// or a sentence terminator as the corresponding pause sample.
func collectStructuralPauses(run segment.KeystrokeRun, words, sentences *[]float64) {
	var prevKey string
	var prevTS time.Duration
	havePrev := false
	for _, ev := range run.Events {
		if ev.Kind != schemas.EventKeyDown {
			continue
		}
		if havePrev {
			gap := toMillis(ev.Timestamp - prevTS)
			switch prevKey {
			case " ", "space", "Space":
				*words = append(*words, gap)
			case ".", "!", "?":
				*sentences = append(*sentences, gap)
			}
		}
		prevKey, prevTS, havePrev = ev.Key, ev.Timestamp, true
	}
}

// capDigraphs averages the per-pair gap sums and keeps at most limit entries,
// preferring the highest sample counts. Ties break on the pair key so the
// table is deterministic.
func capDigraphs(sums map[string]float64, counts map[string]int, limit int) map[string]float64 {
	keys := make([]string, 0, len(sums))
	for key := range sums {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}

	out := make(map[string]float64, len(keys))
	for _, key := range keys {
		out[key] = sums[key] / float64(counts[key])
	}
	return out
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
