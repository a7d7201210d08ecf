package analysis

import (
	"sort"

	"github.com/poiesic/logsage/core"
)

const (
	// evidenceSlots is how many strong hits saturate the evidence term.
	evidenceSlots = 3

	evidenceWeight = 0.65
	modelWeight    = 0.35

	highThreshold   = 0.70
	mediumThreshold = 0.40
)

// scoreConfidence blends evidence strength with the model's own certainty.
//
// Evidence strength is the sum of the top three normalized scores at or
// above minScore, divided by three. It never decreases when a score rises
// or a hit is added. The model term maps low/medium/high to 0/0.5/1 and
// treats a missing value as medium. A model that says low caps the result
// at low. No evidence, or only weak evidence, is always low.
func scoreConfidence(scores []float32, minScore float32, reported core.Confidence, hasReported bool) core.Confidence {
	strong := make([]float64, 0, len(scores))
	for _, s := range scores {
		if s >= minScore {
			strong = append(strong, normalizeScore(s, minScore))
		}
	}
	if len(strong) == 0 {
		return core.ConfidenceLow
	}
	if hasReported && reported == core.ConfidenceLow {
		return core.ConfidenceLow
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(strong)))
	if len(strong) > evidenceSlots {
		strong = strong[:evidenceSlots]
	}
	var sum float64
	for _, s := range strong {
		sum += s
	}
	evidence := sum / evidenceSlots

	model := 0.5
	if hasReported {
		model = float64(reported) / float64(core.ConfidenceHigh)
	}

	blend := evidenceWeight*evidence + modelWeight*model
	switch {
	case blend >= highThreshold:
		return core.ConfidenceHigh
	case blend >= mediumThreshold:
		return core.ConfidenceMedium
	default:
		return core.ConfidenceLow
	}
}

// normalizeScore maps [minScore, 1] onto [0, 1].
func normalizeScore(s, minScore float32) float64 {
	if s >= 1 {
		return 1
	}
	span := 1 - float64(minScore)
	if span <= 0 {
		return 1
	}
	return (float64(s) - float64(minScore)) / span
}
