package strategy

import (
	"github.com/michaelpento.lv/arbbot/types"
)

// Scorer rates the reliability of a discovered opportunity. Scores are
// heuristic rankings in (0, 1], not probabilities.
type Scorer interface {
	Score(path types.Path, profitRate float64) float64
}

// HeuristicScorer is the default policy: longer paths score lower, and
// profit rates past the suspicion thresholds are penalized since they
// usually mean stale or bad price data rather than free money.
type HeuristicScorer struct {
	HopPenalty      float64
	SuspiciousRate  float64
	ImplausibleRate float64
}

// NewHeuristicScorer returns the default scoring policy.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{
		HopPenalty:      0.05,
		SuspiciousRate:  0.05,
		ImplausibleRate: 0.10,
	}
}

// Score implements Scorer.
func (s *HeuristicScorer) Score(path types.Path, profitRate float64) float64 {
	score := 1.0 - s.HopPenalty*float64(path.Hops()-2)

	switch {
	case profitRate > s.ImplausibleRate:
		score *= 0.5
	case profitRate > s.SuspiciousRate:
		score *= 0.75
	}

	if score < 0.05 {
		score = 0.05
	}
	if score > 1 {
		score = 1
	}
	return score
}
