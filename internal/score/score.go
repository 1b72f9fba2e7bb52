// Package score computes the heuristic confidence score and the rule-based
// structural validation report for a generated prompt. The two numbers are
// independent: confidence estimates how well-informed the pipeline was,
// validation checks the text itself.
package score

import (
	"promptforge/internal/config"
	"promptforge/internal/logging"
	"promptforge/internal/types"
)

// retrievalSaturation is the result count at which the retrieval count
// sub-signal reaches 1.0. More results than this add nothing.
const retrievalSaturation = 4

// Scorer weights the confidence sub-signals. Weights are a tunable constant
// table loaded from config; they sum to 1.0.
type Scorer struct {
	completenessWeight float64
	retrievalWeight    float64
	enhancementWeight  float64
}

// NewScorer builds a scorer from config, falling back to the default weight
// table when the config carries zeroes.
func NewScorer(cfg config.ScoringConfig) *Scorer {
	if cfg.CompletenessWeight <= 0 && cfg.RetrievalWeight <= 0 && cfg.EnhancementWeight <= 0 {
		cfg = config.DefaultConfig().Scoring
	}
	return &Scorer{
		completenessWeight: cfg.CompletenessWeight,
		retrievalWeight:    cfg.RetrievalWeight,
		enhancementWeight:  cfg.EnhancementWeight,
	}
}

// Confidence combines context completeness, retrieval quality, and
// enhancement success into a single [0,1] estimate. Each sub-signal is
// normalized to [0,1] before weighting.
func (s *Scorer) Confidence(task types.TaskContext, stats types.RetrievalStats, enhancement types.EnhancementOutcome) float64 {
	completeness := completenessSignal(task)
	retrieval := retrievalSignal(stats)
	enhanced := enhancementSignal(enhancement)

	confidence := types.ClampUnit(
		completeness*s.completenessWeight +
			retrieval*s.retrievalWeight +
			enhanced*s.enhancementWeight)

	logging.ScoreDebug("Confidence=%.3f (completeness=%.2f retrieval=%.2f enhancement=%.2f)",
		confidence, completeness, retrieval, enhanced)
	return confidence
}

// completenessSignal is the fraction of derived context lists that are
// non-empty.
func completenessSignal(task types.TaskContext) float64 {
	filled := 0
	for _, list := range [][]string{task.TechnicalRequirements, task.UIRequirements, task.Constraints} {
		if len(list) > 0 {
			filled++
		}
	}
	return float64(filled) / 3.0
}

// retrievalSignal blends how many results arrived with how similar they were.
// A degraded retrieval (store failure, timeout, or no-query fallback) halves
// the signal.
func retrievalSignal(stats types.RetrievalStats) float64 {
	total := stats.DocumentCount + stats.TemplateCount
	if total == 0 {
		return 0
	}

	countSignal := float64(total) / retrievalSaturation
	if countSignal > 1 {
		countSignal = 1
	}
	signal := 0.5*countSignal + 0.5*types.ClampUnit(stats.AvgSimilarity)
	if stats.Degraded {
		signal *= 0.5
	}
	return types.ClampUnit(signal)
}

func enhancementSignal(enhancement types.EnhancementOutcome) float64 {
	if !enhancement.Applied {
		return 0
	}
	return types.ClampUnit(enhancement.Confidence)
}
