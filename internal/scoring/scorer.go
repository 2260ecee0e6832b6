package scoring

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/MikeSquared-Agency/Concierge/internal/models"
)

// ScoringResult captures the scoring output for a single candidate.
// When Err is set, Criteria holds the scores computed before the failure
// and Failed names the criterion that failed.
type ScoringResult struct {
	CandidateID string                  `json:"candidate_id"`
	TotalScore  float64                 `json:"total_score"`
	Criteria    []models.CriterionScore `json:"criteria"`
	Failed      string                  `json:"failed,omitempty"`
	Err         error                   `json:"-"`
}

// Scorer runs every registered criterion against a candidate and combines
// the results with a weighted sum.
type Scorer struct {
	registry *Registry
	logger   *slog.Logger
}

// NewScorer creates a Scorer over the given registry.
func NewScorer(registry *Registry, logger *slog.Logger) *Scorer {
	return &Scorer{registry: registry, logger: logger}
}

// Registry returns the scorer's criteria registry.
func (s *Scorer) Registry() *Registry {
	return s.registry
}

// ScoreCandidate computes every criterion for one candidate and the
// weighted aggregate. Evaluation stops at the first failing criterion.
func (s *Scorer) ScoreCandidate(q *models.Query, c *models.Candidate, weights WeightSet) ScoringResult {
	result := ScoringResult{CandidateID: c.ID}

	var total float64
	for _, crit := range s.registry.Criteria() {
		name := crit.Name()
		r, err := safeScore(crit, q, c)
		if err != nil {
			s.logger.Debug("criterion failed", "candidate", c.ID, "criterion", name, "error", err)
			result.Failed = name
			result.Err = err
			return result
		}
		value := clamp(r.Value, 0, 1)
		weight := weights.Weight(name)
		cs := models.CriterionScore{
			Criterion: name,
			Value:     value,
			Raw:       r.Raw,
			Weight:    weight,
			Weighted:  value * weight,
			Neutral:   r.Neutral,
		}
		result.Criteria = append(result.Criteria, cs)
		total += cs.Weighted
	}

	result.TotalScore = Round(total)
	return result
}

// safeScore turns a panicking criterion into an evaluation failure so one
// bad record or plugin cannot take down the whole query.
func safeScore(crit Criterion, q *models.Query, c *models.Candidate) (r Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: panic: %v", models.ErrCriterionEvaluation, crit.Name(), p)
		}
	}()
	r, err = crit.Score(q, c)
	if err != nil && !errors.Is(err, models.ErrCriterionEvaluation) {
		err = fmt.Errorf("%w: %s: %v", models.ErrCriterionEvaluation, crit.Name(), err)
	}
	if err == nil && (math.IsNaN(r.Value) || math.IsInf(r.Value, 0)) {
		err = fmt.Errorf("%w: %s: non-finite score", models.ErrCriterionEvaluation, crit.Name())
	}
	return r, err
}

// Round fixes aggregate scores to six decimal places so that candidates
// with equal inputs compare equal.
func Round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
