package models

// CriterionScore is one evaluator's output for one candidate.
type CriterionScore struct {
	Criterion string  `json:"criterion"`
	Value     float64 `json:"value"`
	Raw       string  `json:"raw"`
	Weight    float64 `json:"weight"`
	Weighted  float64 `json:"weighted"`
	Neutral   bool    `json:"neutral"`
}

// RankedResult pairs a candidate with its aggregate score and the
// criterion scores that produced it.
type RankedResult struct {
	Rank      int              `json:"rank"`
	Candidate Candidate        `json:"candidate"`
	Score     float64          `json:"score"`
	Criteria  []CriterionScore `json:"criteria"`
}

// Less orders results by score descending, then candidate id ascending.
func Less(a, b *RankedResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Candidate.ID < b.Candidate.ID
}
