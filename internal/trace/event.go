package trace

import "time"

// Kind names one type of decision step.
type Kind string

const (
	KindStage        Kind = "stage"
	KindQueryParsed  Kind = "query.parsed"
	KindAccepted     Kind = "query.accepted"
	KindRetrieved    Kind = "retrieval.completed"
	KindEmpty        Kind = "retrieval.empty"
	KindFiltered     Kind = "candidate.filtered"
	KindAdmitted     Kind = "candidate.admitted"
	KindScored       Kind = "criterion.scored"
	KindScoreFailed  Kind = "criterion.failed"
	KindAggregated   Kind = "candidate.aggregated"
	KindTieBreak     Kind = "ranking.tiebreak"
	KindRanked       Kind = "ranking.completed"
)

// Event is one recorded decision step. Seq and At are assigned by the
// Recorder; callers fill in the rest.
type Event struct {
	Seq         int       `json:"seq"`
	QueryID     string    `json:"query_id"`
	Kind        Kind      `json:"kind"`
	CandidateID string    `json:"candidate_id,omitempty"`
	Criterion   string    `json:"criterion,omitempty"`
	Value       *float64  `json:"value,omitempty"`
	Raw         string    `json:"raw,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Count       *int      `json:"count,omitempty"`
	Order       []string  `json:"order,omitempty"`
	At          time.Time `json:"at"`
}

// Trace is the complete, ordered event sequence for one evaluation.
type Trace []Event

// Filter returns the events of the given kind, in order.
func (t Trace) Filter(kind Kind) []Event {
	var out []Event
	for _, e := range t {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ForCandidate returns the events about one candidate, in order.
func (t Trace) ForCandidate(id string) []Event {
	var out []Event
	for _, e := range t {
		if e.CandidateID == id {
			out = append(out, e)
		}
	}
	return out
}

// Value and Count build the optional numeric fields.
func Value(v float64) *float64 { return &v }

func Count(n int) *int { return &n }
