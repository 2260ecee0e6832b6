package hermes

import "github.com/MikeSquared-Agency/Concierge/internal/models"

// RecommendRequestEvent asks for a recommendation. Exactly one of Query and
// Text should be set; Text is parsed as free text.
type RecommendRequestEvent struct {
	RequestID string        `json:"request_id,omitempty"`
	Query     *models.Query `json:"query,omitempty"`
	Text      string        `json:"text,omitempty"`
}

type QueryCompletedEvent struct {
	QueryID   string                `json:"query_id"`
	RequestID string                `json:"request_id,omitempty"`
	Query     models.Query          `json:"query"`
	Results   []models.RankedResult `json:"results"`
	Events    int                   `json:"trace_events"`
}

type QueryFailedEvent struct {
	QueryID   string `json:"query_id"`
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
	Reason    string `json:"reason"` // "invalid", "unavailable", "canceled", "error"
	Retryable bool   `json:"retryable"`
}
