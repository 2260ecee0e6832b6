package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/MikeSquared-Agency/Concierge/internal/hermes"
	"github.com/MikeSquared-Agency/Concierge/internal/models"
	"github.com/MikeSquared-Agency/Concierge/internal/parse"
)

// SetupSubscriptions answers recommendation requests from the message bus.
// Outcomes are published on the query's completed or failed subject.
func (a *Agent) SetupSubscriptions() error {
	if a.hermes == nil {
		return nil
	}
	return a.hermes.Subscribe(hermes.SubjectRecommendRequest, a.handleRecommendRequest)
}

func (a *Agent) handleRecommendRequest(_ string, data []byte) {
	var req hermes.RecommendRequestEvent
	if err := json.Unmarshal(data, &req); err != nil {
		a.logger.Error("failed to unmarshal recommend request", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.requestTimeout)
	var ev *Evaluation
	switch {
	case strings.TrimSpace(req.Text) != "":
		parsed := parse.Parse(req.Text)
		ev = a.begin(ctx, parsed.Query, parsed.Notes, true, req.RequestID)
	case req.Query != nil:
		ev = a.begin(ctx, req.Query.Clone(), nil, false, req.RequestID)
	default:
		// fails validation and is reported on the failed subject
		ev = a.begin(ctx, models.Query{}, nil, false, req.RequestID)
	}
	a.logger.Info("recommend request received", "query_id", ev.QueryID(), "request_id", req.RequestID)

	go func() {
		defer cancel()
		<-ev.Done()
	}()
}

// forwardTrace publishes each trace event as it is recorded. It returns
// when the recorder is closed.
func (a *Agent) forwardTrace(ev *Evaluation, done chan<- struct{}) {
	defer close(done)
	subject := hermes.SubjectQueryTrace(ev.id)
	failed := false
	for e := range ev.rec.Stream(context.Background()) {
		if err := a.hermes.Publish(subject, e); err != nil && !failed {
			// one warning per query is enough
			failed = true
			a.logger.Warn("failed to publish trace event", "query_id", ev.id, "error", err)
		}
	}
}

func (a *Agent) publishOutcome(ev *Evaluation, rec *Recommendation, err error) {
	if a.hermes == nil {
		return
	}
	if err != nil {
		reason, retryable := Classify(err)
		if pubErr := a.hermes.Publish(hermes.SubjectQueryFailed(ev.id), hermes.QueryFailedEvent{
			QueryID:   ev.id,
			RequestID: ev.requestID,
			Error:     err.Error(),
			Reason:    reason,
			Retryable: retryable,
		}); pubErr != nil {
			a.logger.Warn("failed to publish query failure", "query_id", ev.id, "error", pubErr)
		}
		return
	}
	if pubErr := a.hermes.Publish(hermes.SubjectQueryCompleted(ev.id), hermes.QueryCompletedEvent{
		QueryID:   ev.id,
		RequestID: ev.requestID,
		Query:     rec.Query,
		Results:   rec.Results,
		Events:    len(rec.Trace),
	}); pubErr != nil {
		a.logger.Warn("failed to publish query completion", "query_id", ev.id, "error", pubErr)
	}
}
