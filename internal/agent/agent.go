// Package agent is the entry point for recommendation queries. It validates
// input, assigns query ids, runs the engine and exposes the decision trace
// while it is produced.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Concierge/internal/engine"
	"github.com/MikeSquared-Agency/Concierge/internal/hermes"
	"github.com/MikeSquared-Agency/Concierge/internal/metrics"
	"github.com/MikeSquared-Agency/Concierge/internal/models"
	"github.com/MikeSquared-Agency/Concierge/internal/parse"
	"github.com/MikeSquared-Agency/Concierge/internal/scoring"
	"github.com/MikeSquared-Agency/Concierge/internal/trace"
)

const defaultRequestTimeout = 30 * time.Second

// Recommendation is the outcome of one query.
type Recommendation struct {
	QueryID string                `json:"query_id"`
	Query   models.Query          `json:"query"`
	Parsed  []parse.Note          `json:"parsed,omitempty"`
	Results []models.RankedResult `json:"results"`
	Trace   trace.Trace           `json:"trace"`
}

// CriterionInfo describes a registered criterion.
type CriterionInfo struct {
	Name          string  `json:"name"`
	DefaultWeight float64 `json:"default_weight"`
}

// Agent holds no per-query state; every call gets its own Evaluation.
type Agent struct {
	engine         *engine.Engine
	hermes         hermes.Client
	logger         *slog.Logger
	newID          func() string
	requestTimeout time.Duration
}

type Option func(*Agent)

// WithHermes forwards trace events and outcomes to the message bus.
func WithHermes(h hermes.Client) Option {
	return func(a *Agent) { a.hermes = h }
}

// WithRequestTimeout bounds queries received from the message bus.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.requestTimeout = d
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(a *Agent) { a.newID = fn }
}

func New(e *engine.Engine, logger *slog.Logger, opts ...Option) *Agent {
	a := &Agent{
		engine:         e,
		logger:         logger,
		newID:          uuid.NewString,
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Criteria lists the registered criteria in evaluation order.
func (a *Agent) Criteria() []CriterionInfo {
	reg := a.engine.Scorer().Registry()
	weights := reg.DefaultWeights()
	names := reg.Names()
	out := make([]CriterionInfo, len(names))
	for i, n := range names {
		out[i] = CriterionInfo{Name: n, DefaultWeight: weights.Weight(n)}
	}
	return out
}

// Recommend runs q to completion.
func (a *Agent) Recommend(ctx context.Context, q models.Query) (*Recommendation, error) {
	return a.Begin(ctx, q).Wait()
}

// RecommendText parses text into a query and runs it.
func (a *Agent) RecommendText(ctx context.Context, text string) (*Recommendation, error) {
	return a.BeginText(ctx, text).Wait()
}

// Begin starts evaluating q in the background.
func (a *Agent) Begin(ctx context.Context, q models.Query) *Evaluation {
	return a.begin(ctx, q.Clone(), nil, false, "")
}

// BeginText parses text and starts evaluating the result in the background.
// The parse notes are the first events of the trace.
func (a *Agent) BeginText(ctx context.Context, text string) *Evaluation {
	parsed := parse.Parse(text)
	return a.begin(ctx, parsed.Query, parsed.Notes, true, "")
}

func (a *Agent) begin(ctx context.Context, q models.Query, notes []parse.Note, fromText bool, requestID string) *Evaluation {
	ev := &Evaluation{
		id:        a.newID(),
		requestID: requestID,
		done:      make(chan struct{}),
	}
	ev.rec = trace.NewRecorder(ev.id)

	var forwarded chan struct{}
	if a.hermes != nil {
		forwarded = make(chan struct{})
		go a.forwardTrace(ev, forwarded)
	}

	go func() {
		defer close(ev.done)
		start := time.Now()
		rec, err := a.run(ctx, ev.rec, q, notes, fromText)
		ev.rec.Close()
		if forwarded != nil {
			<-forwarded
		}
		ev.result, ev.err = rec, err

		outcome, _ := Classify(err)
		metrics.RecommendationsTotal.WithLabelValues(outcome).Inc()
		metrics.RecommendationDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			a.logger.Warn("recommendation failed", "query_id", ev.id, "reason", outcome, "error", err)
		} else {
			a.logger.Info("recommendation complete", "query_id", ev.id, "results", len(rec.Results),
				"events", len(rec.Trace), "duration_ms", time.Since(start).Milliseconds())
		}
		a.publishOutcome(ev, rec, err)
	}()
	return ev
}

func (a *Agent) run(ctx context.Context, rec *trace.Recorder, q models.Query, notes []parse.Note, fromText bool) (*Recommendation, error) {
	if fromText {
		rec.Record(trace.Event{Kind: trace.KindStage, Reason: engine.StageParsing})
		for _, n := range notes {
			rec.Record(trace.Event{Kind: trace.KindQueryParsed, Criterion: n.Field, Raw: n.Match, Reason: n.String()})
		}
	}

	q.Normalize()
	if err := models.ValidateQuery(&q); err != nil {
		return nil, err
	}
	weights, err := a.engine.Scorer().Registry().Resolve(q.CriterionWeights)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidQuery, err)
	}
	rec.Record(trace.Event{Kind: trace.KindAccepted, Reason: Describe(&q)})

	results, err := a.engine.Evaluate(ctx, q, weights, rec)
	if err != nil {
		return nil, err
	}
	rec.Record(trace.Event{Kind: trace.KindStage, Reason: engine.StageComplete, Count: trace.Count(len(results))})

	out := &Recommendation{
		QueryID: rec.QueryID(),
		Query:   q,
		Parsed:  notes,
		Results: results,
		Trace:   rec.Trace(),
	}
	return out, nil
}

// Describe summarises the constraints of q for logs and traces.
func Describe(q *models.Query) string {
	var parts []string
	add := func(k, v string) { parts = append(parts, k+"="+v) }
	if q.Locality != "" {
		add("locality", q.Locality)
	}
	if q.Cuisine != "" {
		add("cuisine", q.Cuisine)
	}
	if q.PriceCeiling != nil {
		add("price_ceiling", fmt.Sprint(*q.PriceCeiling))
	}
	if q.MinRating != nil {
		add("min_rating", fmt.Sprint(*q.MinRating))
	}
	if q.Budget != nil {
		add("budget", fmt.Sprintf("%.2f", *q.Budget))
	}
	if q.PartySize > 0 {
		add("party_size", fmt.Sprint(q.PartySize))
	}
	if q.Day != "" {
		add("day", q.Day)
	}
	if q.Time != "" {
		add("time", q.Time)
	}
	if q.WantsWindow() {
		add("window", strings.Join(append([]string{"yes"}, q.Views...), ","))
	}
	if q.Limit > 0 {
		add("limit", fmt.Sprint(q.Limit))
	}
	if len(q.CriterionWeights) > 0 {
		add("weights", scoring.WeightSet(q.CriterionWeights).String())
	}
	return strings.Join(parts, " ")
}

// Classify maps an evaluation error to an outcome label and whether the
// caller may retry.
func Classify(err error) (string, bool) {
	switch {
	case err == nil:
		return "ok", false
	case errors.Is(err, models.ErrInvalidQuery):
		return "invalid", false
	case errors.Is(err, models.ErrRepositoryUnavailable):
		return "unavailable", true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled", true
	default:
		return "error", false
	}
}
