// Package engine runs one recommendation query: retrieval, hard filters,
// per-candidate scoring, aggregation and deterministic ordering. Every
// decision is recorded on a trace.Recorder.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/Concierge/internal/metrics"
	"github.com/MikeSquared-Agency/Concierge/internal/models"
	"github.com/MikeSquared-Agency/Concierge/internal/scoring"
	"github.com/MikeSquared-Agency/Concierge/internal/store"
	"github.com/MikeSquared-Agency/Concierge/internal/trace"
)

// Stage names recorded as trace.KindStage events.
const (
	StageParsing   = "parsing"
	StageRetrieval = "retrieval"
	StageFiltering = "filtering"
	StageRanking   = "ranking"
	StageComplete  = "complete"
)

const defaultConcurrency = 4

// Engine holds only immutable configuration and may serve any number of
// concurrent queries.
type Engine struct {
	repo        store.Repository
	scorer      *scoring.Scorer
	concurrency int
	logger      *slog.Logger
}

type Option func(*Engine)

// WithConcurrency bounds how many candidates are scored at once. One scores
// sequentially.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func New(repo store.Repository, scorer *scoring.Scorer, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		repo:        repo,
		scorer:      scorer,
		concurrency: defaultConcurrency,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Scorer() *scoring.Scorer {
	return e.scorer
}

// Evaluate ranks candidates for q using weights, or the registry defaults
// when weights is nil. Retrieval finding nothing is not an error: the
// result is empty and the trace says why. A canceled ctx returns ctx.Err().
func (e *Engine) Evaluate(ctx context.Context, q models.Query, weights scoring.WeightSet, rec *trace.Recorder) ([]models.RankedResult, error) {
	q = q.Clone()
	if weights == nil {
		weights = e.scorer.Registry().DefaultWeights()
	}

	candidates, err := e.retrieve(ctx, &q, rec)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []models.RankedResult{}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	admitted := e.filter(&q, candidates, rec)
	if len(admitted) == 0 {
		rec.Record(trace.Event{Kind: trace.KindRanked, Count: trace.Count(0), Reason: "no candidates passed the hard filters"})
		return []models.RankedResult{}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec.Record(trace.Event{Kind: trace.KindStage, Reason: StageRanking})
	scored, err := e.score(ctx, &q, admitted, weights, rec)
	if err != nil {
		return nil, err
	}

	ranked := aggregate(admitted, scored, rec)
	return rank(ranked, q.Limit, rec), nil
}

func (e *Engine) retrieve(ctx context.Context, q *models.Query, rec *trace.Recorder) ([]models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec.Record(trace.Event{Kind: trace.KindStage, Reason: StageRetrieval})

	filter := store.Filter{Locality: strings.TrimSpace(q.Locality), Cuisine: strings.TrimSpace(q.Cuisine)}
	candidates, err := e.repo.FetchCandidates(ctx, filter)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.Error("candidate retrieval failed", "locality", filter.Locality, "cuisine", filter.Cuisine, "error", err)
		if errors.Is(err, models.ErrRepositoryUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrRepositoryUnavailable, err)
	}
	candidates = models.CloneCandidates(candidates)
	metrics.CandidatesRetrieved.Observe(float64(len(candidates)))

	if len(candidates) == 0 {
		rec.Record(trace.Event{
			Kind:   trace.KindEmpty,
			Count:  trace.Count(0),
			Reason: fmt.Sprintf("no candidates for locality=%q cuisine=%q", filter.Locality, filter.Cuisine),
		})
		return nil, nil
	}
	rec.Record(trace.Event{Kind: trace.KindRetrieved, Count: trace.Count(len(candidates))})
	return candidates, nil
}

// filter keeps input order. Each dropped candidate gets exactly one event
// listing every filter it failed.
func (e *Engine) filter(q *models.Query, candidates []models.Candidate, rec *trace.Recorder) []models.Candidate {
	rec.Record(trace.Event{Kind: trace.KindStage, Reason: StageFiltering})

	admitted := make([]models.Candidate, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		failures := CheckHardFilters(q, c)
		if len(failures) > 0 {
			for _, f := range failures {
				metrics.CandidatesFiltered.WithLabelValues(f.Filter).Inc()
			}
			rec.Record(trace.Event{Kind: trace.KindFiltered, CandidateID: c.ID, Reason: joinFailures(failures)})
			continue
		}
		rec.Record(trace.Event{Kind: trace.KindAdmitted, CandidateID: c.ID})
		admitted = append(admitted, *c)
	}
	e.logger.Debug("hard filters applied", "retrieved", len(candidates), "admitted", len(admitted))
	return admitted
}

// score evaluates candidates in parallel. Events for one candidate are
// recorded in criterion order; events of different candidates may
// interleave.
func (e *Engine) score(ctx context.Context, q *models.Query, candidates []models.Candidate, weights scoring.WeightSet, rec *trace.Recorder) ([]scoring.ScoringResult, error) {
	results := make([]scoring.ScoringResult, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c := &candidates[i]
			res := e.scorer.ScoreCandidate(q, c, weights)
			for _, cs := range res.Criteria {
				rec.Record(trace.Event{
					Kind:        trace.KindScored,
					CandidateID: c.ID,
					Criterion:   cs.Criterion,
					Value:       trace.Value(cs.Value),
					Raw:         cs.Raw,
				})
			}
			if res.Err != nil {
				metrics.CriterionFailures.WithLabelValues(res.Failed).Inc()
				e.logger.Warn("candidate excluded after criterion failure", "candidate", c.ID, "criterion", res.Failed, "error", res.Err)
				rec.Record(trace.Event{
					Kind:        trace.KindScoreFailed,
					CandidateID: c.ID,
					Criterion:   res.Failed,
					Reason:      res.Err.Error(),
				})
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// aggregate records one event per successfully scored candidate, in
// admission order.
func aggregate(candidates []models.Candidate, scored []scoring.ScoringResult, rec *trace.Recorder) []models.RankedResult {
	ranked := make([]models.RankedResult, 0, len(candidates))
	for i, res := range scored {
		if res.Err != nil {
			continue
		}
		rec.Record(trace.Event{
			Kind:        trace.KindAggregated,
			CandidateID: candidates[i].ID,
			Value:       trace.Value(res.TotalScore),
			Raw:         breakdown(res.Criteria),
		})
		ranked = append(ranked, models.RankedResult{
			Candidate: candidates[i],
			Score:     res.TotalScore,
			Criteria:  res.Criteria,
		})
	}
	return ranked
}

// breakdown renders the weighted sum, e.g. "rating 0.30×0.90 + price_fit 0.20×0.50".
func breakdown(criteria []models.CriterionScore) string {
	parts := make([]string, len(criteria))
	for i, cs := range criteria {
		parts[i] = fmt.Sprintf("%s %.2f×%.3f", cs.Criterion, cs.Weight, cs.Value)
	}
	return strings.Join(parts, " + ")
}

// rank sorts by score descending then id ascending, records tie-breaks and
// the final order, and applies limit.
func rank(ranked []models.RankedResult, limit int, rec *trace.Recorder) []models.RankedResult {
	sort.SliceStable(ranked, func(i, j int) bool { return models.Less(&ranked[i], &ranked[j]) })

	order := make([]string, len(ranked))
	for i := range ranked {
		ranked[i].Rank = i + 1
		order[i] = ranked[i].Candidate.ID
		if i > 0 && ranked[i-1].Score == ranked[i].Score {
			rec.Record(trace.Event{
				Kind:        trace.KindTieBreak,
				CandidateID: ranked[i-1].Candidate.ID,
				Value:       trace.Value(ranked[i].Score),
				Order:       []string{ranked[i-1].Candidate.ID, ranked[i].Candidate.ID},
				Reason:      fmt.Sprintf("tied at %.6f with %s, ordered by id", ranked[i].Score, ranked[i].Candidate.ID),
			})
		}
	}

	ev := trace.Event{Kind: trace.KindRanked, Order: order, Count: trace.Count(len(ranked))}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
		ev.Count = trace.Count(limit)
		ev.Reason = fmt.Sprintf("limited to %d of %d", limit, len(order))
	}
	rec.Record(ev)
	return ranked
}
