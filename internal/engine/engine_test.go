package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Concierge/internal/models"
	"github.com/MikeSquared-Agency/Concierge/internal/scoring"
	"github.com/MikeSquared-Agency/Concierge/internal/store"
	"github.com/MikeSquared-Agency/Concierge/internal/trace"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedRepo ignores the filter so the hard filters see every candidate.
func fixedRepo(cs ...models.Candidate) store.Repository {
	return store.RepositoryFunc(func(ctx context.Context, _ store.Filter) ([]models.Candidate, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return cs, nil
	})
}

func newEngine(repo store.Repository, opts ...Option) *Engine {
	return New(repo, scoring.NewScorer(scoring.StandardRegistry(5), discardLogger()), discardLogger(), opts...)
}

func restaurant(id, cuisine, locality string, tier int, rating, miles float64) models.Candidate {
	return models.Candidate{
		ID:                 id,
		Name:               id,
		Cuisines:           []string{cuisine},
		Locality:           locality,
		PriceTier:          models.IntPtr(tier),
		Rating:             models.Float64Ptr(rating),
		DistanceFromCenter: models.Float64Ptr(miles),
	}
}

func fiveCandidates() []models.Candidate {
	return []models.Candidate{
		restaurant("uptown-italian", "Italian", "Uptown", 2, 4.9, 3.0),
		restaurant("pasta-house", "Italian", "Downtown", 1, 4.2, 1.5),
		restaurant("pho-corner", "Vietnamese", "Downtown", 1, 4.8, 0.1),
		restaurant("luigis", "Italian", "Downtown", 2, 4.6, 0.3),
		restaurant("bistro-lusso", "Italian", "Downtown", 3, 4.9, 0.2),
	}
}

func resultIDs(rs []models.RankedResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Candidate.ID
	}
	return out
}

func TestDowntownItalianScenario(t *testing.T) {
	e := newEngine(fixedRepo(fiveCandidates()...))
	rec := trace.NewRecorder("q1")
	q := models.Query{Locality: "Downtown", Cuisine: "Italian", PriceCeiling: models.IntPtr(2)}

	results, err := e.Evaluate(context.Background(), q, nil, rec)
	require.NoError(t, err)
	rec.Close()

	assert.Equal(t, []string{"luigis", "pasta-house"}, resultIDs(results))
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)

	tr := rec.Trace()
	retrieved := tr.Filter(trace.KindRetrieved)
	require.Len(t, retrieved, 1)
	assert.Equal(t, 5, *retrieved[0].Count)

	filtered := tr.Filter(trace.KindFiltered)
	require.Len(t, filtered, 3)
	reasons := map[string]string{}
	for _, ev := range filtered {
		reasons[ev.CandidateID] = ev.Reason
	}
	assert.Contains(t, reasons["uptown-italian"], "locality")
	assert.Contains(t, reasons["pho-corner"], "cuisine")
	assert.Contains(t, reasons["bistro-lusso"], "price_ceiling")

	for _, id := range []string{"luigis", "pasta-house"} {
		events := trace.Trace(tr.ForCandidate(id))
		assert.Len(t, events.Filter(trace.KindAdmitted), 1, id)
		assert.Len(t, events.Filter(trace.KindScored), 5, id)
		assert.Len(t, events.Filter(trace.KindAggregated), 1, id)
	}

	ranked := tr.Filter(trace.KindRanked)
	require.Len(t, ranked, 1)
	assert.Equal(t, []string{"luigis", "pasta-house"}, ranked[0].Order)
	assert.Equal(t, trace.KindRanked, tr[len(tr)-1].Kind, "ranking is the terminal event")

	var stages []string
	for _, ev := range tr.Filter(trace.KindStage) {
		stages = append(stages, ev.Reason)
	}
	assert.Equal(t, []string{StageRetrieval, StageFiltering, StageRanking}, stages)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	seed, err := store.DefaultSeed()
	require.NoError(t, err)
	q := models.Query{Locality: "Baltimore", Cuisine: "Turkish", Views: []string{"garden", "street"}}

	var first []models.RankedResult
	for i := 0; i < 20; i++ {
		e := newEngine(store.NewMemoryRepository(seed), WithConcurrency(1+i%4))
		got, err := e.Evaluate(context.Background(), q, nil, trace.NewRecorder("q"))
		require.NoError(t, err)
		if first == nil {
			first = got
			continue
		}
		require.Equal(t, resultIDs(first), resultIDs(got), "run %d", i)
		for j := range got {
			assert.Equal(t, first[j].Score, got[j].Score)
		}
	}
	assert.NotEmpty(t, first)
}

func TestTiesBreakByID(t *testing.T) {
	a := restaurant("beta", "Thai", "Downtown", 2, 4.0, 1.0)
	b := restaurant("alpha", "Thai", "Downtown", 2, 4.0, 1.0)
	c := restaurant("gamma", "Thai", "Downtown", 2, 4.0, 1.0)
	e := newEngine(fixedRepo(a, c, b))
	rec := trace.NewRecorder("q")

	results, err := e.Evaluate(context.Background(), models.Query{Cuisine: "Thai"}, nil, rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, resultIDs(results))

	ties := rec.Trace().Filter(trace.KindTieBreak)
	require.Len(t, ties, 2)
	assert.Equal(t, []string{"alpha", "beta"}, ties[0].Order)
	assert.Equal(t, []string{"beta", "gamma"}, ties[1].Order)
}

func TestEmptyRepository(t *testing.T) {
	e := newEngine(fixedRepo())
	rec := trace.NewRecorder("q")

	results, err := e.Evaluate(context.Background(), models.Query{Cuisine: "Thai"}, nil, rec)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	tr := rec.Trace()
	assert.NotEmpty(t, tr)
	assert.Len(t, tr.Filter(trace.KindEmpty), 1)
}

func TestAllFilteredIsEmptyNotError(t *testing.T) {
	e := newEngine(fixedRepo(fiveCandidates()...))
	rec := trace.NewRecorder("q")

	results, err := e.Evaluate(context.Background(), models.Query{Cuisine: "Peruvian"}, nil, rec)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Len(t, rec.Trace().Filter(trace.KindFiltered), 5)
}

func TestFailingCriterionExcludesOnlyThatCandidate(t *testing.T) {
	bad := restaurant("bad-data", "Italian", "Downtown", 2, 7.5, 0.5)
	good := restaurant("good", "Italian", "Downtown", 2, 4.0, 0.5)
	e := newEngine(fixedRepo(bad, good))
	rec := trace.NewRecorder("q")

	results, err := e.Evaluate(context.Background(), models.Query{Cuisine: "Italian"}, nil, rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, resultIDs(results))

	failed := rec.Trace().Filter(trace.KindScoreFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "bad-data", failed[0].CandidateID)
	assert.Equal(t, scoring.NameRating, failed[0].Criterion)
	assert.Contains(t, failed[0].Reason, models.ErrCriterionEvaluation.Error())
	assert.Empty(t, trace.Trace(rec.Trace().ForCandidate("bad-data")).Filter(trace.KindAggregated))
}

func TestMissingFieldFailsActiveFilter(t *testing.T) {
	unknownPrice := restaurant("mystery", "Italian", "Downtown", 1, 4.0, 0.5)
	unknownPrice.PriceTier = nil
	e := newEngine(fixedRepo(unknownPrice))
	rec := trace.NewRecorder("q")

	results, err := e.Evaluate(context.Background(), models.Query{Cuisine: "Italian", PriceCeiling: models.IntPtr(4)}, nil, rec)
	require.NoError(t, err)
	assert.Empty(t, results)
	filtered := rec.Trace().Filter(trace.KindFiltered)
	require.Len(t, filtered, 1)
	assert.Contains(t, filtered[0].Reason, "price tier unknown")
}

func TestScoresAreMonotonicInRating(t *testing.T) {
	e := newEngine(nil)
	q := models.Query{Cuisine: "Italian"}
	prev := -1.0
	for _, r := range []float64{0, 1, 2.5, 3.9, 4.0, 4.8, 5} {
		e.repo = fixedRepo(restaurant("x", "Italian", "Downtown", 2, r, 0.5))
		results, err := e.Evaluate(context.Background(), q, nil, trace.NewRecorder("q"))
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.GreaterOrEqual(t, results[0].Score, prev, "rating %.1f", r)
		prev = results[0].Score
	}
}

func TestWeightOverride(t *testing.T) {
	e := newEngine(fixedRepo(restaurant("x", "Italian", "Downtown", 2, 4.0, 0.5)))
	results, err := e.Evaluate(context.Background(), models.Query{Cuisine: "Italian"},
		scoring.WeightSet{scoring.NameRating: 1}, trace.NewRecorder("q"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.8, results[0].Score)

	var sum float64
	for _, cs := range results[0].Criteria {
		sum += cs.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestLimitAppliedAfterSort(t *testing.T) {
	seed, err := store.DefaultSeed()
	require.NoError(t, err)
	e := newEngine(store.NewMemoryRepository(seed))
	rec := trace.NewRecorder("q")

	all, err := e.Evaluate(context.Background(), models.Query{Cuisine: "Turkish"}, nil, trace.NewRecorder("q"))
	require.NoError(t, err)
	top, err := e.Evaluate(context.Background(), models.Query{Cuisine: "Turkish", Limit: 2}, nil, rec)
	require.NoError(t, err)

	require.Len(t, top, 2)
	assert.Equal(t, resultIDs(all)[:2], resultIDs(top))
	ranked := rec.Trace().Filter(trace.KindRanked)[0]
	assert.Len(t, ranked.Order, len(all))
	assert.Equal(t, 2, *ranked.Count)
}

func TestRepositoryErrors(t *testing.T) {
	plain := store.RepositoryFunc(func(context.Context, store.Filter) ([]models.Candidate, error) {
		return nil, errors.New("dial tcp: refused")
	})
	_, err := newEngine(plain).Evaluate(context.Background(), models.Query{Cuisine: "Thai"}, nil, trace.NewRecorder("q"))
	assert.ErrorIs(t, err, models.ErrRepositoryUnavailable)

	wrapped := store.RepositoryFunc(func(context.Context, store.Filter) ([]models.Candidate, error) {
		return nil, fmt.Errorf("%w: breaker open", models.ErrRepositoryUnavailable)
	})
	_, err = newEngine(wrapped).Evaluate(context.Background(), models.Query{Cuisine: "Thai"}, nil, trace.NewRecorder("q"))
	assert.ErrorIs(t, err, models.ErrRepositoryUnavailable)
}

func TestCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEngine(fixedRepo(fiveCandidates()...)).Evaluate(ctx, models.Query{Cuisine: "Italian"}, nil, trace.NewRecorder("q"))
	assert.ErrorIs(t, err, context.Canceled)
}

// cancelingCriterion cancels the query while it is being scored.
type cancelingCriterion struct{ cancel context.CancelFunc }

func (cancelingCriterion) Name() string { return "canceling" }

func (c cancelingCriterion) Score(*models.Query, *models.Candidate) (scoring.Result, error) {
	c.cancel()
	return scoring.Result{Value: 1}, nil
}

func TestCanceledDuringScoring(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg := scoring.NewRegistry()
	require.NoError(t, reg.Register(cancelingCriterion{cancel: cancel}, 1))
	e := New(fixedRepo(fiveCandidates()...), scoring.NewScorer(reg, discardLogger()), discardLogger(), WithConcurrency(1))

	results, err := e.Evaluate(ctx, models.Query{Cuisine: "Italian"}, nil, trace.NewRecorder("q"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}

func TestEvaluateDoesNotMutateQuery(t *testing.T) {
	q := models.Query{Cuisine: "Italian", Views: []string{"street"}, CriterionWeights: map[string]float64{"rating": 1}}
	_, err := newEngine(fixedRepo(fiveCandidates()...)).Evaluate(context.Background(), q, nil, trace.NewRecorder("q"))
	require.NoError(t, err)
	assert.Equal(t, []string{"street"}, q.Views)
	assert.Equal(t, 1.0, q.CriterionWeights["rating"])
}
