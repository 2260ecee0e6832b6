package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/MikeSquared-Agency/Concierge/internal/metrics"
	"github.com/MikeSquared-Agency/Concierge/internal/models"
)

const defaultRepositoryTimeout = 3 * time.Second

// BreakerSettings tunes the circuit breaker in front of a repository.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of trial calls allowed while half-open.
	HalfOpenRequests uint32
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{MaxFailures: 5, OpenTimeout: 30 * time.Second, HalfOpenRequests: 1}
}

// errCallerDone marks a fetch abandoned because the caller's context ended.
// It does not count against the breaker.
type errCallerDone struct{ err error }

func (e errCallerDone) Error() string { return e.err.Error() }
func (e errCallerDone) Unwrap() error { return e.err }

// Guard bounds every fetch with a timeout and a circuit breaker. Timeouts,
// repository errors and rejected calls all surface as
// models.ErrRepositoryUnavailable. A canceled caller gets its own ctx error.
type Guard struct {
	repo    Repository
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[[]models.Candidate]
	logger  *slog.Logger
}

func NewGuard(name string, repo Repository, timeout time.Duration, settings BreakerSettings, logger *slog.Logger) *Guard {
	if timeout <= 0 {
		timeout = defaultRepositoryTimeout
	}
	defaults := DefaultBreakerSettings()
	if settings.MaxFailures == 0 {
		settings.MaxFailures = defaults.MaxFailures
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = defaults.OpenTimeout
	}
	if settings.HalfOpenRequests == 0 {
		settings.HalfOpenRequests = defaults.HalfOpenRequests
	}

	g := &Guard{repo: repo, timeout: timeout, logger: logger}
	g.breaker = gobreaker.NewCircuitBreaker[[]models.Candidate](gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.HalfOpenRequests,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("repository circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: func(err error) bool {
			var done errCallerDone
			return err == nil || errors.As(err, &done)
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return g
}

func (g *Guard) FetchCandidates(ctx context.Context, filter Filter) ([]models.Candidate, error) {
	start := time.Now()
	defer func() { metrics.RepositoryDuration.Observe(time.Since(start).Seconds()) }()

	candidates, err := g.breaker.Execute(func() ([]models.Candidate, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		out, err := g.fetch(fetchCtx, filter)
		if err != nil && ctx.Err() != nil {
			return nil, errCallerDone{err: ctx.Err()}
		}
		return out, err
	})
	if err == nil {
		metrics.RepositoryRequests.WithLabelValues("success").Inc()
		return candidates, nil
	}

	var done errCallerDone
	switch {
	case errors.As(err, &done):
		return nil, done.err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RepositoryRequests.WithLabelValues("rejected").Inc()
	case errors.Is(err, context.DeadlineExceeded):
		metrics.RepositoryRequests.WithLabelValues("timeout").Inc()
		err = fmt.Errorf("fetch exceeded %s: %w", g.timeout, err)
	default:
		metrics.RepositoryRequests.WithLabelValues("failure").Inc()
	}
	g.logger.Warn("repository fetch failed", "locality", filter.Locality, "cuisine", filter.Cuisine, "error", err)
	return nil, fmt.Errorf("%w: %v", models.ErrRepositoryUnavailable, err)
}

type fetchResult struct {
	candidates []models.Candidate
	err        error
}

// fetch returns once ctx is done even if the repository ignores ctx. The
// abandoned call finishes in the background and its result is dropped.
func (g *Guard) fetch(ctx context.Context, filter Filter) ([]models.Candidate, error) {
	done := make(chan fetchResult, 1)
	go func() {
		out, err := g.repo.FetchCandidates(ctx, filter)
		done <- fetchResult{candidates: out, err: err}
	}()
	select {
	case res := <-done:
		return res.candidates, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// State reports the breaker state ("closed", "half-open", "open").
func (g *Guard) State() string {
	return g.breaker.State().String()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
