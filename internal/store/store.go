package store

import (
	"context"
	"strings"

	"github.com/MikeSquared-Agency/Concierge/internal/models"
)

// Filter is the coarse retrieval filter passed to a Repository.
// Empty fields match everything.
type Filter struct {
	Locality string `json:"locality,omitempty"`
	Cuisine  string `json:"cuisine,omitempty"`
}

// Key returns a normalized cache key for the filter.
func (f Filter) Key() string {
	return strings.ToLower(strings.TrimSpace(f.Locality)) + "|" + strings.ToLower(strings.TrimSpace(f.Cuisine))
}

// Matches reports whether c satisfies the filter. Locality matches when
// every word of the filter appears in the candidate's locality, so
// "Downtown Baltimore" matches "Downtown Baltimore, MD".
func (f Filter) Matches(c *models.Candidate) bool {
	if f.Cuisine != "" && !c.HasCuisine(strings.TrimSpace(f.Cuisine)) {
		return false
	}
	if f.Locality != "" && !LocalityMatches(c.Locality, f.Locality) {
		return false
	}
	return true
}

// LocalityMatches reports whether every word of want appears in have,
// ignoring case and punctuation.
func LocalityMatches(have, want string) bool {
	haveWords := make(map[string]bool)
	for _, w := range localityWords(have) {
		haveWords[w] = true
	}
	words := localityWords(want)
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if !haveWords[w] {
			return false
		}
	}
	return true
}

func localityWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

// Repository supplies candidate restaurants. Implementations must not
// return slices they later modify.
type Repository interface {
	FetchCandidates(ctx context.Context, filter Filter) ([]models.Candidate, error)
}

// RepositoryFunc adapts a function to the Repository interface.
type RepositoryFunc func(ctx context.Context, filter Filter) ([]models.Candidate, error)

func (f RepositoryFunc) FetchCandidates(ctx context.Context, filter Filter) ([]models.Candidate, error) {
	return f(ctx, filter)
}
