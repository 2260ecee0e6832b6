package store

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Concierge/internal/models"
)

//go:embed seed/restaurants.yaml
var defaultSeed []byte

// seedFile is the on-disk layout of a restaurant seed file.
type seedFile struct {
	Restaurants []models.Candidate `yaml:"restaurants"`
}

// MemoryRepository serves candidates from an in-memory snapshot.
type MemoryRepository struct {
	candidates []models.Candidate
}

// NewMemoryRepository creates a repository over a copy of candidates,
// sorted by id.
func NewMemoryRepository(candidates []models.Candidate) *MemoryRepository {
	cp := make([]models.Candidate, len(candidates))
	copy(cp, candidates)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].ID < cp[j].ID })
	return &MemoryRepository{candidates: cp}
}

// LoadSeed parses a YAML seed document.
func LoadSeed(data []byte) ([]models.Candidate, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	seen := make(map[string]bool, len(f.Restaurants))
	for i, c := range f.Restaurants {
		if c.ID == "" {
			return nil, fmt.Errorf("seed restaurant %d (%q) has no id", i, c.Name)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate seed id %q", c.ID)
		}
		seen[c.ID] = true
	}
	return f.Restaurants, nil
}

// DefaultSeed returns the built-in restaurant dataset.
func DefaultSeed() ([]models.Candidate, error) {
	return LoadSeed(defaultSeed)
}

// NewMemoryRepositoryFromFile loads a seed file, or the built-in dataset
// when path is empty.
func NewMemoryRepositoryFromFile(path string) (*MemoryRepository, error) {
	data := defaultSeed
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed: %w", err)
		}
	}
	candidates, err := LoadSeed(data)
	if err != nil {
		return nil, err
	}
	return NewMemoryRepository(candidates), nil
}

func (m *MemoryRepository) FetchCandidates(ctx context.Context, filter Filter) ([]models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []models.Candidate
	for i := range m.candidates {
		if filter.Matches(&m.candidates[i]) {
			out = append(out, m.candidates[i])
		}
	}
	return out, nil
}

// All returns every candidate in the snapshot.
func (m *MemoryRepository) All() []models.Candidate {
	out := make([]models.Candidate, len(m.candidates))
	copy(out, m.candidates)
	return out
}
