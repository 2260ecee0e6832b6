package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// weightTolerance is the allowed deviation of a weight sum from 1.0.
const weightTolerance = 0.001

// WeightSet maps criterion names to their share of the aggregate score.
// All weights must sum to 1.0 (±0.001 tolerance).
type WeightSet map[string]float64

// DefaultWeights returns the standard weight distribution.
func DefaultWeights() WeightSet {
	return WeightSet{
		NameRating:       0.30,
		NamePriceFit:     0.20,
		NameProximity:    0.20,
		NameCuisineMatch: 0.15,
		NameAmbience:     0.15,
	}
}

// Sum returns the total of all weights.
func (w WeightSet) Sum() float64 {
	var sum float64
	for _, name := range w.names() {
		sum += w[name]
	}
	return sum
}

// Weight returns the weight for name, or zero if it is not in the set.
func (w WeightSet) Weight(name string) float64 {
	return w[name]
}

// Validate checks that every name is known, no weight is negative, and
// the weights sum to 1.0. A nil known list skips the name check.
func (w WeightSet) Validate(known []string) error {
	if len(w) == 0 {
		return fmt.Errorf("empty weight set")
	}
	var allowed map[string]bool
	if known != nil {
		allowed = make(map[string]bool, len(known))
		for _, k := range known {
			allowed[k] = true
		}
	}
	for _, name := range w.names() {
		v := w[name]
		if allowed != nil && !allowed[name] {
			return fmt.Errorf("unknown criterion %q", name)
		}
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("negative weight for %s: %f", name, v)
		}
	}
	if math.Abs(w.Sum()-1.0) > weightTolerance {
		return fmt.Errorf("weights sum to %.4f, must sum to 1.0", w.Sum())
	}
	return nil
}

// Clone returns an independent copy.
func (w WeightSet) Clone() WeightSet {
	out := make(WeightSet, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// names returns the keys in sorted order so sums are reproducible.
func (w WeightSet) names() []string {
	names := make([]string, 0, len(w))
	for k := range w {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// String renders the set as "name=weight" pairs in name order.
func (w WeightSet) String() string {
	parts := make([]string, 0, len(w))
	for _, name := range w.names() {
		parts = append(parts, fmt.Sprintf("%s=%.2f", name, w[name]))
	}
	return strings.Join(parts, ",")
}
