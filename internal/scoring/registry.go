package scoring

import "fmt"

// Registry holds the ordered set of criteria an engine evaluates and their
// default weights. Registration order is evaluation and reporting order.
// A Registry is built once at startup and read-only afterwards.
type Registry struct {
	criteria []Criterion
	defaults WeightSet
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defaults: WeightSet{}}
}

// Register adds a criterion with its default weight.
func (r *Registry) Register(c Criterion, defaultWeight float64) error {
	name := c.Name()
	if name == "" {
		return fmt.Errorf("criterion has empty name")
	}
	if _, dup := r.defaults[name]; dup {
		return fmt.Errorf("criterion %q already registered", name)
	}
	if defaultWeight < 0 {
		return fmt.Errorf("negative default weight for %s", name)
	}
	r.criteria = append(r.criteria, c)
	r.defaults[name] = defaultWeight
	return nil
}

// Criteria returns the registered criteria in registration order.
func (r *Registry) Criteria() []Criterion {
	out := make([]Criterion, len(r.criteria))
	copy(out, r.criteria)
	return out
}

// Names returns the registered criterion names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.criteria))
	for i, c := range r.criteria {
		names[i] = c.Name()
	}
	return names
}

// DefaultWeights returns a copy of the default weight set.
func (r *Registry) DefaultWeights() WeightSet {
	return r.defaults.Clone()
}

// Resolve returns the override if one is given, validated against the
// registered names, or the defaults otherwise. Criteria missing from an
// override get weight zero.
func (r *Registry) Resolve(override map[string]float64) (WeightSet, error) {
	if len(override) == 0 {
		return r.DefaultWeights(), nil
	}
	ws := WeightSet(override).Clone()
	if err := ws.Validate(r.Names()); err != nil {
		return nil, fmt.Errorf("criterion_weights: %w", err)
	}
	return ws, nil
}

// StandardRegistry registers the built-in criteria with their default weights.
func StandardRegistry(proximityHorizonKm float64) *Registry {
	r := NewRegistry()
	w := DefaultWeights()
	for _, c := range []Criterion{
		RatingCriterion{},
		PriceFitCriterion{},
		ProximityCriterion{HorizonKm: proximityHorizonKm},
		CuisineMatchCriterion{},
		AmbienceCriterion{},
	} {
		// names are distinct constants, so registration cannot fail
		_ = r.Register(c, w[c.Name()])
	}
	return r
}

// WithDefaults returns a copy of the registry using weights as defaults.
// Weights must cover only registered names and sum to 1.0.
func (r *Registry) WithDefaults(weights WeightSet) (*Registry, error) {
	if err := weights.Validate(r.Names()); err != nil {
		return nil, err
	}
	out := &Registry{criteria: r.Criteria(), defaults: WeightSet{}}
	for _, name := range r.Names() {
		out.defaults[name] = weights[name]
	}
	return out, nil
}
