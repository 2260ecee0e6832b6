package models

import (
	"slices"
	"strings"
)

// Query is a user's restaurant request. It is not modified after submission;
// use Clone before handing a copy to code that might.
type Query struct {
	Text string `json:"text,omitempty"`

	Locality     string   `json:"locality,omitempty" validate:"max=120"`
	Cuisine      string   `json:"cuisine,omitempty" validate:"max=60"`
	PriceCeiling *int     `json:"price_ceiling,omitempty" validate:"omitempty,min=1,max=4"`
	MinRating    *float64 `json:"min_rating,omitempty" validate:"omitempty,min=0,max=5"`

	Budget    *float64 `json:"budget,omitempty" validate:"omitempty,gt=0"`
	PartySize int      `json:"party_size,omitempty" validate:"min=0,max=50"`
	Day       string   `json:"day,omitempty" validate:"omitempty,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	Time      string   `json:"time,omitempty" validate:"max=16"`
	Window    bool     `json:"window,omitempty"`
	Views     []string `json:"views,omitempty" validate:"max=4,dive,oneof=garden street harbor water city"` // preferred window views

	Origin *Coordinates `json:"origin,omitempty"`
	Limit  int          `json:"limit,omitempty" validate:"min=0,max=100"`

	CriterionWeights map[string]float64 `json:"criterion_weights,omitempty"`
}

// HasDiscriminator reports whether the query names a locality or a cuisine.
func (q *Query) HasDiscriminator() bool {
	return strings.TrimSpace(q.Locality) != "" || strings.TrimSpace(q.Cuisine) != ""
}

// WantsWindow reports whether the query asks for window seating. Naming a
// view implies it.
func (q *Query) WantsWindow() bool {
	return q.Window || len(q.Views) > 0
}

// Normalize trims text fields and puts the day and views in the casing the
// validator accepts ("Thursday", "garden"). Views gets a fresh slice.
func (q *Query) Normalize() {
	q.Locality = strings.TrimSpace(q.Locality)
	q.Cuisine = strings.TrimSpace(q.Cuisine)
	q.Time = strings.TrimSpace(q.Time)
	if day := strings.ToLower(strings.TrimSpace(q.Day)); day != "" {
		q.Day = strings.ToUpper(day[:1]) + day[1:]
	}
	if q.Views != nil {
		views := make([]string, len(q.Views))
		for i, v := range q.Views {
			views[i] = strings.ToLower(strings.TrimSpace(v))
		}
		q.Views = views
	}
}

// EffectivePartySize returns the party size, treating zero as one diner.
func (q *Query) EffectivePartySize() int {
	if q.PartySize <= 0 {
		return 1
	}
	return q.PartySize
}

// Clone returns a deep copy.
func (q Query) Clone() Query {
	out := q
	if q.PriceCeiling != nil {
		out.PriceCeiling = IntPtr(*q.PriceCeiling)
	}
	if q.MinRating != nil {
		out.MinRating = Float64Ptr(*q.MinRating)
	}
	if q.Budget != nil {
		out.Budget = Float64Ptr(*q.Budget)
	}
	if q.Origin != nil {
		o := *q.Origin
		out.Origin = &o
	}
	out.Views = slices.Clone(q.Views)
	if q.CriterionWeights != nil {
		out.CriterionWeights = make(map[string]float64, len(q.CriterionWeights))
		for k, v := range q.CriterionWeights {
			out.CriterionWeights[k] = v
		}
	}
	return out
}
