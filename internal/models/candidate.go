package models

import (
	"slices"
	"strings"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"latitude"`
	Lon float64 `json:"lon" yaml:"lon" validate:"longitude"`
}

// Candidate is one restaurant record considered for ranking.
// Optional fields are nil when the data source does not know them.
type Candidate struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Cuisines []string `json:"cuisines" yaml:"cuisines"` // first entry is the primary cuisine
	Locality string   `json:"locality" yaml:"locality"`

	PriceTier         *int     `json:"price_tier,omitempty" yaml:"price_tier,omitempty"` // 1 ($) to 4 ($$$$)
	AvgPricePerPerson *float64 `json:"avg_price_per_person,omitempty" yaml:"avg_price_per_person,omitempty"`
	Rating            *float64 `json:"rating,omitempty" yaml:"rating,omitempty"` // 0 to 5

	Coordinates        *Coordinates `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
	DistanceFromCenter *float64     `json:"distance_from_center,omitempty" yaml:"distance_from_center,omitempty"` // miles

	Availability  map[string][]string `json:"availability,omitempty" yaml:"availability,omitempty"` // day -> time slots
	WindowSeating *bool               `json:"window_seating,omitempty" yaml:"window_seating,omitempty"`
	WindowViews   []string            `json:"window_views,omitempty" yaml:"window_views,omitempty"`
}

// PrimaryCuisine returns the first cuisine tag, or "" if there is none.
func (c *Candidate) PrimaryCuisine() string {
	if len(c.Cuisines) == 0 {
		return ""
	}
	return c.Cuisines[0]
}

// HasCuisine reports whether any tag equals cuisine, ignoring case.
func (c *Candidate) HasCuisine(cuisine string) bool {
	for _, tag := range c.Cuisines {
		if strings.EqualFold(tag, cuisine) {
			return true
		}
	}
	return false
}

// AvailableAt reports whether the candidate lists the given slot for day.
// Day names and slots compare case-insensitively, ignoring surrounding space.
func (c *Candidate) AvailableAt(day, slot string) bool {
	for d, slots := range c.Availability {
		if !strings.EqualFold(d, day) {
			continue
		}
		for _, s := range slots {
			if normalizeSlot(s) == normalizeSlot(slot) {
				return true
			}
		}
	}
	return false
}

// HasView reports whether the candidate's window views include view.
func (c *Candidate) HasView(view string) bool {
	for _, v := range c.WindowViews {
		if strings.EqualFold(v, view) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (c Candidate) Clone() Candidate {
	out := c
	out.Cuisines = slices.Clone(c.Cuisines)
	out.WindowViews = slices.Clone(c.WindowViews)
	if c.PriceTier != nil {
		out.PriceTier = IntPtr(*c.PriceTier)
	}
	if c.AvgPricePerPerson != nil {
		out.AvgPricePerPerson = Float64Ptr(*c.AvgPricePerPerson)
	}
	if c.Rating != nil {
		out.Rating = Float64Ptr(*c.Rating)
	}
	if c.Coordinates != nil {
		coords := *c.Coordinates
		out.Coordinates = &coords
	}
	if c.DistanceFromCenter != nil {
		out.DistanceFromCenter = Float64Ptr(*c.DistanceFromCenter)
	}
	if c.WindowSeating != nil {
		out.WindowSeating = BoolPtr(*c.WindowSeating)
	}
	if c.Availability != nil {
		out.Availability = make(map[string][]string, len(c.Availability))
		for day, slots := range c.Availability {
			out.Availability[day] = slices.Clone(slots)
		}
	}
	return out
}

// CloneCandidates deep-copies a candidate slice.
func CloneCandidates(in []Candidate) []Candidate {
	if in == nil {
		return nil
	}
	out := make([]Candidate, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

func normalizeSlot(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

// IntPtr and Float64Ptr build optional fields.
func IntPtr(v int) *int { return &v }

func Float64Ptr(v float64) *float64 { return &v }

func BoolPtr(v bool) *bool { return &v }
