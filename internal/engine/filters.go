package engine

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/Concierge/internal/models"
	"github.com/MikeSquared-Agency/Concierge/internal/store"
)

// Hard filter names, in evaluation order.
const (
	FilterLocality     = "locality"
	FilterCuisine      = "cuisine"
	FilterPriceCeiling = "price_ceiling"
	FilterMinRating    = "min_rating"
	FilterBudget       = "budget"
	FilterAvailability = "availability"
	FilterWindow       = "window"
)

// Failure is one failed hard filter for one candidate.
type Failure struct {
	Filter string `json:"filter"`
	Reason string `json:"reason"`
}

func (f Failure) String() string {
	return f.Filter + ": " + f.Reason
}

type hardFilter struct {
	name  string
	check func(q *models.Query, c *models.Candidate) (reason string, ok bool)
}

var hardFilters = []hardFilter{
	{FilterLocality, checkLocality},
	{FilterCuisine, checkCuisine},
	{FilterPriceCeiling, checkPriceCeiling},
	{FilterMinRating, checkMinRating},
	{FilterBudget, checkBudget},
	{FilterAvailability, checkAvailability},
	{FilterWindow, checkWindow},
}

// CheckHardFilters runs every active hard filter against c and returns
// all failures. A filter is active when the query sets its field; a
// candidate missing the data an active filter needs fails it.
func CheckHardFilters(q *models.Query, c *models.Candidate) []Failure {
	var failures []Failure
	for _, f := range hardFilters {
		if reason, ok := f.check(q, c); !ok {
			failures = append(failures, Failure{Filter: f.name, Reason: reason})
		}
	}
	return failures
}

func joinFailures(failures []Failure) string {
	parts := make([]string, len(failures))
	for i, f := range failures {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}

func checkLocality(q *models.Query, c *models.Candidate) (string, bool) {
	want := strings.TrimSpace(q.Locality)
	if want == "" {
		return "", true
	}
	if strings.TrimSpace(c.Locality) == "" {
		return "locality unknown", false
	}
	if !store.LocalityMatches(c.Locality, want) {
		return fmt.Sprintf("%q is not in %q", c.Locality, want), false
	}
	return "", true
}

func checkCuisine(q *models.Query, c *models.Candidate) (string, bool) {
	want := strings.TrimSpace(q.Cuisine)
	if want == "" {
		return "", true
	}
	if len(c.Cuisines) == 0 {
		return "cuisine unknown", false
	}
	if !c.HasCuisine(want) {
		return fmt.Sprintf("serves %s, not %s", strings.Join(c.Cuisines, "/"), want), false
	}
	return "", true
}

func checkPriceCeiling(q *models.Query, c *models.Candidate) (string, bool) {
	if q.PriceCeiling == nil {
		return "", true
	}
	if c.PriceTier == nil {
		return "price tier unknown", false
	}
	if *c.PriceTier > *q.PriceCeiling {
		return fmt.Sprintf("tier %d exceeds ceiling %d", *c.PriceTier, *q.PriceCeiling), false
	}
	return "", true
}

func checkMinRating(q *models.Query, c *models.Candidate) (string, bool) {
	if q.MinRating == nil {
		return "", true
	}
	if c.Rating == nil {
		return "rating unknown", false
	}
	if *c.Rating < *q.MinRating {
		return fmt.Sprintf("rating %.1f below minimum %.1f", *c.Rating, *q.MinRating), false
	}
	return "", true
}

func checkBudget(q *models.Query, c *models.Candidate) (string, bool) {
	if q.Budget == nil {
		return "", true
	}
	if c.AvgPricePerPerson == nil {
		return "average price unknown", false
	}
	party := q.EffectivePartySize()
	total := *c.AvgPricePerPerson * float64(party)
	if total > *q.Budget {
		return fmt.Sprintf("$%.2f for %d exceeds budget $%.2f", total, party, *q.Budget), false
	}
	return "", true
}

// checkAvailability requires the requested slot on the requested day. With
// only a day, any slot that day passes; with only a time, that slot on any
// day passes.
func checkAvailability(q *models.Query, c *models.Candidate) (string, bool) {
	day, slot := strings.TrimSpace(q.Day), strings.TrimSpace(q.Time)
	if day == "" && slot == "" {
		return "", true
	}
	if len(c.Availability) == 0 {
		return "availability unknown", false
	}
	switch {
	case day != "" && slot != "":
		if !c.AvailableAt(day, slot) {
			return fmt.Sprintf("no table %s at %s", day, slot), false
		}
	case day != "":
		for d, slots := range c.Availability {
			if strings.EqualFold(d, day) && len(slots) > 0 {
				return "", true
			}
		}
		return fmt.Sprintf("no tables on %s", day), false
	default:
		for d := range c.Availability {
			if c.AvailableAt(d, slot) {
				return "", true
			}
		}
		return fmt.Sprintf("no table at %s on any day", slot), false
	}
	return "", true
}

func checkWindow(q *models.Query, c *models.Candidate) (string, bool) {
	if !q.WantsWindow() {
		return "", true
	}
	if c.WindowSeating == nil {
		return "window seating unknown", false
	}
	if !*c.WindowSeating {
		return "no window seating", false
	}
	if len(c.WindowViews) == 0 {
		return "window seating has no view", false
	}
	return "", true
}
