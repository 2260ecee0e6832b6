package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/MikeSquared-Agency/Concierge/internal/models"
)

// Criterion names for the standard evaluators.
const (
	NameRating       = "rating"
	NamePriceFit     = "price_fit"
	NameProximity    = "proximity"
	NameCuisineMatch = "cuisine_match"
	NameAmbience     = "ambience"
)

// Neutral is the score used when a candidate lacks the data a criterion needs.
const Neutral = 0.5

// Result is one criterion's normalized score for one candidate.
type Result struct {
	Value   float64
	Raw     string
	Neutral bool
}

// Criterion scores one decision dimension. Implementations must be pure.
type Criterion interface {
	Name() string
	Score(q *models.Query, c *models.Candidate) (Result, error)
}

func neutral(reason string) Result {
	return Result{Value: Neutral, Raw: reason, Neutral: true}
}

func malformed(criterion, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", models.ErrCriterionEvaluation, criterion, fmt.Sprintf(format, args...))
}

// --- Individual criteria ---

// RatingCriterion maps a 0–5 rating onto [0,1].
type RatingCriterion struct{}

func (RatingCriterion) Name() string { return NameRating }

func (RatingCriterion) Score(_ *models.Query, c *models.Candidate) (Result, error) {
	if c.Rating == nil {
		return neutral("rating unknown"), nil
	}
	r := *c.Rating
	if math.IsNaN(r) || r < 0 || r > 5 {
		return Result{}, malformed(NameRating, "rating %v outside [0,5]", r)
	}
	return Result{Value: r / 5, Raw: fmt.Sprintf("%.1f/5", r)}, nil
}

// PriceFitCriterion prefers cheaper options relative to what the diner
// is willing to pay. With a budget and a per-person price it scores the
// share of the budget left over; otherwise it uses the price tier.
type PriceFitCriterion struct{}

func (PriceFitCriterion) Name() string { return NamePriceFit }

func (PriceFitCriterion) Score(q *models.Query, c *models.Candidate) (Result, error) {
	if c.PriceTier != nil && (*c.PriceTier < 1 || *c.PriceTier > 4) {
		return Result{}, malformed(NamePriceFit, "price tier %d outside [1,4]", *c.PriceTier)
	}
	if c.AvgPricePerPerson != nil && (math.IsNaN(*c.AvgPricePerPerson) || *c.AvgPricePerPerson < 0) {
		return Result{}, malformed(NamePriceFit, "negative price %v", *c.AvgPricePerPerson)
	}

	if q.Budget != nil && *q.Budget > 0 && c.AvgPricePerPerson != nil {
		party := q.EffectivePartySize()
		total := *c.AvgPricePerPerson * float64(party)
		v := clamp((*q.Budget-total)/(*q.Budget), 0, 1)
		return Result{Value: v, Raw: fmt.Sprintf("$%.2f for %d of $%.2f budget", total, party, *q.Budget)}, nil
	}

	if c.PriceTier == nil {
		return neutral("price unknown"), nil
	}
	tier := float64(*c.PriceTier)
	if q.PriceCeiling != nil && *q.PriceCeiling > 0 {
		ceiling := float64(*q.PriceCeiling)
		v := clamp(1-(tier-1)/ceiling, 0, 1)
		return Result{Value: v, Raw: fmt.Sprintf("tier %d of ceiling %d", *c.PriceTier, *q.PriceCeiling)}, nil
	}
	return Result{Value: 1 - (tier-1)/3, Raw: fmt.Sprintf("tier %d", *c.PriceTier)}, nil
}

// ProximityCriterion favours nearby restaurants. With a query origin and
// candidate coordinates it uses great-circle distance against HorizonKm;
// otherwise it falls back to the distance from the city center in miles.
type ProximityCriterion struct {
	HorizonKm float64
}

// centerHorizonMiles is the distance from the center at which the
// fallback score reaches zero.
const centerHorizonMiles = 2.0

func (ProximityCriterion) Name() string { return NameProximity }

func (p ProximityCriterion) Score(q *models.Query, c *models.Candidate) (Result, error) {
	if c.Coordinates != nil && !validCoordinates(*c.Coordinates) {
		return Result{}, malformed(NameProximity, "coordinates %v,%v out of range", c.Coordinates.Lat, c.Coordinates.Lon)
	}
	if c.DistanceFromCenter != nil && (math.IsNaN(*c.DistanceFromCenter) || *c.DistanceFromCenter < 0) {
		return Result{}, malformed(NameProximity, "negative distance %v", *c.DistanceFromCenter)
	}

	if q.Origin != nil && c.Coordinates != nil {
		horizon := p.HorizonKm
		if horizon <= 0 {
			horizon = 5
		}
		km := haversineKm(*q.Origin, *c.Coordinates)
		return Result{Value: clamp(1-km/horizon, 0, 1), Raw: fmt.Sprintf("%.2f km", km)}, nil
	}
	if c.DistanceFromCenter != nil {
		d := *c.DistanceFromCenter
		return Result{Value: clamp(1-d/centerHorizonMiles, 0, 1), Raw: fmt.Sprintf("%.1f mi from center", d)}, nil
	}
	return neutral("location unknown"), nil
}

// CuisineMatchCriterion rewards a primary-cuisine match over a secondary one.
type CuisineMatchCriterion struct{}

func (CuisineMatchCriterion) Name() string { return NameCuisineMatch }

func (CuisineMatchCriterion) Score(q *models.Query, c *models.Candidate) (Result, error) {
	want := strings.TrimSpace(q.Cuisine)
	if want == "" {
		return neutral("no cuisine requested"), nil
	}
	if len(c.Cuisines) == 0 {
		return neutral("cuisine unknown"), nil
	}
	if strings.EqualFold(c.PrimaryCuisine(), want) {
		return Result{Value: 1.0, Raw: "primary: " + c.PrimaryCuisine()}, nil
	}
	if c.HasCuisine(want) {
		return Result{Value: 0.8, Raw: "secondary: " + strings.Join(c.Cuisines, ",")}, nil
	}
	return Result{Value: 0, Raw: "no match: " + strings.Join(c.Cuisines, ",")}, nil
}

// AmbienceCriterion scores window seating and views. When the query names
// views, the score is the share of requested views on offer; otherwise
// garden and street views earn a fixed bonus.
type AmbienceCriterion struct{}

func (AmbienceCriterion) Name() string { return NameAmbience }

func (AmbienceCriterion) Score(q *models.Query, c *models.Candidate) (Result, error) {
	if c.WindowSeating == nil {
		return neutral("seating unknown"), nil
	}
	views := strings.Join(c.WindowViews, ",")
	if !*c.WindowSeating {
		if q.WantsWindow() {
			return Result{Value: 0, Raw: "no window seating"}, nil
		}
		return Result{Value: 0.25, Raw: "no window seating"}, nil
	}
	if len(q.Views) > 0 {
		matched := 0
		for _, v := range q.Views {
			if c.HasView(v) {
				matched++
			}
		}
		v := 0.5 + 0.5*float64(matched)/float64(len(q.Views))
		return Result{Value: v, Raw: fmt.Sprintf("window, %d/%d views (%s)", matched, len(q.Views), views)}, nil
	}
	v := 0.5
	if c.HasView("garden") {
		v += 1.0 / 3
	}
	if c.HasView("street") {
		v += 1.0 / 6
	}
	return Result{Value: clamp(v, 0, 1), Raw: "window (" + views + ")"}, nil
}

func validCoordinates(c models.Coordinates) bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180 &&
		!math.IsNaN(c.Lat) && !math.IsNaN(c.Lon)
}

func haversineKm(a, b models.Coordinates) float64 {
	const earthRadiusKm = 6371.0

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
