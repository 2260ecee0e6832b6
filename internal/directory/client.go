// Package directory fetches restaurants from a remote directory service.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/Concierge/internal/models"
	"github.com/MikeSquared-Agency/Concierge/internal/store"
)

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type listResponse struct {
	Restaurants []restaurantResponse `json:"restaurants"`
}

type restaurantResponse struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Cuisine       string              `json:"cuisine"`
	Tags          []string            `json:"tags"`
	Neighborhood  string              `json:"neighborhood"`
	City          string              `json:"city"`
	Price         string              `json:"price"` // "$" to "$$$$"
	AvgPrice      *float64            `json:"avg_price"`
	Rating        *float64            `json:"rating"`
	Location      *location           `json:"location"`
	DistanceMiles *float64            `json:"distance_miles"`
	Slots         map[string][]string `json:"slots"`
	Window        *struct {
		Available bool     `json:"available"`
		Views     []string `json:"views"`
	} `json:"window"`
}

type location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FetchCandidates lists restaurants matching filter. The filter is sent to
// the service and applied again locally. Records without an id are skipped;
// other malformed fields are kept so scoring fails that candidate alone.
func (c *HTTPClient) FetchCandidates(ctx context.Context, filter store.Filter) ([]models.Candidate, error) {
	q := url.Values{}
	if filter.Locality != "" {
		q.Set("locality", filter.Locality)
	}
	if filter.Cuisine != "" {
		q.Set("cuisine", filter.Cuisine)
	}
	endpoint := c.baseURL + "/api/v1/restaurants"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("directory: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw listResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("directory: decode response: %w", err)
	}

	var out []models.Candidate
	for _, r := range raw.Restaurants {
		if strings.TrimSpace(r.ID) == "" {
			c.logger.Warn("skipping directory record without id", "name", r.Name)
			continue
		}
		cand, err := r.toCandidate()
		if err != nil {
			c.logger.Warn("malformed directory record", "id", r.ID, "error", err)
		}
		if filter.Matches(&cand) {
			out = append(out, cand)
		}
	}
	return out, nil
}

// toCandidate always returns the mapped candidate. A non-nil error reports a
// field that was carried through unparsed.
func (r restaurantResponse) toCandidate() (models.Candidate, error) {
	var problem error
	c := models.Candidate{
		ID:                 r.ID,
		Name:               r.Name,
		Cuisines:           cuisineTags(r.Cuisine, r.Tags),
		Locality:           joinLocality(r.Neighborhood, r.City),
		AvgPricePerPerson:  r.AvgPrice,
		Rating:             r.Rating,
		DistanceFromCenter: r.DistanceMiles,
		Availability:       r.Slots,
	}
	if r.Price != "" {
		tier, err := ParsePriceTier(r.Price)
		if err != nil {
			tier = rawTier(r.Price)
			problem = err
		}
		c.PriceTier = models.IntPtr(tier)
	}
	if r.Location != nil {
		c.Coordinates = &models.Coordinates{Lat: r.Location.Lat, Lon: r.Location.Lng}
	}
	if r.Window != nil {
		c.WindowSeating = models.BoolPtr(r.Window.Available)
		c.WindowViews = r.Window.Views
	}
	return c, problem
}

// ParsePriceTier converts a "$" to "$$$$" price label into a tier.
func ParsePriceTier(label string) (int, error) {
	label = strings.TrimSpace(label)
	if label == "" || strings.Trim(label, "$") != "" || len(label) > 4 {
		return 0, fmt.Errorf("invalid price label %q", label)
	}
	return len(label), nil
}

// rawTier keeps an out-of-range "$" count; anything else becomes tier 0.
// Both are rejected by the price criterion.
func rawTier(label string) int {
	label = strings.TrimSpace(label)
	if label != "" && strings.Trim(label, "$") == "" {
		return len(label)
	}
	return 0
}

// cuisineTags puts the primary cuisine first and drops duplicate tags.
func cuisineTags(primary string, tags []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, tag)
	}
	add(primary)
	for _, t := range tags {
		add(t)
	}
	return out
}

func joinLocality(neighborhood, city string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{neighborhood, city} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
