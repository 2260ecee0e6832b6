package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		q       Query
		wantErr bool
	}{
		{"locality only", Query{Locality: "Downtown"}, false},
		{"cuisine only", Query{Cuisine: "Italian"}, false},
		{"no discriminator", Query{PriceCeiling: IntPtr(2)}, true},
		{"blank discriminator", Query{Locality: "  "}, true},
		{"ceiling too high", Query{Cuisine: "Thai", PriceCeiling: IntPtr(5)}, true},
		{"rating out of range", Query{Cuisine: "Thai", MinRating: Float64Ptr(6)}, true},
		{"bad day", Query{Cuisine: "Thai", Day: "Someday"}, true},
		{"bad view", Query{Cuisine: "Thai", Views: []string{"volcano"}}, true},
		{"bad origin", Query{Cuisine: "Thai", Origin: &Coordinates{Lat: 91}}, true},
		{"full", Query{
			Locality: "Downtown Baltimore", Cuisine: "Turkish", PriceCeiling: IntPtr(3),
			MinRating: Float64Ptr(4), Budget: Float64Ptr(65), PartySize: 2,
			Day: "Thursday", Time: "7:30 pm", Views: []string{"garden", "street"},
			Origin: &Coordinates{Lat: 39.29, Lon: -76.61},
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(&tt.q)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidQuery), "expected ErrInvalidQuery, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQueryNormalize(t *testing.T) {
	views := []string{" Garden", "STREET"}
	q := Query{Locality: " Downtown ", Day: "thursday", Time: " 7:30 pm ", Views: views}
	q.Normalize()

	assert.Equal(t, "Downtown", q.Locality)
	assert.Equal(t, "Thursday", q.Day)
	assert.Equal(t, "7:30 pm", q.Time)
	assert.Equal(t, []string{"garden", "street"}, q.Views)
	assert.Equal(t, " Garden", views[0], "caller's slice is not modified")

	q.Cuisine = "Thai"
	assert.NoError(t, ValidateQuery(&q))

	empty := Query{Cuisine: "Thai"}
	empty.Normalize()
	assert.Empty(t, empty.Day)
	assert.Nil(t, empty.Views)
}

func TestQueryCloneIsDeep(t *testing.T) {
	q := Query{
		Cuisine:          "Italian",
		PriceCeiling:     IntPtr(2),
		Views:            []string{"garden"},
		CriterionWeights: map[string]float64{"rating": 1},
	}
	c := q.Clone()
	*c.PriceCeiling = 4
	c.Views[0] = "street"
	c.CriterionWeights["rating"] = 0

	assert.Equal(t, 2, *q.PriceCeiling)
	assert.Equal(t, "garden", q.Views[0])
	assert.Equal(t, 1.0, q.CriterionWeights["rating"])
}

func TestCandidateCloneIsDeep(t *testing.T) {
	c := Candidate{
		ID:           "a",
		Cuisines:     []string{"Italian"},
		Rating:       Float64Ptr(4.5),
		Coordinates:  &Coordinates{Lat: 39.29, Lon: -76.61},
		Availability: map[string][]string{"Friday": {"7:00 pm"}},
	}
	cp := CloneCandidates([]Candidate{c})[0]
	cp.Cuisines[0] = "Thai"
	*cp.Rating = 1
	cp.Coordinates.Lat = 0
	cp.Availability["Friday"][0] = "9:00 pm"

	assert.Equal(t, "Italian", c.Cuisines[0])
	assert.Equal(t, 4.5, *c.Rating)
	assert.Equal(t, 39.29, c.Coordinates.Lat)
	assert.Equal(t, "7:00 pm", c.Availability["Friday"][0])
	assert.Nil(t, CloneCandidates(nil))
}

func TestCandidateHelpers(t *testing.T) {
	c := Candidate{
		Cuisines:     []string{"Turkish", "Mediterranean"},
		Availability: map[string][]string{"Thursday": {"7:30 pm", "8:00 pm"}},
		WindowViews:  []string{"garden"},
	}
	assert.Equal(t, "Turkish", c.PrimaryCuisine())
	assert.True(t, c.HasCuisine("mediterranean"))
	assert.False(t, c.HasCuisine("Italian"))
	assert.True(t, c.AvailableAt("thursday", "7:30PM"))
	assert.False(t, c.AvailableAt("Friday", "7:30 pm"))
	assert.True(t, c.HasView("Garden"))

	var empty Candidate
	assert.Equal(t, "", empty.PrimaryCuisine())
}

func TestLessOrdersByScoreThenID(t *testing.T) {
	a := &RankedResult{Candidate: Candidate{ID: "b"}, Score: 0.7}
	b := &RankedResult{Candidate: Candidate{ID: "a"}, Score: 0.7}
	c := &RankedResult{Candidate: Candidate{ID: "c"}, Score: 0.9}

	assert.True(t, Less(c, a))
	assert.True(t, Less(b, a))
	assert.False(t, Less(a, b))
}
