//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Concierge/internal/models"
)

func setupTestDB(t *testing.T) *PostgresRepository {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := NewPostgresRepository(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	require.NoError(t, s.EnsureSchema(ctx))
	_, _ = s.pool.Exec(ctx, "TRUNCATE restaurants")

	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, "TRUNCATE restaurants")
		s.Close()
	})
	return s
}

func TestUpsertAndFetchSeed(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	seed, err := DefaultSeed()
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, seed))

	got, err := s.FetchCandidates(ctx, Filter{Locality: "Downtown Baltimore", Cuisine: "turkish"})
	require.NoError(t, err)
	assert.Equal(t, []string{"anatolian-kitchen", "bosphorus-cafe", "istanbul-grill", "sultans-table"}, ids(got))

	all, err := s.FetchCandidates(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, len(seed))
}

func TestPostgresLocalityMatchesMemory(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	seed, err := DefaultSeed()
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, seed))
	mem := NewMemoryRepository(seed)

	for _, f := range []Filter{
		{Locality: "Downtown Baltimore"},
		{Locality: "Baltimore Downtown"},
		{Locality: "baltimore, md"},
		{Locality: "little italy", Cuisine: "Italian"},
		{Locality: "Down"},
		{Locality: "%"},
		{Locality: "down_town"},
		{Locality: "Fells Point"},
	} {
		t.Run(f.Locality, func(t *testing.T) {
			want, err := mem.FetchCandidates(ctx, f)
			require.NoError(t, err)
			got, err := s.FetchCandidates(ctx, f)
			require.NoError(t, err)
			assert.Equal(t, ids(want), ids(got))
		})
	}
}

func TestOptionalFieldsRoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	full := models.Candidate{
		ID:                 "full",
		Name:               "Full",
		Cuisines:           []string{"Italian", "Pizza"},
		Locality:           "Downtown Baltimore, MD",
		PriceTier:          models.IntPtr(2),
		AvgPricePerPerson:  models.Float64Ptr(30),
		Rating:             models.Float64Ptr(4.4),
		Coordinates:        &models.Coordinates{Lat: 39.29, Lon: -76.61},
		DistanceFromCenter: models.Float64Ptr(0.4),
		Availability:       map[string][]string{"Friday": {"7:00 pm"}},
		WindowSeating:      models.BoolPtr(true),
		WindowViews:        []string{"street"},
	}
	sparse := models.Candidate{ID: "sparse", Name: "Sparse", Cuisines: []string{"Thai"}}
	require.NoError(t, s.Upsert(ctx, []models.Candidate{full, sparse}))

	got, err := s.GetCandidate(ctx, "full")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, *got.PriceTier)
	assert.Equal(t, 4.4, *got.Rating)
	assert.Equal(t, 39.29, got.Coordinates.Lat)
	assert.True(t, got.AvailableAt("friday", "7:00 pm"))
	assert.True(t, *got.WindowSeating)

	got, err = s.GetCandidate(ctx, "sparse")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.PriceTier)
	assert.Nil(t, got.Rating)
	assert.Nil(t, got.Coordinates)
	assert.Nil(t, got.WindowSeating)

	missing, err := s.GetCandidate(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
