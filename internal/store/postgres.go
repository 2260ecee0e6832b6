package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Concierge/internal/models"
)

// Schema creates the restaurants table used by PostgresRepository.
const Schema = `
CREATE TABLE IF NOT EXISTS restaurants (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	cuisines             TEXT[] NOT NULL DEFAULT '{}',
	locality             TEXT NOT NULL DEFAULT '',
	price_tier           INTEGER,
	avg_price_per_person DOUBLE PRECISION,
	rating               DOUBLE PRECISION,
	lat                  DOUBLE PRECISION,
	lon                  DOUBLE PRECISION,
	distance_from_center DOUBLE PRECISION,
	availability         JSONB,
	window_seating       BOOLEAN,
	window_views         TEXT[] NOT NULL DEFAULT '{}',
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS restaurants_locality_idx ON restaurants (lower(locality));
`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (s *PostgresRepository) Close() error {
	s.pool.Close()
	return nil
}

// EnsureSchema creates the restaurants table if it does not exist.
func (s *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

const restaurantColumns = `id, name, cuisines, locality,
	price_tier, avg_price_per_person, rating,
	lat, lon, distance_from_center,
	availability, window_seating, window_views`

// FetchCandidates matches locality the way LocalityMatches does: every word
// of the filter must appear as a word of the stored locality, in any order.
func (s *PostgresRepository) FetchCandidates(ctx context.Context, filter Filter) ([]models.Candidate, error) {
	words := localityWords(filter.Locality)
	if words == nil {
		words = []string{}
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+restaurantColumns+`
		FROM restaurants
		WHERE (cardinality($1::text[]) = 0
		       OR regexp_split_to_array(lower(locality), '[^a-z0-9]+') @> $1::text[])
		  AND ($2 = '' OR EXISTS (SELECT 1 FROM unnest(cuisines) AS c WHERE lower(c) = lower($2)))
		ORDER BY id`,
		words, filter.Cuisine,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCandidate returns one restaurant, or nil if it does not exist.
func (s *PostgresRepository) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1`, id)
	c, err := scanCandidate(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Upsert inserts or replaces restaurants in one transaction.
func (s *PostgresRepository) Upsert(ctx context.Context, candidates []models.Candidate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, c := range candidates {
		availabilityJSON, err := json.Marshal(c.Availability)
		if err != nil {
			return fmt.Errorf("marshal availability for %s: %w", c.ID, err)
		}
		var lat, lon *float64
		if c.Coordinates != nil {
			lat, lon = &c.Coordinates.Lat, &c.Coordinates.Lon
		}
		cuisines := c.Cuisines
		if cuisines == nil {
			cuisines = []string{}
		}
		views := c.WindowViews
		if views == nil {
			views = []string{}
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO restaurants (`+restaurantColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, cuisines = EXCLUDED.cuisines, locality = EXCLUDED.locality,
				price_tier = EXCLUDED.price_tier, avg_price_per_person = EXCLUDED.avg_price_per_person,
				rating = EXCLUDED.rating, lat = EXCLUDED.lat, lon = EXCLUDED.lon,
				distance_from_center = EXCLUDED.distance_from_center, availability = EXCLUDED.availability,
				window_seating = EXCLUDED.window_seating, window_views = EXCLUDED.window_views,
				updated_at = now()`,
			c.ID, c.Name, cuisines, c.Locality,
			c.PriceTier, c.AvgPricePerPerson, c.Rating,
			lat, lon, c.DistanceFromCenter,
			availabilityJSON, c.WindowSeating, views,
		)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", c.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func scanCandidate(row pgx.Row) (models.Candidate, error) {
	var c models.Candidate
	var priceTier sql.NullInt32
	var avgPrice, rating, lat, lon, distance sql.NullFloat64
	var windowSeating sql.NullBool
	var availabilityJSON []byte

	err := row.Scan(
		&c.ID, &c.Name, &c.Cuisines, &c.Locality,
		&priceTier, &avgPrice, &rating,
		&lat, &lon, &distance,
		&availabilityJSON, &windowSeating, &c.WindowViews,
	)
	if err != nil {
		return c, err
	}
	if priceTier.Valid {
		c.PriceTier = models.IntPtr(int(priceTier.Int32))
	}
	if avgPrice.Valid {
		c.AvgPricePerPerson = models.Float64Ptr(avgPrice.Float64)
	}
	if rating.Valid {
		c.Rating = models.Float64Ptr(rating.Float64)
	}
	if lat.Valid && lon.Valid {
		c.Coordinates = &models.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
	}
	if distance.Valid {
		c.DistanceFromCenter = models.Float64Ptr(distance.Float64)
	}
	if windowSeating.Valid {
		c.WindowSeating = models.BoolPtr(windowSeating.Bool)
	}
	if availabilityJSON != nil {
		if err := json.Unmarshal(availabilityJSON, &c.Availability); err != nil {
			return c, fmt.Errorf("decode availability for %s: %w", c.ID, err)
		}
	}
	return c, nil
}
