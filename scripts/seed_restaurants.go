// seed_restaurants.go loads a restaurant seed file into Postgres.
//
// Usage:
//
//	go run scripts/seed_restaurants.go -seed internal/store/seed/restaurants.yaml -db postgres://localhost/concierge
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/MikeSquared-Agency/Concierge/internal/models"
	"github.com/MikeSquared-Agency/Concierge/internal/store"
)

func main() {
	seedPath := flag.String("seed", "", "path to seed YAML (defaults to the embedded seed)")
	dbURL := flag.String("db", os.Getenv("CONCIERGE_DATABASE_URL"), "Postgres connection URL")
	dryRun := flag.Bool("dry-run", false, "print restaurants without writing")
	flag.Parse()

	restaurants, err := loadRestaurants(*seedPath)
	if err != nil {
		log.Fatalf("load seed: %v", err)
	}

	if *dryRun {
		for _, r := range restaurants {
			fmt.Printf("%-24s %-28s %-22s %s\n", r.ID, r.Name, r.Locality, r.Cuisines)
		}
		fmt.Printf("%d restaurants\n", len(restaurants))
		return
	}

	if *dbURL == "" {
		log.Fatal("database URL required (-db or CONCIERGE_DATABASE_URL)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := store.NewPostgresRepository(ctx, *dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	if err := db.Upsert(ctx, restaurants); err != nil {
		log.Fatalf("upsert: %v", err)
	}
	log.Printf("seeded %d restaurants", len(restaurants))
}

func loadRestaurants(path string) ([]models.Candidate, error) {
	if path == "" {
		return store.DefaultSeed()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return store.LoadSeed(data)
}
