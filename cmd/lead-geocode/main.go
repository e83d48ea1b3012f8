// Command lead-geocode backfills coordinates for leads imported without them.
// It resolves each lead's street address through the geocoding service and
// writes the best candidate back. Run it after bulk imports.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fieldops_backend/internal/geocode"
	"fieldops_backend/internal/leads/repository"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/db"
	"fieldops_backend/platform/logger"
)

func main() {
	limit := flag.Int("limit", 200, "maximum number of leads to geocode in one run")
	dryRun := flag.Bool("dry-run", false, "resolve addresses without writing coordinates")
	pause := flag.Duration("pause", time.Second, "pause between upstream lookups")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	repo := repository.New(pool)
	// One-shot runs skip the cache; each address is looked up once anyway.
	svc := geocode.NewService(nil, cfg.GetGeocodeCountryCodes(), log)

	leads, err := repo.ListMissingCoordinates(ctx, *limit)
	if err != nil {
		log.Error("failed to list leads", "error", err)
		panic("failed to list leads: " + err.Error())
	}
	log.Info("leads missing coordinates", "count", len(leads))

	updated, failed := 0, 0
	for i, lead := range leads {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			// Nominatim usage policy caps request rate.
			time.Sleep(*pause)
		}

		query := formatQuery(lead)
		results, err := svc.Search(ctx, query)
		if err != nil || len(results) == 0 {
			log.Warn("no geocode result", "leadId", lead.ID, "query", query, "error", err)
			failed++
			continue
		}

		best := results[0]
		if *dryRun {
			fmt.Printf("%s  %q -> (%f, %f)\n", lead.ID, query, best.Lat, best.Lng)
			updated++
			continue
		}

		if err := repo.UpdateCoordinates(ctx, lead.ID, best.Lat, best.Lng); err != nil {
			log.Error("failed to update lead coordinates", "leadId", lead.ID, "error", err)
			failed++
			continue
		}
		updated++
	}

	log.Info("backfill complete", "updated", updated, "failed", failed, "dryRun", *dryRun)
}

func formatQuery(lead repository.Lead) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{lead.AddressStreet, lead.AddressCity, lead.AddressState, lead.AddressZip} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
