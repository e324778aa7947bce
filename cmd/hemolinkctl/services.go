package main

import (
	"context"
	"fmt"
	"log/slog"

	"hemolink/internal/forecast"
	forecastStore "hemolink/internal/forecast/store"
	"hemolink/internal/inventory"
	inventoryStore "hemolink/internal/inventory/store"
	"hemolink/internal/matching"
	matchingStore "hemolink/internal/matching/store"
	"hemolink/internal/platform/config"
	"hemolink/internal/platform/postgres"
	"hemolink/internal/urgency"
)

// services are built over one set of stores for a command run.
type services struct {
	ranker    *matching.Service
	inventory *inventory.Service
	forecasts *forecast.Service
	urgency   *urgency.Service
}

// opener builds the services for a command run and returns a func releasing
// their connections.
type opener func(ctx context.Context) (*services, func(), error)

type donorStore interface {
	matching.DonorStore
	matching.ProfileStore
}

func newServices(donors donorStore, units inventory.Store, forecasts forecast.Store, capPolicy matching.CapPolicy) (*services, error) {
	quiet := slog.New(slog.DiscardHandler)
	ranker, err := matching.New(donors, donors, matching.WithCapPolicy(capPolicy), matching.WithLogger(quiet))
	if err != nil {
		return nil, err
	}
	inv, err := inventory.New(units, inventory.WithLogger(quiet))
	if err != nil {
		return nil, err
	}
	fc, err := forecast.New(forecasts, forecast.WithLogger(quiet))
	if err != nil {
		return nil, err
	}
	rec, err := urgency.New(inv, fc, urgency.WithLogger(quiet))
	if err != nil {
		return nil, err
	}
	return &services{ranker: ranker, inventory: inv, forecasts: fc, urgency: rec}, nil
}

// openPostgres connects to DATABASE_URL through both Postgres handles.
func openPostgres(ctx context.Context) (*services, func(), error) {
	cfg := config.FromEnv()
	if cfg.Postgres.URL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	capPolicy, err := matching.ParseCapPolicy(cfg.Matching.CapPolicy)
	if err != nil {
		return nil, nil, err
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	closeFn := func() {
		pool.Close()
		_ = db.Close()
	}

	donors := matchingStore.NewPostgres(db)
	svc, err := newServices(donors, inventoryStore.NewPostgres(db), forecastStore.NewPostgres(pool), capPolicy)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}
