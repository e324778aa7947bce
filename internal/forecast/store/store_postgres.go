package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hemolink/internal/forecast"
)

// PostgresForecastStore persists demand counters in demand_forecasts. It uses
// the pgx pool so refreshes go out as one batch.
type PostgresForecastStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresForecastStore {
	return &PostgresForecastStore{pool: pool}
}

func (s *PostgresForecastStore) List(ctx context.Context) ([]forecast.RawForecast, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT blood_type, short_term_demand, medium_term_demand, urgency_level, last_updated
		FROM demand_forecasts
	`)
	if err != nil {
		return nil, fmt.Errorf("query forecasts: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (forecast.RawForecast, error) {
		var (
			r             forecast.RawForecast
			short, medium float64
		)
		if err := row.Scan(&r.BloodType, &short, &medium, &r.Urgency, &r.LastUpdated); err != nil {
			return forecast.RawForecast{}, err
		}
		r.ShortTermDemand = short
		r.MediumTermDemand = medium
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan forecasts: %w", err)
	}
	return records, nil
}

func (s *PostgresForecastStore) Upsert(ctx context.Context, forecasts []forecast.Forecast) error {
	batch := &pgx.Batch{}
	for _, f := range forecasts {
		batch.Queue(`
			INSERT INTO demand_forecasts (blood_type, short_term_demand, medium_term_demand, urgency_level, last_updated)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (blood_type) DO UPDATE SET
				short_term_demand = EXCLUDED.short_term_demand,
				medium_term_demand = EXCLUDED.medium_term_demand,
				urgency_level = EXCLUDED.urgency_level,
				last_updated = EXCLUDED.last_updated
		`, f.BloodType.String(), f.ShortTermDemand, f.MediumTermDemand, f.Urgency.String(), f.LastUpdated)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin forecast upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert forecasts: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit forecast upsert: %w", err)
	}
	return nil
}
