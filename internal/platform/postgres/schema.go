package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Tables lists every table CreateSchema manages, in dependency order.
var Tables = []string{"delivery_records", "demand_forecasts", "blood_inventory", "donors"}

// CreateSchema creates all tables. Safe to call multiple times.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS donors (
    id TEXT PRIMARY KEY,
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    blood_type TEXT NOT NULL CHECK (blood_type IN ('O-','O+','A-','A+','B-','B+','AB-','AB+')),
    last_donation TIMESTAMPTZ,
    attributes JSONB NOT NULL DEFAULT '{}'::jsonb,
    latitude DOUBLE PRECISION,
    longitude DOUBLE PRECISION,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_donors_blood_type ON donors(blood_type);

CREATE TABLE IF NOT EXISTS blood_inventory (
    id TEXT PRIMARY KEY,
    blood_type TEXT NOT NULL CHECK (blood_type IN ('O-','O+','A-','A+','B-','B+','AB-','AB+')),
    units INTEGER NOT NULL CHECK (units >= 0),
    expiry_date TIMESTAMPTZ,
    status TEXT NOT NULL DEFAULT 'available'
        CHECK (status IN ('available', 'reserved', 'used', 'expired')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_blood_inventory_status ON blood_inventory(status);

CREATE TABLE IF NOT EXISTS demand_forecasts (
    blood_type TEXT PRIMARY KEY,
    short_term_demand DOUBLE PRECISION NOT NULL DEFAULT 0,
    medium_term_demand DOUBLE PRECISION NOT NULL DEFAULT 0,
    urgency_level TEXT NOT NULL DEFAULT 'low',
    last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS delivery_records (
    id UUID PRIMARY KEY,
    recipient_id TEXT NOT NULL,
    request_id TEXT NOT NULL,
    subject TEXT NOT NULL,
    message TEXT NOT NULL,
    event_type TEXT NOT NULL CHECK (event_type IN ('blood_request', 'low_stock')),
    blood_type TEXT NOT NULL,
    units INTEGER NOT NULL,
    is_bulk BOOLEAN NOT NULL DEFAULT FALSE,
    status TEXT NOT NULL CHECK (status IN ('sent', 'failed')),
    error TEXT,
    idempotency_key TEXT,
    channel TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_delivery_records_idempotency_key
    ON delivery_records(idempotency_key) WHERE idempotency_key IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_delivery_records_request_id ON delivery_records(request_id);
`
