package store

import (
	"context"
	"database/sql"
	"fmt"

	"hemolink/internal/inventory"
	id "hemolink/pkg/domain"
)

// PostgresUnitStore reads raw units from the blood_inventory table.
type PostgresUnitStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresUnitStore {
	return &PostgresUnitStore{db: db}
}

func (s *PostgresUnitStore) ListUnits(ctx context.Context) ([]inventory.Unit, error) {
	query := `
		SELECT id, blood_type, units, expiry_date, status
		FROM blood_inventory
		WHERE status = 'available'
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	units := make([]inventory.Unit, 0)
	for rows.Next() {
		var (
			u         inventory.Unit
			bloodType string
			status    string
			expiry    sql.NullTime
		)
		if err := rows.Scan(&u.ID, &bloodType, &u.Units, &expiry, &status); err != nil {
			return nil, fmt.Errorf("scan inventory unit: %w", err)
		}
		u.BloodType = id.BloodType(bloodType)
		u.Status = inventory.UnitStatus(status)
		if expiry.Valid {
			u.ExpiresAt = expiry.Time
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory: %w", err)
	}
	return units, nil
}

// Insert adds a unit. Used by seeding and tests.
func (s *PostgresUnitStore) Insert(ctx context.Context, u inventory.Unit) error {
	status := u.Status
	if status == "" {
		status = inventory.UnitAvailable
	}
	var expiry sql.NullTime
	if !u.ExpiresAt.IsZero() {
		expiry = sql.NullTime{Time: u.ExpiresAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blood_inventory (id, blood_type, units, expiry_date, status)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.BloodType.String(), u.Units, expiry, string(status))
	if err != nil {
		return fmt.Errorf("insert inventory unit: %w", err)
	}
	return nil
}
