package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"hemolink/internal/matching"
	id "hemolink/pkg/domain"
)

// PostgresDonorStore reads donors and profiles from the donors table.
// Reads are single batched queries; the store holds no domain logic.
type PostgresDonorStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresDonorStore {
	return &PostgresDonorStore{db: db}
}

func (s *PostgresDonorStore) ListByBloodTypes(ctx context.Context, types []id.BloodType) ([]matching.Donor, error) {
	if len(types) == 0 {
		return []matching.Donor{}, nil
	}
	codes := make([]string, len(types))
	for i, t := range types {
		codes[i] = t.String()
	}

	query := `
		SELECT id, blood_type, last_donation, attributes, latitude, longitude
		FROM donors
		WHERE blood_type = ANY($1)
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(codes))
	if err != nil {
		return nil, fmt.Errorf("query donors: %w", err)
	}
	defer rows.Close()

	donors := make([]matching.Donor, 0)
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		donors = append(donors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donors: %w", err)
	}
	return donors, nil
}

func (s *PostgresDonorStore) FetchProfiles(ctx context.Context, ids []id.DonorID) (map[id.DonorID]matching.Profile, error) {
	out := make(map[id.DonorID]matching.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, donorID := range ids {
		keys[i] = donorID.String()
	}

	query := `
		SELECT id, first_name, last_name, email, phone
		FROM donors
		WHERE id = ANY($1)
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p       matching.Profile
			donorID string
		)
		if err := rows.Scan(&donorID, &p.FirstName, &p.LastName, &p.Email, &p.Phone); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.DonorID = id.DonorID(donorID)
		out[p.DonorID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}

// Upsert writes a donor and its profile. Used by seeding and tests.
func (s *PostgresDonorStore) Upsert(ctx context.Context, donor matching.Donor, profile matching.Profile) error {
	attributes, err := json.Marshal(donor.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	var lat, lon sql.NullFloat64
	if donor.Location != nil {
		lat = sql.NullFloat64{Float64: donor.Location.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: donor.Location.Longitude, Valid: true}
	}

	query := `
		INSERT INTO donors (id, first_name, last_name, email, phone, blood_type, last_donation, attributes, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			blood_type = EXCLUDED.blood_type,
			last_donation = EXCLUDED.last_donation,
			attributes = EXCLUDED.attributes,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude
	`
	_, err = s.db.ExecContext(ctx, query,
		donor.ID.String(),
		profile.FirstName,
		profile.LastName,
		profile.Email,
		profile.Phone,
		donor.BloodType.String(),
		donor.LastDonation,
		string(attributes),
		lat,
		lon,
	)
	if err != nil {
		return fmt.Errorf("upsert donor: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonor(row rowScanner) (matching.Donor, error) {
	var (
		d            matching.Donor
		donorID      string
		bloodType    string
		lastDonation sql.NullTime
		attributes   []byte
		lat, lon     sql.NullFloat64
	)
	if err := row.Scan(&donorID, &bloodType, &lastDonation, &attributes, &lat, &lon); err != nil {
		return matching.Donor{}, fmt.Errorf("scan donor: %w", err)
	}
	d.ID = id.DonorID(donorID)
	d.BloodType = id.BloodType(bloodType)
	if lastDonation.Valid {
		t := lastDonation.Time.In(time.UTC)
		d.LastDonation = &t
	}
	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &d.Attributes); err != nil {
			return matching.Donor{}, fmt.Errorf("decode attributes for donor %s: %w", donorID, err)
		}
	}
	if lat.Valid && lon.Valid {
		d.Location = &matching.Location{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	return d, nil
}
