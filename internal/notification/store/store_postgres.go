package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"hemolink/internal/notification"
	id "hemolink/pkg/domain"
	"hemolink/pkg/platform/sentinel"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// PostgresDeliveryStore appends delivery records to the delivery_records
// table. The partial unique index on idempotency_key enforces at-most-once
// sent records per request and donor.
type PostgresDeliveryStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresDeliveryStore {
	return &PostgresDeliveryStore{db: db}
}

func (s *PostgresDeliveryStore) Append(ctx context.Context, r notification.DeliveryRecord) error {
	query := `
		INSERT INTO delivery_records (
			id, recipient_id, request_id, subject, message, event_type,
			blood_type, units, is_bulk, status, error, idempotency_key,
			channel, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.RecipientID.String(), r.RequestID.String(), r.Subject, r.Message,
		string(r.EventType), r.BloodType.String(), r.Units, r.Bulk, string(r.Status),
		nullString(r.Error), nullString(r.IdempotencyKey), r.Channel, r.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("append delivery %s: %w", r.IdempotencyKey, sentinel.ErrConflict)
		}
		return fmt.Errorf("append delivery: %w", err)
	}
	return nil
}

func (s *PostgresDeliveryStore) DeliveredKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	out := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	query := `
		SELECT idempotency_key
		FROM delivery_records
		WHERE idempotency_key = ANY($1) AND status = 'sent'
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("query delivered keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan delivered key: %w", err)
		}
		out[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivered keys: %w", err)
	}
	return out, nil
}

// ListByRequest returns the records of one request, oldest first.
func (s *PostgresDeliveryStore) ListByRequest(ctx context.Context, requestID id.RequestID) ([]notification.DeliveryRecord, error) {
	query := `
		SELECT id, recipient_id, request_id, subject, message, event_type,
			blood_type, units, is_bulk, status, error, idempotency_key,
			channel, created_at
		FROM delivery_records
		WHERE request_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, requestID.String())
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	records := make([]notification.DeliveryRecord, 0)
	for rows.Next() {
		var r notification.DeliveryRecord
		var recipient, request, eventType, bt, status string
		var errText, key sql.NullString
		if err := rows.Scan(&r.ID, &recipient, &request, &r.Subject, &r.Message, &eventType,
			&bt, &r.Units, &r.Bulk, &status, &errText, &key, &r.Channel, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		r.RecipientID = id.DonorID(recipient)
		r.RequestID = id.RequestID(request)
		r.EventType = notification.EventType(eventType)
		r.BloodType = id.BloodType(bt)
		r.Status = notification.Status(status)
		r.Error = errText.String
		r.IdempotencyKey = key.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return records, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
