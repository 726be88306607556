package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrilink/crm-sync/internal/domain"
)

// RecordRepository abstracts the document store holding registration intakes.
// FetchPending returns a snapshot of pending records at call time;
// MarkInProgress is the single source of truth that a record has been seen
// and must be written even when downstream CRM steps fail.
type RecordRepository interface {
	FetchPending(ctx context.Context) ([]domain.PendingRecord, error)
	MarkInProgress(ctx context.Context, recordID string) error
}

type recordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository returns a Postgres-backed implementation.
func NewRecordRepository(pool *pgxpool.Pool) RecordRepository {
	return &recordRepository{pool: pool}
}

func (r *recordRepository) FetchPending(ctx context.Context) ([]domain.PendingRecord, error) {
	const query = `
        SELECT id, user_ref, status, farm_name, farm_size, location_name,
               latitude, longitude, crops, fertilizers, details, created_at
        FROM registration_requests
        WHERE status = $1
        ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, domain.RecordStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.PendingRecord
	for rows.Next() {
		var rec domain.PendingRecord
		var fertilizers []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.UserRef,
			&rec.Status,
			&rec.FarmName,
			&rec.FarmSize,
			&rec.LocationName,
			&rec.Latitude,
			&rec.Longitude,
			&rec.Crops,
			&fertilizers,
			&rec.Details,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(fertilizers) > 0 {
			if err := json.Unmarshal(fertilizers, &rec.Fertilizers); err != nil {
				return nil, fmt.Errorf("decode fertilizers for record %s: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *recordRepository) MarkInProgress(ctx context.Context, recordID string) error {
	const query = `
        UPDATE registration_requests
        SET status = $1, updated_at = NOW()
        WHERE id = $2`

	cmd, err := r.pool.Exec(ctx, query, domain.RecordStatusInProgress, recordID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
