package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rswarnkar/converse/internal/models"
)

const callHistoryLimit = 50

type PostgresCallRecordRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCallRecordRepository(pool *pgxpool.Pool) *PostgresCallRecordRepository {
	return &PostgresCallRecordRepository{pool: pool}
}

func (r *PostgresCallRecordRepository) Create(ctx context.Context, record *models.CallRecord) error {
	query := `INSERT INTO call_records (chat_id, caller_id, target_id, is_video, status)
              VALUES ($1, $2, $3, $4, $5)
              RETURNING id, created_at`

	if record.Status == "" {
		record.Status = models.CallCompleted
	}

	err := r.pool.QueryRow(ctx, query,
		record.ChatID, record.CallerID, record.TargetID, record.IsVideo, record.Status).
		Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create call record: %w", err)
	}
	return nil
}

func (r *PostgresCallRecordRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CallStatus, duration int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE call_records SET status = $2, duration = $3 WHERE id = $1`,
		id, status, duration)
	if err != nil {
		return fmt.Errorf("failed to update call status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HistoryForUser returns the newest calls where the user was caller or
// target, with both sides' display fields hydrated.
func (r *PostgresCallRecordRepository) HistoryForUser(ctx context.Context, userID uuid.UUID) ([]*models.CallRecord, error) {
	query := `SELECT cr.id, cr.chat_id, cr.caller_id, cr.target_id, cr.is_video, cr.status, cr.duration, cr.created_at,
                     caller.id, caller.name, caller.avatar,
                     target.id, target.name, target.avatar
              FROM call_records cr
              JOIN users caller ON caller.id = cr.caller_id
              LEFT JOIN users target ON target.id = cr.target_id
              WHERE cr.caller_id = $1 OR cr.target_id = $1
              ORDER BY cr.created_at DESC
              LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, callHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query call history: %w", err)
	}
	defer rows.Close()

	var records []*models.CallRecord
	for rows.Next() {
		var rec models.CallRecord
		var caller models.UserSummary
		var targetID *uuid.UUID
		var targetName, targetAvatar *string

		err := rows.Scan(
			&rec.ID, &rec.ChatID, &rec.CallerID, &rec.TargetID, &rec.IsVideo, &rec.Status, &rec.Duration, &rec.CreatedAt,
			&caller.ID, &caller.Name, &caller.Avatar,
			&targetID, &targetName, &targetAvatar,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call record: %w", err)
		}

		rec.Caller = &caller
		if targetID != nil {
			rec.Target = &models.UserSummary{ID: *targetID}
			if targetName != nil {
				rec.Target.Name = *targetName
			}
			if targetAvatar != nil {
				rec.Target.Avatar = *targetAvatar
			}
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating call records: %w", err)
	}
	return records, nil
}
