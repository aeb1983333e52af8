package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mekanizma/modli/backend/internal/models"
	"github.com/rs/zerolog"
)

type DeliveryLogRepository struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

func NewDeliveryLogRepository(pool *pgxpool.Pool, logger *zerolog.Logger) *DeliveryLogRepository {
	return &DeliveryLogRepository{
		pool:   pool,
		logger: logger,
	}
}

// InsertDeliveryLog appends one entry. Rows are never updated or deleted.
func (r *DeliveryLogRepository) InsertDeliveryLog(ctx context.Context, entry *models.DeliveryLog) error {
	query := `
		INSERT INTO notification_logs (
			id, title, body, target_user_id, sent_count, failed_count,
			total_targets, tokens, errors, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.Title,
		entry.Body,
		entry.TargetUserID,
		entry.SentCount,
		entry.FailedCount,
		entry.TotalTargets,
		entry.Tokens,
		entry.Errors,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("log_id", entry.ID.String()).Msg("Failed to insert delivery log")
		return fmt.Errorf("failed to insert delivery log: %w", err)
	}

	return nil
}

// ListDeliveryLogs returns one page, newest first, with the total row count.
func (r *DeliveryLogRepository) ListDeliveryLogs(ctx context.Context, page, pageSize int) ([]models.DeliveryLog, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM notification_logs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count delivery logs: %w", err)
	}

	query := `
		SELECT
			id, title, body, target_user_id, sent_count, failed_count,
			total_targets, tokens, errors, created_at
		FROM notification_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list delivery logs")
		return nil, 0, fmt.Errorf("failed to list delivery logs: %w", err)
	}
	defer rows.Close()

	logs := make([]models.DeliveryLog, 0)
	for rows.Next() {
		var entry models.DeliveryLog
		err := rows.Scan(
			&entry.ID,
			&entry.Title,
			&entry.Body,
			&entry.TargetUserID,
			&entry.SentCount,
			&entry.FailedCount,
			&entry.TotalTargets,
			&entry.Tokens,
			&entry.Errors,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan delivery log: %w", err)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate delivery logs: %w", err)
	}

	return logs, total, nil
}
