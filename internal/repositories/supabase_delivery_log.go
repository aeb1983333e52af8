package repositories

import (
	"context"
	"fmt"

	"github.com/mekanizma/modli/backend/internal/models"
	"github.com/mekanizma/modli/backend/internal/supabase"
	"github.com/rs/zerolog"
)

const notificationLogsTable = "notification_logs"

// SupabaseDeliveryLogRepository keeps delivery logs in the Supabase
// notification_logs table instead of the service's own Postgres.
type SupabaseDeliveryLogRepository struct {
	client *supabase.Client
	logger *zerolog.Logger
}

func NewSupabaseDeliveryLogRepository(client *supabase.Client, logger *zerolog.Logger) *SupabaseDeliveryLogRepository {
	return &SupabaseDeliveryLogRepository{client: client, logger: logger}
}

func (r *SupabaseDeliveryLogRepository) InsertDeliveryLog(ctx context.Context, entry *models.DeliveryLog) error {
	resp, err := r.client.From(notificationLogsTable).Insert(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to insert delivery log: %w", err)
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("failed to insert delivery log: %w", err)
	}
	return nil
}

func (r *SupabaseDeliveryLogRepository) ListDeliveryLogs(ctx context.Context, page, pageSize int) ([]models.DeliveryLog, int, error) {
	resp, err := r.client.From(notificationLogsTable).
		Select("*").
		Order("created_at", false).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		CountExact().
		Get(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list delivery logs: %w", err)
	}
	if err := resp.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list delivery logs: %w", err)
	}

	logs := make([]models.DeliveryLog, 0)
	if err := resp.JSON(&logs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode delivery logs: %w", err)
	}

	total := resp.Total()
	if total < 0 {
		total = (page-1)*pageSize + len(logs)
	}
	return logs, total, nil
}
