package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mekanizma/modli/backend/internal/models"
	"github.com/rs/zerolog"
)

type StatusRepository struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

func NewStatusRepository(pool *pgxpool.Pool, logger *zerolog.Logger) *StatusRepository {
	return &StatusRepository{pool: pool, logger: logger}
}

func (r *StatusRepository) Create(ctx context.Context, clientName string) (*models.StatusCheck, error) {
	check := &models.StatusCheck{
		ID:         uuid.New(),
		ClientName: clientName,
		Timestamp:  time.Now().UTC(),
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO status_checks (id, client_name, timestamp) VALUES ($1, $2, $3)`,
		check.ID, check.ClientName, check.Timestamp,
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to create status check")
		return nil, fmt.Errorf("failed to create status check: %w", err)
	}

	return check, nil
}

func (r *StatusRepository) List(ctx context.Context, limit int) ([]models.StatusCheck, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, client_name, timestamp FROM status_checks ORDER BY timestamp DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list status checks")
		return nil, fmt.Errorf("failed to list status checks: %w", err)
	}
	defer rows.Close()

	checks := make([]models.StatusCheck, 0)
	for rows.Next() {
		var c models.StatusCheck
		if err := rows.Scan(&c.ID, &c.ClientName, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan status check: %w", err)
		}
		checks = append(checks, c)
	}

	return checks, rows.Err()
}
