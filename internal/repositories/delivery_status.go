package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mekanizma/modli/backend/internal/errs"
	"github.com/mekanizma/modli/backend/internal/push"
)

const (
	deliveryStatusPrefix = "push:delivery:"
	deliveryStatusTTL    = 7 * 24 * time.Hour
)

type DeliveryStatusStore struct {
	rdb *redis.Client
}

func NewDeliveryStatusStore(rdb *redis.Client) *DeliveryStatusStore {
	return &DeliveryStatusStore{rdb: rdb}
}

func (s *DeliveryStatusStore) Save(ctx context.Context, status *push.DeliveryStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery status: %w", err)
	}
	return s.rdb.Set(ctx, deliveryStatusPrefix+status.LogID, data, deliveryStatusTTL).Err()
}

func (s *DeliveryStatusStore) Get(ctx context.Context, logID string) (*push.DeliveryStatus, error) {
	data, err := s.rdb.Get(ctx, deliveryStatusPrefix+logID).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("delivery status %s: %w", logID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read delivery status: %w", err)
	}

	var status push.DeliveryStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal delivery status: %w", err)
	}
	return &status, nil
}
