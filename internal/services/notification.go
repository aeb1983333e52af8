package services

import (
	"context"
	"time"

	"github.com/mekanizma/modli/backend/internal/errs"
	"github.com/mekanizma/modli/backend/internal/metrics"
	"github.com/mekanizma/modli/backend/internal/models"
	"github.com/mekanizma/modli/backend/internal/push"
	"github.com/rs/zerolog"
)

type DestinationSource interface {
	ListDestinations(ctx context.Context, userID *string) ([]push.Destination, error)
}

type PushDispatcher interface {
	Dispatch(ctx context.Context, n push.Notification, dests []push.Destination) push.Outcome
}

type DeliveryStatusStore interface {
	Save(ctx context.Context, status *push.DeliveryStatus) error
	Get(ctx context.Context, logID string) (*push.DeliveryStatus, error)
}

type SendResult struct {
	Log     *models.DeliveryLog
	Outcome push.Outcome
}

func (r *SendResult) Errors() []string {
	return []string(r.Log.Errors)
}

type NotificationService struct {
	destinations DestinationSource
	dispatcher   PushDispatcher
	deliveryLog  *DeliveryLogger
	statuses     DeliveryStatusStore
	logger       *zerolog.Logger
}

// NewNotificationService wires the push flow. destinations is nil when
// Supabase is not configured.
func NewNotificationService(
	destinations DestinationSource,
	dispatcher PushDispatcher,
	deliveryLog *DeliveryLogger,
	statuses DeliveryStatusStore,
	logger *zerolog.Logger,
) *NotificationService {
	return &NotificationService{
		destinations: destinations,
		dispatcher:   dispatcher,
		deliveryLog:  deliveryLog,
		statuses:     statuses,
		logger:       logger,
	}
}

// Send resolves the destinations for n, dispatches to all of them and records
// the outcome. It fails only when the token store cannot be read; partial
// delivery is reported through the result.
func (s *NotificationService) Send(ctx context.Context, n push.Notification) (*SendResult, error) {
	if s.destinations == nil {
		return nil, errs.NotConfigured("Supabase")
	}
	start := time.Now()

	dests, err := s.destinations.ListDestinations(ctx, n.UserID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load push destinations")
		return nil, err
	}
	dests = push.ClassifyAll(dests)

	outcome := s.dispatcher.Dispatch(ctx, n, dests)
	metrics.RecordDispatch(len(outcome.Sent), len(outcome.Failed), len(outcome.TransportErrors))

	entry := s.deliveryLog.Record(ctx, n, dests, outcome)

	status := push.NewDeliveryStatus(entry.ID.String(), dests, outcome)
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	if err := s.statuses.Save(saveCtx, status); err != nil {
		s.logger.Warn().Err(err).Str("log_id", entry.ID.String()).Msg("failed to cache delivery status")
	}
	cancel()

	s.logger.Info().
		Str("log_id", entry.ID.String()).
		Int("total", len(dests)).
		Int("sent", len(outcome.Sent)).
		Int("failed", len(outcome.Failed)).
		Dur("duration", time.Since(start)).
		Msg("notification dispatched")

	return &SendResult{Log: entry, Outcome: outcome}, nil
}

func (s *NotificationService) Status(ctx context.Context, logID string) (*push.DeliveryStatus, error) {
	return s.statuses.Get(ctx, logID)
}

func (s *NotificationService) Logs(ctx context.Context, page, pageSize int) ([]models.DeliveryLog, int, error) {
	return s.deliveryLog.List(ctx, page, pageSize)
}
