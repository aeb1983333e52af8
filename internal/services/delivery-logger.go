package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mekanizma/modli/backend/internal/models"
	"github.com/mekanizma/modli/backend/internal/push"
	"github.com/rs/zerolog"
)

// DeliveryLogStore is implemented by the Postgres and Supabase repositories.
// persistTimeout bounds the writes that outlive the operator's request.
const persistTimeout = 5 * time.Second

type DeliveryLogStore interface {
	InsertDeliveryLog(ctx context.Context, entry *models.DeliveryLog) error
	ListDeliveryLogs(ctx context.Context, page, pageSize int) ([]models.DeliveryLog, int, error)
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, v any) error
}

type DeliveryLogger struct {
	store     DeliveryLogStore
	publisher EventPublisher
	logger    *zerolog.Logger
}

// NewDeliveryLogger builds a logger over store. publisher may be nil.
func NewDeliveryLogger(store DeliveryLogStore, publisher EventPublisher, logger *zerolog.Logger) *DeliveryLogger {
	return &DeliveryLogger{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Record builds the redacted entry for one dispatch and persists it. Storage
// and publish failures are logged and never returned; the entry is returned
// either way. Writes ignore cancellation of ctx.
func (l *DeliveryLogger) Record(ctx context.Context, n push.Notification, dests []push.Destination, outcome push.Outcome) *models.DeliveryLog {
	entry := BuildDeliveryLog(n, dests, outcome)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := l.store.InsertDeliveryLog(ctx, entry); err != nil {
		l.logger.Warn().Err(err).Str("log_id", entry.ID.String()).Msg("failed to persist delivery log")
	}

	if l.publisher != nil {
		if err := l.publisher.PublishJSON(ctx, entry); err != nil {
			l.logger.Warn().Err(err).Str("log_id", entry.ID.String()).Msg("failed to publish delivery log")
		}
	}

	return entry
}

func (l *DeliveryLogger) List(ctx context.Context, page, pageSize int) ([]models.DeliveryLog, int, error) {
	return l.store.ListDeliveryLogs(ctx, page, pageSize)
}

func BuildDeliveryLog(n push.Notification, dests []push.Destination, outcome push.Outcome) *models.DeliveryLog {
	tokens := make(models.TokenSummaries, 0, len(dests))
	for _, d := range dests {
		tokens = append(tokens, models.TokenSummary{
			TokenPrefix: push.Redact(d.Token),
			Platform:    string(d.Platform),
			UserID:      d.UserID,
			IsExpo:      d.Classification.IsExpo,
			IsFCM:       d.Classification.IsFCMLike,
		})
	}

	errors := make(models.StringList, 0, len(outcome.TransportErrors)+len(outcome.Failed))
	errors = append(errors, outcome.TransportErrors...)
	for _, f := range outcome.Failed {
		errors = append(errors, fmt.Sprintf("%s: %s", push.Redact(f.Token), push.RedactIn(f.Error, f.Token)))
	}

	return &models.DeliveryLog{
		ID:           uuid.New(),
		Title:        n.Title,
		Body:         n.Body,
		TargetUserID: n.UserID,
		SentCount:    len(outcome.Sent),
		FailedCount:  len(outcome.Failed),
		TotalTargets: len(dests),
		Tokens:       tokens,
		Errors:       errors,
		CreatedAt:    time.Now().UTC(),
	}
}
