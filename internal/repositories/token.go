package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/mekanizma/modli/backend/internal/errs"
	"github.com/mekanizma/modli/backend/internal/push"
	"github.com/mekanizma/modli/backend/internal/supabase"
	"github.com/rs/zerolog"
)

const (
	pushTokensTable  = "push_tokens"
	defaultPageSize  = 1000
	tokenStoreOp     = "token store"
	pushTokenColumns = "user_id,push_token,platform,updated_at"
)

type pushTokenRow struct {
	UserID    string     `json:"user_id"`
	PushToken *string    `json:"push_token"`
	Platform  *string    `json:"platform"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// TokenRepository reads the push_tokens table the mobile app registers
// devices into. It never writes.
type TokenRepository struct {
	client   *supabase.Client
	logger   *zerolog.Logger
	pageSize int
}

func NewTokenRepository(client *supabase.Client, logger *zerolog.Logger) *TokenRepository {
	return &TokenRepository{
		client:   client,
		logger:   logger,
		pageSize: defaultPageSize,
	}
}

// ListDestinations returns every device of userID, or of all users when
// userID is nil. Empty tokens are dropped and duplicates collapse onto the
// first (most recently updated) row. Pages are ordered by a unique key so
// rows with equal updated_at are neither skipped nor repeated across pages.
// Any store failure fails the whole call.
func (r *TokenRepository) ListDestinations(ctx context.Context, userID *string) ([]push.Destination, error) {
	seen := make(map[string]struct{})
	dests := make([]push.Destination, 0)

	for offset := 0; ; offset += r.pageSize {
		q := r.client.From(pushTokensTable).
			Select(pushTokenColumns).
			NotNull("push_token").
			Order("updated_at", false).
			Order("push_token", true).
			Order("user_id", true).
			Limit(r.pageSize).
			Offset(offset)
		if userID != nil {
			q = q.Eq("user_id", *userID)
		}

		resp, err := q.Get(ctx)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to query push tokens")
			return nil, errs.Upstream(tokenStoreOp, err)
		}
		if err := resp.Err(); err != nil {
			r.logger.Error().Err(err).Int("status", resp.StatusCode).Msg("push token query rejected")
			return nil, errs.Upstream(tokenStoreOp, err)
		}

		var rows []pushTokenRow
		if err := resp.JSON(&rows); err != nil {
			return nil, errs.Upstream(tokenStoreOp, fmt.Errorf("failed to decode push tokens: %w", err))
		}

		for _, row := range rows {
			if row.PushToken == nil || *row.PushToken == "" {
				continue
			}
			token := *row.PushToken
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}

			dest := push.Destination{Token: token, UserID: row.UserID, Platform: push.PlatformUnknown}
			if row.Platform != nil {
				dest.Platform = push.ParsePlatform(*row.Platform)
			}
			if row.UpdatedAt != nil {
				dest.UpdatedAt = *row.UpdatedAt
			}
			dests = append(dests, dest)
		}

		if len(rows) < r.pageSize {
			break
		}
	}

	return dests, nil
}
