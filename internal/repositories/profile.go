package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/mekanizma/modli/backend/internal/errs"
	"github.com/mekanizma/modli/backend/internal/models"
	"github.com/mekanizma/modli/backend/internal/supabase"
	"github.com/rs/zerolog"
)

const (
	profilesTable      = "profiles"
	wardrobeItemsTable = "wardrobe_items"
	profileStoreOp     = "profile store"
)

type ProfileRepository struct {
	client *supabase.Client
	logger *zerolog.Logger
}

func NewProfileRepository(client *supabase.Client, logger *zerolog.Logger) *ProfileRepository {
	return &ProfileRepository{client: client, logger: logger}
}

// List returns one page of profiles, newest first, and the total match count.
func (r *ProfileRepository) List(ctx context.Context, page, pageSize int, search string) ([]models.UserProfile, int, error) {
	q := r.client.From(profilesTable).
		Select("*").
		Order("created_at", false).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		CountExact()

	if term := sanitizeSearch(search); term != "" {
		pattern := "*" + term + "*"
		q = q.Or("email.ilike."+pattern, "full_name.ilike."+pattern)
	}

	var users []models.UserProfile
	resp, err := r.fetch(ctx, q, &users)
	if err != nil {
		return nil, 0, err
	}

	total := resp.Total()
	if total < 0 {
		total = (page-1)*pageSize + len(users)
	}
	return users, total, nil
}

// All returns every profile, paging through the table.
func (r *ProfileRepository) All(ctx context.Context) ([]models.UserProfile, error) {
	all := make([]models.UserProfile, 0)
	for offset := 0; ; offset += defaultPageSize {
		q := r.client.From(profilesTable).
			Select("id,credits,subscription_tier,subscription_status").
			Order("id", true).
			Limit(defaultPageSize).
			Offset(offset)

		var rows []models.UserProfile
		if _, err := r.fetch(ctx, q, &rows); err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(rows) < defaultPageSize {
			return all, nil
		}
	}
}

func (r *ProfileRepository) CountWardrobeItems(ctx context.Context) (int, error) {
	return r.count(ctx, r.client.From(wardrobeItemsTable).Select("id"))
}

func (r *ProfileRepository) CountProfilesWithAvatar(ctx context.Context) (int, error) {
	return r.count(ctx, r.client.From(profilesTable).Select("id").NotNull("avatar_url"))
}

func (r *ProfileRepository) UpdateCredits(ctx context.Context, id string, credits int) (*models.UserProfile, error) {
	resp, err := r.client.From(profilesTable).Eq("id", id).Update(ctx, map[string]int{"credits": credits})
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", id).Msg("failed to update credits")
		return nil, errs.Upstream(profileStoreOp, err)
	}
	if err := resp.Err(); err != nil {
		return nil, errs.Upstream(profileStoreOp, err)
	}

	var rows []models.UserProfile
	if err := resp.JSON(&rows); err != nil {
		return nil, errs.Upstream(profileStoreOp, fmt.Errorf("failed to decode profile: %w", err))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("profile %s: %w", id, errs.ErrNotFound)
	}
	return &rows[0], nil
}

func (r *ProfileRepository) count(ctx context.Context, q *supabase.Query) (int, error) {
	var discard []struct{}
	resp, err := r.fetch(ctx, q.Limit(1).CountExact(), &discard)
	if err != nil {
		return 0, err
	}
	if total := resp.Total(); total >= 0 {
		return total, nil
	}
	return 0, errs.Upstream(profileStoreOp, fmt.Errorf("missing row count"))
}

func (r *ProfileRepository) fetch(ctx context.Context, q *supabase.Query, dst any) (*supabase.Response, error) {
	resp, err := q.Get(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("profile query failed")
		return nil, errs.Upstream(profileStoreOp, err)
	}
	if err := resp.Err(); err != nil {
		r.logger.Error().Err(err).Msg("profile query rejected")
		return nil, errs.Upstream(profileStoreOp, err)
	}
	if err := resp.JSON(dst); err != nil {
		return nil, errs.Upstream(profileStoreOp, fmt.Errorf("failed to decode profiles: %w", err))
	}
	return resp, nil
}

// sanitizeSearch drops characters that carry meaning inside a PostgREST
// or=(...) filter.
func sanitizeSearch(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case ',', '(', ')', '*', '"', '\\':
			return -1
		}
		return r
	}, s))
}
