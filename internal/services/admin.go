package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/mekanizma/modli/backend/internal/config"
	"github.com/mekanizma/modli/backend/internal/dtos"
	"github.com/mekanizma/modli/backend/internal/errs"
	"github.com/mekanizma/modli/backend/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

const (
	subscriptionActive = "active"
	tierFree           = "free"
)

type SessionManager interface {
	Create(ctx context.Context, email string) (string, error)
	Lookup(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

type ProfileSource interface {
	List(ctx context.Context, page, pageSize int, search string) ([]models.UserProfile, int, error)
	All(ctx context.Context) ([]models.UserProfile, error)
	CountWardrobeItems(ctx context.Context) (int, error)
	CountProfilesWithAvatar(ctx context.Context) (int, error)
	UpdateCredits(ctx context.Context, id string, credits int) (*models.UserProfile, error)
}

type AdminService struct {
	cfg      config.AdminConfig
	sessions SessionManager
	profiles ProfileSource
	logger   *zerolog.Logger
}

// NewAdminService wires the console. profiles is nil when Supabase is not
// configured.
func NewAdminService(cfg config.AdminConfig, sessions SessionManager, profiles ProfileSource, logger *zerolog.Logger) *AdminService {
	return &AdminService{
		cfg:      cfg,
		sessions: sessions,
		profiles: profiles,
		logger:   logger,
	}
}

// Login checks the console credentials and opens a session.
func (s *AdminService) Login(ctx context.Context, email, password string) (string, error) {
	if !s.cfg.Enabled() {
		return "", errs.NotConfigured("admin credentials")
	}

	// The hash is compared even for an unknown email so both paths cost the same.
	hashErr := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password))
	if !strings.EqualFold(strings.TrimSpace(email), s.cfg.Email) || hashErr != nil {
		s.logger.Warn().Str("email", email).Msg("admin login rejected")
		return "", errs.ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, s.cfg.Email)
	if err != nil {
		return "", err
	}
	s.logger.Info().Str("email", s.cfg.Email).Msg("admin logged in")
	return token, nil
}

func (s *AdminService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves a session token to the admin's email.
func (s *AdminService) Authenticate(ctx context.Context, token string) (string, error) {
	return s.sessions.Lookup(ctx, token)
}

func (s *AdminService) ListUsers(ctx context.Context, page, pageSize int, search string) ([]models.UserProfile, int, error) {
	if s.profiles == nil {
		return nil, 0, errs.NotConfigured("Supabase")
	}
	return s.profiles.List(ctx, page, pageSize, search)
}

func (s *AdminService) UpdateCredits(ctx context.Context, userID string, credits int) (*models.UserProfile, error) {
	if s.profiles == nil {
		return nil, errs.NotConfigured("Supabase")
	}
	if credits < 0 {
		return nil, errs.Validation("credits must be zero or more")
	}

	user, err := s.profiles.UpdateCredits(ctx, userID, credits)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", userID).Int("credits", credits).Msg("credits updated")
	return user, nil
}

// Stats aggregates the dashboard counters. The three reads run concurrently.
func (s *AdminService) Stats(ctx context.Context) (*dtos.Stats, error) {
	if s.profiles == nil {
		return nil, errs.NotConfigured("Supabase")
	}

	var (
		users    []models.UserProfile
		wardrobe int
		avatars  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.profiles.All(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		wardrobe, err = s.profiles.CountWardrobeItems(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		avatars, err = s.profiles.CountProfilesWithAvatar(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to collect stats: %w", err)
	}

	stats := summarizeUsers(users)
	stats.Images = dtos.ImageStats{Wardrobe: wardrobe, Profiles: avatars}
	return stats, nil
}

func summarizeUsers(users []models.UserProfile) *dtos.Stats {
	var stats dtos.Stats
	stats.Users.Total = len(users)

	for _, u := range users {
		if u.SubscriptionStatus != nil && *u.SubscriptionStatus == subscriptionActive {
			stats.Users.Active++
		}
		if u.SubscriptionTier != nil && *u.SubscriptionTier != "" && *u.SubscriptionTier != tierFree {
			stats.Users.Premium++
		}
		if u.Credits != nil {
			stats.Credits.Total += *u.Credits
		}
	}
	stats.Users.Free = stats.Users.Total - stats.Users.Premium

	if stats.Users.Total > 0 {
		avg := float64(stats.Credits.Total) / float64(stats.Users.Total)
		stats.Credits.Average = math.Round(avg*100) / 100
	}
	return &stats
}
