package app

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/mekanizma/modli/backend/internal/broker"
	"github.com/mekanizma/modli/backend/internal/config"
	"github.com/mekanizma/modli/backend/internal/database"
	"github.com/mekanizma/modli/backend/internal/handlers"
	"github.com/mekanizma/modli/backend/internal/push"
	"github.com/mekanizma/modli/backend/internal/repositories"
	"github.com/mekanizma/modli/backend/internal/services"
	"github.com/mekanizma/modli/backend/internal/supabase"
	"github.com/rs/zerolog"
)

type App struct {
	Logger      *zerolog.Logger
	RedisClient *redis.Client
	DB          *database.Database
	Publisher   *broker.Publisher
	Config      *config.Config

	Admin *services.AdminService

	HHandler     *handlers.HealthHandler
	MetaHandler  *handlers.MetaHandler
	TryOnHandler *handlers.TryOnHandler
	WHandler     *handlers.WeatherHandler
	UHandler     *handlers.UploadHandler
	AHandler     *handlers.AdminHandler
	NHandler     *handlers.NotificationHandler
}

// NewApp builds repositories, services and handlers on top of the shared
// infrastructure. publisher may be nil.
func NewApp(cfg *config.Config,
	log *zerolog.Logger,
	rdb *redis.Client,
	db *database.Database,
	publisher *broker.Publisher) (*App, error) {

	buckets := map[string]services.ImageBucket{}
	var (
		sb       *supabase.Client
		tokens   services.DestinationSource
		profiles services.ProfileSource
		bucket   services.ImageBucket
	)
	if cfg.Supabase.Enabled() {
		client, err := supabase.New(supabase.Config{
			URL:        cfg.Supabase.URL,
			APIKey:     cfg.Supabase.ServiceKey,
			HTTPClient: services.NewHTTPClient(cfg.Supabase.Timeout),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create supabase client: %w", err)
		}
		sb = client
		tokens = repositories.NewTokenRepository(sb, log)
		profiles = repositories.NewProfileRepository(sb, log)
		bucket = sb.Bucket(cfg.Supabase.TryOnBucket)
		buckets[services.BucketWardrobe] = sb.Bucket(services.BucketWardrobe)
		buckets[services.BucketProfiles] = sb.Bucket(services.BucketProfiles)
	} else {
		log.Warn().Msg("supabase not configured: push, storage and admin user routes are disabled")
	}

	var logStore services.DeliveryLogStore
	switch cfg.DeliveryLog.Store {
	case config.DeliveryLogSupabase:
		logStore = repositories.NewSupabaseDeliveryLogRepository(sb, log)
	default:
		logStore = repositories.NewDeliveryLogRepository(db.Pool, log)
	}

	var events services.EventPublisher
	if publisher != nil {
		events = publisher
	}

	expo := push.NewExpoClient(cfg.Expo.Endpoint, cfg.Expo.AccessToken, services.NewHTTPClient(cfg.Expo.Timeout))
	dispatcher := push.NewDispatcher(expo, push.DispatcherConfig{
		BatchSize:   cfg.Expo.BatchSize,
		Workers:     cfg.Expo.Workers,
		Timeout:     cfg.Expo.Timeout,
		DisplayName: cfg.Expo.DisplayName,
		AndroidIcon: cfg.Expo.AndroidIcon,
	}, log)

	notifications := services.NewNotificationService(
		tokens,
		dispatcher,
		services.NewDeliveryLogger(logStore, events, log),
		repositories.NewDeliveryStatusStore(rdb),
		log,
	)

	fal := services.NewFalClient(cfg.Fal.Endpoint, cfg.Fal.APIKey, services.NewHTTPClient(cfg.Fal.Timeout))
	if !fal.Configured() {
		log.Warn().Msg("FAL_KEY not set: try-on requests will fail")
	}
	tryOn := services.NewTryOnService(fal, bucket, log)

	weather := services.NewWeatherService(cfg.Weather.Endpoint, cfg.Weather.APIKey, services.NewHTTPClient(cfg.Weather.Timeout), log)
	images := services.NewImageService(buckets, log)

	sessions := repositories.NewSessionStore(rdb, cfg.Admin.SessionTTL)
	admin := services.NewAdminService(cfg.Admin, sessions, profiles, log)
	if !cfg.Admin.Enabled() {
		log.Warn().Msg("admin credentials not set: admin login is disabled")
	}

	return &App{
		Logger:      log,
		RedisClient: rdb,
		DB:          db,
		Publisher:   publisher,
		Config:      cfg,

		Admin: admin,

		HHandler:     handlers.NewHealthHandler(log, rdb, db),
		MetaHandler:  handlers.NewMetaHandler(log, repositories.NewStatusRepository(db.Pool, log)),
		TryOnHandler: handlers.NewTryOnHandler(log, tryOn),
		WHandler:     handlers.NewWeatherHandler(log, weather),
		UHandler:     handlers.NewUploadHandler(log, images, cfg.Server.MaxUploadBytes),
		AHandler:     handlers.NewAdminHandler(log, admin),
		NHandler:     handlers.NewNotificationHandler(log, rdb, notifications),
	}, nil
}
