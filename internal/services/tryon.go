package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mekanizma/modli/backend/internal/dtos"
	"github.com/mekanizma/modli/backend/internal/metrics"
	"github.com/rs/zerolog"
)

const jpegContentType = "image/jpeg"

// ImageBucket is a Storage bucket that serves public URLs.
type ImageBucket interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(path string) string
}

type TryOnService struct {
	fal    *FalClient
	bucket ImageBucket
	logger *zerolog.Logger
	now    func() time.Time
}

// NewTryOnService builds the try-on flow. bucket is nil when Storage is not
// configured, in which case the provider URL is returned as is.
func NewTryOnService(fal *FalClient, bucket ImageBucket, logger *zerolog.Logger) *TryOnService {
	return &TryOnService{
		fal:    fal,
		bucket: bucket,
		logger: logger,
		now:    time.Now,
	}
}

// TryOn never returns an error; failures are reported in the response body.
func (s *TryOnService) TryOn(ctx context.Context, req dtos.TryOnRequest) dtos.TryOnResponse {
	start := s.now()

	s.logger.Info().
		Str("user_id", req.UserID).
		Str("category", req.ClothingCategory).
		Bool("free_trial", req.IsFreeTrial).
		Msg("try-on request")

	imageURL, err := s.fal.Generate(ctx, req.UserImage, req.ClothingImage)
	if err != nil {
		return s.fail(err, start)
	}

	data, err := s.fal.FetchImage(ctx, imageURL)
	if err != nil {
		return s.fail(err, start)
	}

	if s.bucket == nil {
		metrics.RecordTryOn("provider_url", time.Since(start))
		return dtos.TryOnResponse{Success: true, ResultImage: imageURL}
	}

	path := s.objectPath(req.UserID)
	if err := s.bucket.Upload(ctx, path, data, jpegContentType); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("failed to store try-on result, using provider URL")
		metrics.RecordTryOn("provider_url", time.Since(start))
		return dtos.TryOnResponse{Success: true, ResultImage: imageURL}
	}

	s.logger.Info().Str("path", path).Dur("duration", time.Since(start)).Msg("try-on result stored")
	metrics.RecordTryOn("stored", time.Since(start))
	return dtos.TryOnResponse{Success: true, ResultImage: s.bucket.PublicURL(path)}
}

func (s *TryOnService) fail(err error, start time.Time) dtos.TryOnResponse {
	s.logger.Error().Err(err).Msg("try-on failed")
	metrics.RecordTryOn("failed", time.Since(start))
	return dtos.TryOnResponse{Success: false, Error: err.Error()}
}

// objectPath is <user>/tryon/<unix>_<8 hex>.jpg.
func (s *TryOnService) objectPath(userID string) string {
	return fmt.Sprintf("%s/tryon/%d_%s.jpg", pathSegment(userID), s.now().Unix(), uuid.NewString()[:8])
}
