package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mekanizma/modli/backend/internal/dtos"
	"github.com/mekanizma/modli/backend/internal/errs"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	BucketWardrobe = "wardrobe"
	BucketProfiles = "profiles"

	thumbnailSize = 300
	jpegQuality   = 85
)

type ImageService struct {
	buckets map[string]ImageBucket
	logger  *zerolog.Logger
	now     func() time.Time
}

// NewImageService takes the Storage buckets keyed by name. An empty map
// means Storage is not configured.
func NewImageService(buckets map[string]ImageBucket, logger *zerolog.Logger) *ImageService {
	return &ImageService{
		buckets: buckets,
		logger:  logger,
		now:     time.Now,
	}
}

// Upload stores the image as JPEG together with a square thumbnail.
func (s *ImageService) Upload(ctx context.Context, userID, bucketName, filename string, data []byte) (*dtos.UploadImageResponse, error) {
	if len(s.buckets) == 0 {
		return nil, errs.NotConfigured("Storage")
	}
	if bucketName != BucketWardrobe && bucketName != BucketProfiles {
		return nil, errs.Validation("bucket must be wardrobe or profiles")
	}
	bucket, ok := s.buckets[bucketName]
	if !ok {
		return nil, errs.NotConfigured("bucket " + bucketName)
	}

	user := pathSegment(userID)
	if user == "" {
		return nil, errs.Validation("user_id is required")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Validation(fmt.Sprintf("unsupported image: %v", err))
	}

	full, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}
	thumb, err := encodeJPEG(Thumbnail(img, thumbnailSize))
	if err != nil {
		return nil, err
	}

	name := s.objectName(filename)
	fullPath := fmt.Sprintf("%s/%s.jpg", user, name)
	thumbPath := fmt.Sprintf("%s/thumbnails/%s.jpg", user, name)

	if err := bucket.Upload(ctx, fullPath, full, jpegContentType); err != nil {
		s.logger.Error().Err(err).Str("path", fullPath).Msg("failed to upload image")
		return nil, errs.Upstream("storage", err)
	}
	if err := bucket.Upload(ctx, thumbPath, thumb, jpegContentType); err != nil {
		s.logger.Error().Err(err).Str("path", thumbPath).Msg("failed to upload thumbnail")
		return nil, errs.Upstream("storage", err)
	}

	return &dtos.UploadImageResponse{
		Success:      true,
		FullURL:      bucket.PublicURL(fullPath),
		ThumbnailURL: bucket.PublicURL(thumbPath),
	}, nil
}

func (s *ImageService) objectName(filename string) string {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	if name := pathSegment(base); name != "" {
		return name
	}
	return fmt.Sprintf("%d_%s", s.now().Unix(), uuid.NewString()[:8])
}

// Thumbnail center-crops img to a square and scales it to size x size.
func Thumbnail(img image.Image, size int) image.Image {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)
	return dst
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// pathSegment keeps only characters that are safe in a Storage object name.
func pathSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, strings.TrimSpace(s))
}
