package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/apperrors"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
)

// ImageStore persists a decoded recipe image and returns its public URL.
type ImageStore interface {
	Save(ctx context.Context, data []byte, contentType string) (string, error)
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DecodeImage parses a base64 data URI such as "data:image/png;base64,iVBO...".
func DecodeImage(dataURI string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(dataURI, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, "", apperrors.Validation("image", "image must be a base64 encoded data URI")
	}

	contentType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if _, ok := imageExtensions[contentType]; !ok {
		return nil, "", apperrors.Validation("image", fmt.Sprintf("unsupported image type %q", contentType))
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return nil, "", apperrors.Validation("image", "image is not valid base64")
	}
	return data, contentType, nil
}

func imageKey(contentType string) string {
	return path.Join("recipes", "images", uuid.NewString()+imageExtensions[contentType])
}

// S3ImageStore uploads images to a bucket behind a circuit breaker so an S3
// outage fails recipe writes fast instead of holding requests open.
type S3ImageStore struct {
	s3      *config.S3Config
	breaker *gobreaker.CircuitBreaker[string]
}

func NewS3ImageStore(s3Config *config.S3Config) *S3ImageStore {
	settings := gobreaker.Settings{
		Name:        "s3-images",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
	return &S3ImageStore{
		s3:      s3Config,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

func (s *S3ImageStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	key := imageKey(contentType)
	url, err := s.breaker.Execute(func() (string, error) {
		_, err := s.s3.Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.s3.BucketName),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return "", fmt.Errorf("failed to upload to S3: %w", err)
		}
		return s.s3.PublicURL(key), nil
	})
	if err != nil {
		metrics.ImageUploads.WithLabelValues("failed").Inc()
		logging.Ctx(ctx).Error().Err(err).Str("key", key).Msg("image upload failed")
		return "", apperrors.Unavailable("image storage is unavailable", err)
	}

	metrics.ImageUploads.WithLabelValues("stored").Inc()
	logging.Ctx(ctx).Debug().Str("url", url).Msg("uploaded recipe image")
	return url, nil
}

// LocalImageStore writes images under dir and serves them from urlPrefix.
type LocalImageStore struct {
	dir       string
	urlPrefix string
}

func NewLocalImageStore(dir, urlPrefix string) *LocalImageStore {
	return &LocalImageStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}
}

func (s *LocalImageStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	key := imageKey(contentType)
	target := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		metrics.ImageUploads.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		metrics.ImageUploads.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	metrics.ImageUploads.WithLabelValues("stored").Inc()
	return s.urlPrefix + "/" + key, nil
}
