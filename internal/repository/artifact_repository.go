package repository

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/edujury/internal/config"
)

// ArtifactRepository stores binary evaluation artifacts such as recorded
// audio feedback.
type ArtifactRepository interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// AudioKey is the object key for an audio recording attached to an evaluation.
func AudioKey(evaluationID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("evaluations/%s/audio/%s%s", evaluationID, uuid.New().String(), ext)
}

type minioArtifactRepository struct {
	client    *minio.Client
	bucket    string
	region    string
	publicURL string
	logger    zerolog.Logger

	ensureMu      sync.Mutex
	bucketEnsured bool
}

func NewMinIOArtifactRepository(cfg config.StorageConfig, logger zerolog.Logger) (ArtifactRepository, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	repo := &minioArtifactRepository{
		client:    client,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		logger:    logger,
	}

	// Startup does not fail when MinIO is still coming up; uploads retry the
	// bucket check on demand.
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := repo.ensureBucket(ctx); err != nil {
		logger.Error().Err(err).
			Str("endpoint", cfg.Endpoint).
			Str("bucket", cfg.Bucket).
			Msg("MinIO not ready during startup; will retry on demand")
	} else {
		logger.Info().
			Str("endpoint", cfg.Endpoint).
			Str("bucket", cfg.Bucket).
			Bool("ssl", cfg.UseSSL).
			Msg("Connected to MinIO")
	}

	return repo, nil
}

func (r *minioArtifactRepository) ensureBucket(ctx context.Context) error {
	r.ensureMu.Lock()
	defer r.ensureMu.Unlock()
	if r.bucketEnsured {
		return nil
	}

	backoff := 500 * time.Millisecond
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("minio not ready: %w", err)
		}

		exists, err := r.client.BucketExists(ctx, r.bucket)
		if err != nil {
			r.sleep(ctx, backoff)
			continue
		}

		if !exists {
			if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{Region: r.region}); err != nil {
				r.sleep(ctx, backoff)
				continue
			}
			r.logger.Info().Str("bucket", r.bucket).Msg("Created new bucket")
		}

		r.bucketEnsured = true
		return nil
	}
}

func (r *minioArtifactRepository) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Upload stores the object and returns the URL clients use to fetch it.
func (r *minioArtifactRepository) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if err := r.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := r.client.PutObject(ctx, r.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	r.logger.Debug().
		Str("bucket", r.bucket).
		Str("key", key).
		Str("etag", info.ETag).
		Int64("size", info.Size).
		Msg("Artifact uploaded to MinIO")

	return r.url(key), nil
}

func (r *minioArtifactRepository) Delete(ctx context.Context, key string) error {
	if err := r.ensureBucket(ctx); err != nil {
		return err
	}
	if err := r.client.RemoveObject(ctx, r.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	r.logger.Debug().Str("bucket", r.bucket).Str("key", key).Msg("Artifact deleted from MinIO")
	return nil
}

func (r *minioArtifactRepository) url(key string) string {
	base := r.publicURL
	if base == "" {
		base = strings.TrimRight(r.client.EndpointURL().String(), "/")
	}
	return base + "/" + r.bucket + "/" + key
}
