package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/srgchrksv/pdfpodcaster/models"
)

// LocalPublisher rewrites absolute clip paths under the public root into
// site-relative URLs.
type LocalPublisher struct {
	publicRoot string
}

// NewLocalPublisher takes the directory served as the site root.
func NewLocalPublisher(publicDir string) (*LocalPublisher, error) {
	abs, err := filepath.Abs(publicDir)
	if err != nil {
		return nil, fmt.Errorf("resolve public dir: %w", err)
	}
	return &LocalPublisher{publicRoot: abs}, nil
}

func (p *LocalPublisher) Publish(_ context.Context, _ string, files models.SectionAudioMap) (models.SectionAudioMap, error) {
	out := make(models.SectionAudioMap, len(files))
	for id, file := range files {
		rel, err := PublicPath(p.publicRoot, file)
		if err != nil {
			return nil, err
		}
		out[id] = rel
	}
	return out, nil
}

// PublicPath strips everything up to and including the public root from
// file and returns a slash-separated path starting with "/".
func PublicPath(publicRoot, file string) (string, error) {
	rel, err := filepath.Rel(publicRoot, file)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is not under public root %s", file, publicRoot)
	}
	return "/" + filepath.ToSlash(rel), nil
}

// MinioPublisher uploads clips to an S3-compatible bucket and hands out
// presigned GET URLs.
type MinioPublisher struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// NewMinioPublisher connects and ensures the bucket exists.
func NewMinioPublisher(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, expiry time.Duration) (*MinioPublisher, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioPublisher{client: client, bucket: bucket, expiry: expiry}, nil
}

func (p *MinioPublisher) Publish(ctx context.Context, runID string, files models.SectionAudioMap) (models.SectionAudioMap, error) {
	out := make(models.SectionAudioMap, len(files))
	for id, file := range files {
		key := path.Join(runID, filepath.Base(file))
		if err := p.put(ctx, key, file); err != nil {
			return nil, err
		}
		u, err := p.client.PresignedGetObject(ctx, p.bucket, key, p.expiry, nil)
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", key, err)
		}
		out[id] = u.String()
	}
	return out, nil
}

func (p *MinioPublisher) put(ctx context.Context, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", file, err)
	}
	_, err = p.client.PutObject(ctx, p.bucket, key, f, info.Size(), minio.PutObjectOptions{ContentType: audioContentType(file)})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func audioContentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".opus", ".ogg":
		return "audio/ogg"
	case ".aac":
		return "audio/aac"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}
