package snapshot

import (
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig addresses the bucket holding mirrored exports.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

// MinioMirror stores export files in an S3-compatible bucket.
type MinioMirror struct {
	client *minio.Client
	bucket string
	region string
	prefix string
}

// NewMinioMirror creates a mirror client. The bucket is created on first Put
// when it does not exist.
func NewMinioMirror(cfg MinioConfig) (*MinioMirror, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	// Accept both host:port and full URLs.
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "tmdb-exports"
	}
	return &MinioMirror{client: client, bucket: cfg.Bucket, region: cfg.Region, prefix: prefix}, nil
}

func (m *MinioMirror) key(name string) string {
	return path.Join(m.prefix, name)
}

// Get downloads name into dst when the object exists.
func (m *MinioMirror) Get(ctx context.Context, name, dst string) (bool, error) {
	err := m.client.FGetObject(ctx, m.bucket, m.key(name), dst, minio.GetObjectOptions{})
	if err == nil {
		return true, nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		return false, nil
	}
	return false, fmt.Errorf("failed to get %s from mirror: %w", name, err)
}

// Put uploads the local file src as name.
func (m *MinioMirror) Put(ctx context.Context, name, src string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	_, err = m.client.FPutObject(ctx, m.bucket, m.key(name), src, minio.PutObjectOptions{
		ContentType: "application/gzip",
	})
	if err != nil {
		return fmt.Errorf("failed to put %s to mirror: %w", name, err)
	}
	return nil
}
