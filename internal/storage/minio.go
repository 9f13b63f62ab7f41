package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrIncompleteOptions is returned by New when the endpoint or bucket is missing.
var ErrIncompleteOptions = errors.New("storage endpoint and bucket are required")

// Options describes the bucket results are uploaded to.
type Options struct {
	// Endpoint is the host[:port] of the S3-compatible service.
	Endpoint string

	// Region is the bucket region. Empty uses the server default.
	Region string

	// Bucket is the bucket name. It is created if missing.
	Bucket string

	// AccessKey and SecretKey are the static credentials.
	AccessKey string
	SecretKey string

	// UseSSL selects https.
	UseSSL bool

	// Prefix is prepended to every object key.
	Prefix string
}

// Store uploads files into one bucket.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// New connects to the object store and makes sure the bucket exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, ErrIncompleteOptions
	}

	cli, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", opts.Bucket, err)
		}
	}

	return &Store{client: cli, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// Upload stores the file at localPath under key and returns its URL.
// The URL is only reachable without credentials if the bucket is public.
func (s *Store) Upload(ctx context.Context, localPath, key string) (string, error) {
	_, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", localPath, err)
	}

	endpoint := s.client.EndpointURL()
	return fmt.Sprintf("%s://%s/%s/%s", endpoint.Scheme, endpoint.Host, s.bucket, key), nil
}

// ObjectKey returns the key a result file is stored under:
// prefix/YYYY/MM/DD/HHMMSS-<file name>, with the time in UTC.
func (s *Store) ObjectKey(startedAt time.Time, localPath string) string {
	return ObjectKey(s.prefix, startedAt, localPath)
}

// ObjectKey builds an object key from a prefix, a timestamp and a file path.
func ObjectKey(prefix string, startedAt time.Time, localPath string) string {
	t := startedAt.UTC()
	name := t.Format("150405") + "-" + filepath.Base(localPath)
	key := path.Join(t.Format("2006"), t.Format("01"), t.Format("02"), name)

	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// contentType returns the MIME type for a result file.
func contentType(localPath string) string {
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".md":
		return "text/markdown"
	default:
		return "application/octet-stream"
	}
}
