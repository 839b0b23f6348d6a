package transcript

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// Sink stores a rendered transcript and returns where it was put.
type Sink interface {
	Store(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// DirSink writes transcripts into a local directory.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) *DirSink {
	if dir = strings.TrimSpace(dir); dir == "" {
		dir = "results"
	}
	return &DirSink{dir: dir}
}

func (s *DirSink) Store(_ context.Context, name string, data []byte, _ string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", errors.Wrapf(err, "create results directory %q", s.dir)
	}

	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", errors.Wrapf(err, "write transcript %q", path)
	}
	return path, nil
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access-key-id"`
	SecretAccessKey string `mapstructure:"secret-access-key"`
	UseSSL          bool   `mapstructure:"use-ssl"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
}

// S3Sink uploads transcripts into an S3 compatible bucket.
type S3Sink struct {
	client *minio.Client
	bucket string
	region string
	prefix string
}

func NewS3Sink(cfg S3Config) (*S3Sink, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create s3 client")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	return &S3Sink{
		client: client,
		bucket: cfg.Bucket,
		region: region,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *S3Sink) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrapf(err, "check bucket %q", s.bucket)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return errors.Wrapf(err, "create bucket %q", s.bucket)
	}
	return nil
}

func (s *S3Sink) Store(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := s.objectKey(name)

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.Wrapf(err, "upload transcript %q", key)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

func (s *S3Sink) objectKey(name string) string {
	name = filepath.Base(name)
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}
