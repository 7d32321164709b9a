// Package s3 uploads downloads to an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/gezibash/netbridge/internal/filesink"
	"github.com/gezibash/netbridge/internal/storage"
)

const (
	KeyBucket          = "bucket"
	KeyRegion          = "region"
	KeyEndpoint        = "endpoint"
	KeyPrefix          = "prefix"
	KeyAccessKeyID     = "access_key_id"
	KeySecretAccessKey = "secret_access_key"
	KeyForcePathStyle  = "force_path_style"
	KeyContentType     = "content_type"
)

func init() {
	filesink.Register("s3", NewFactory, Defaults)
}

// Defaults returns the default configuration for the S3 sink.
func Defaults() map[string]string {
	return map[string]string{
		KeyRegion:          "us-east-1",
		KeyEndpoint:        "",
		KeyPrefix:          "",
		KeyAccessKeyID:     "",
		KeySecretAccessKey: "",
		KeyForcePathStyle:  "false",
		KeyContentType:     "application/octet-stream",
	}
}

// NewFactory creates an S3 sink from a configuration map. The bucket is
// checked for access before the sink is returned.
func NewFactory(ctx context.Context, config map[string]string) (filesink.Sink, error) {
	bucket := storage.GetString(config, KeyBucket, "")
	if bucket == "" {
		return nil, storage.NewConfigError("s3", KeyBucket, "cannot be empty")
	}

	region := storage.GetString(config, KeyRegion, "us-east-1")
	endpoint := storage.GetString(config, KeyEndpoint, "")
	prefix := storage.GetString(config, KeyPrefix, "")
	accessKeyID := storage.GetString(config, KeyAccessKeyID, "")
	secretAccessKey := storage.GetString(config, KeySecretAccessKey, "")

	forcePathStyle, err := storage.GetBool(config, KeyForcePathStyle, false)
	if err != nil {
		return nil, err
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("s3", "", "failed to load AWS config", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = forcePathStyle
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return nil, storage.NewConfigErrorWithCause("s3", KeyBucket, "bucket not accessible", err)
	}

	slog.Info("s3 filesink initialized", "bucket", bucket, "region", region, "prefix", prefix)

	return &Backend{
		client:      client,
		bucket:      bucket,
		prefix:      prefix,
		contentType: storage.GetString(config, KeyContentType, "application/octet-stream"),
	}, nil
}

// Backend is an S3 implementation of filesink.Sink. Objects are buffered
// in memory and uploaded on Commit.
type Backend struct {
	client      *s3.Client
	bucket      string
	prefix      string
	contentType string
	closed      atomic.Bool
}

func (b *Backend) key(name string) string {
	return b.prefix + strings.TrimPrefix(path.Clean("/"+name), "/")
}

// Create starts buffering an object for name.
func (b *Backend) Create(_ context.Context, name string) (filesink.Writer, error) {
	if b.closed.Load() {
		return nil, filesink.ErrClosed
	}
	return &writer{b: b, key: b.key(name)}, nil
}

// Close marks the sink as closed.
func (b *Backend) Close() error {
	b.closed.Store(true)
	return nil
}

type writer struct {
	b    *Backend
	key  string
	buf  bytes.Buffer
	done bool
}

func (w *writer) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *writer) Commit(ctx context.Context) (string, error) {
	if w.done {
		return "", fmt.Errorf("s3 commit: %s already finished", w.key)
	}
	w.done = true
	if w.b.closed.Load() {
		return "", filesink.ErrClosed
	}

	_, err := w.b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.b.bucket),
		Key:         aws.String(w.key),
		Body:        bytes.NewReader(w.buf.Bytes()),
		ContentType: aws.String(w.b.contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put: %w", err)
	}
	return "s3://" + w.b.bucket + "/" + w.key, nil
}

func (w *writer) Abort() error {
	w.done = true
	w.buf.Reset()
	return nil
}
