// Package s3 implements an object store on Amazon S3 or any
// S3-compatible service (MinIO, Localstack).
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/marcomacias410/ferry/pkg/store"
)

// Metrics receives timing and volume observations for S3 calls.
//
// The store never requires metrics: a nil Metrics disables collection
// with zero overhead. pkg/metrics provides a Prometheus-backed
// implementation via metrics.NewS3Metrics.
type Metrics interface {
	// ObserveOperation records one SDK call with its duration and
	// outcome. The operation is the SDK name ("PutObject", "GetObject",
	// "HeadObject", "ListObjectsV2", "HeadBucket").
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records payload bytes moved by an operation.
	RecordBytes(operation string, bytes int64)
}

// Config holds configuration for the S3 object store.
type Config struct {
	// Bucket is the S3 bucket name.
	Bucket string

	// Region is the AWS region (optional, uses SDK default if empty).
	Region string

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible services).
	Endpoint string

	// KeyPrefix is prepended to all object keys (e.g., "ferry/").
	// Should end with "/" if non-empty.
	KeyPrefix string

	// MaxRetries is the maximum number of retry attempts for transient errors.
	MaxRetries int

	// ForcePathStyle forces path-style addressing (required for Localstack/MinIO).
	ForcePathStyle bool

	// Metrics is an optional metrics collector. Nil disables collection.
	Metrics Metrics
}

// Store is an S3-backed object store.
type Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	metrics   Metrics
	closed    bool
	mu        sync.RWMutex
}

// New creates an S3 store with an existing client.
func New(client *s3.Client, config Config) *Store {
	return &Store{
		client:    client,
		bucket:    config.Bucket,
		keyPrefix: config.KeyPrefix,
		metrics:   config.Metrics,
	}
}

// NewFromConfig creates an S3 store by building an S3 client from config.
// This is the preferred constructor when you don't have an existing client.
func NewFromConfig(ctx context.Context, config Config) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if config.Region != "" {
		opts = append(opts, awsconfig.WithRegion(config.Region))
	}
	if config.MaxRetries > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(config.MaxRetries))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)

	if config.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
		})
	}
	if config.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	return New(client, config), nil
}

// fullKey returns the full S3 key for an object name.
func (s *Store) fullKey(name string) string {
	return s.keyPrefix + name
}

func (s *Store) List(ctx context.Context) ([]store.ObjectInfo, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	infos := []store.ObjectInfo{}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})

	for paginator.HasMorePages() {
		start := time.Now()
		page, err := paginator.NextPage(ctx)
		if s.metrics != nil {
			s.metrics.ObserveOperation("ListObjectsV2", time.Since(start), err)
		}
		if err != nil {
			return nil, store.NewError("list", "s3", "", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if s.keyPrefix != "" && strings.HasPrefix(key, s.keyPrefix) {
				key = key[len(s.keyPrefix):]
			}
			// Nested keys under the prefix belong to someone else.
			if key == "" || strings.Contains(key, "/") {
				continue
			}
			infos = append(infos, store.ObjectInfo{
				Name:       key,
				Size:       aws.ToInt64(obj.Size),
				ModifiedAt: aws.ToTime(obj.LastModified),
			})
		}
	}

	return infos, nil
}

func (s *Store) Stat(ctx context.Context, name string) (store.ObjectInfo, error) {
	if err := s.checkOpen(); err != nil {
		return store.ObjectInfo{}, err
	}
	if err := store.ValidateName(name); err != nil {
		return store.ObjectInfo{}, err
	}

	start := time.Now()
	resp, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(name)),
	})
	if s.metrics != nil {
		s.metrics.ObserveOperation("HeadObject", time.Since(start), err)
	}
	if err != nil {
		if isNotFoundError(err) {
			return store.ObjectInfo{}, store.ErrObjectNotFound
		}
		return store.ObjectInfo{}, store.NewError("stat", "s3", name, err)
	}

	return store.ObjectInfo{
		Name:       name,
		Size:       aws.ToInt64(resp.ContentLength),
		ModifiedAt: aws.ToTime(resp.LastModified),
	}, nil
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.Stat(ctx, name)
	if err != nil {
		if err == store.ErrObjectNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, name string) (io.ReadCloser, store.ObjectInfo, error) {
	if err := s.checkOpen(); err != nil {
		return nil, store.ObjectInfo{}, err
	}
	if err := store.ValidateName(name); err != nil {
		return nil, store.ObjectInfo{}, err
	}

	start := time.Now()
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(name)),
	})
	if s.metrics != nil {
		s.metrics.ObserveOperation("GetObject", time.Since(start), err)
		if err == nil {
			s.metrics.RecordBytes("GetObject", aws.ToInt64(resp.ContentLength))
		}
	}
	if err != nil {
		if isNotFoundError(err) {
			return nil, store.ObjectInfo{}, store.ErrObjectNotFound
		}
		return nil, store.ObjectInfo{}, store.NewError("get", "s3", name, err)
	}

	info := store.ObjectInfo{
		Name:       name,
		Size:       aws.ToInt64(resp.ContentLength),
		ModifiedAt: aws.ToTime(resp.LastModified),
	}
	return resp.Body, info, nil
}

func (s *Store) Put(ctx context.Context, name string, size int64, r io.Reader) (store.ObjectInfo, error) {
	if err := s.checkOpen(); err != nil {
		return store.ObjectInfo{}, err
	}
	if err := store.ValidateName(name); err != nil {
		return store.ObjectInfo{}, err
	}
	if size < 0 {
		return store.ObjectInfo{}, store.NewError("put", "s3", name, fmt.Errorf("negative size %d", size))
	}

	// The SDK needs a seekable body for signing and retries, so the
	// payload is buffered before upload.
	buf := bytes.NewBuffer(make([]byte, 0, size))
	if _, err := io.CopyN(buf, r, size); err != nil {
		return store.ObjectInfo{}, store.NewError("put", "s3", name, err)
	}

	start := time.Now()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.fullKey(name)),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(size),
	})
	if s.metrics != nil {
		s.metrics.ObserveOperation("PutObject", time.Since(start), err)
		if err == nil {
			s.metrics.RecordBytes("PutObject", size)
		}
	}
	if err != nil {
		return store.ObjectInfo{}, store.NewError("put", "s3", name, err)
	}

	return store.ObjectInfo{Name: name, Size: size, ModifiedAt: time.Now()}, nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// HealthCheck verifies the S3 bucket is accessible.
// Performs a HeadBucket call to check connectivity and permissions.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	start := time.Now()
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if s.metrics != nil {
		s.metrics.ObserveOperation("HeadBucket", time.Since(start), err)
	}
	if err != nil {
		return store.NewError("health", "s3", "", err)
	}
	return nil
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrStoreClosed
	}
	return nil
}

// isNotFoundError checks if an error is an S3 not found error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "NoSuchKey") ||
		strings.Contains(errStr, "NotFound") ||
		strings.Contains(errStr, "404")
}

var _ store.Store = (*Store)(nil)
