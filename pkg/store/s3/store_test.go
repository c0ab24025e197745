//go:build integration

package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marcomacias410/ferry/pkg/store"
)

// localstackHelper manages the Localstack container for S3 integration tests.
type localstackHelper struct {
	container testcontainers.Container
	endpoint  string
	client    *s3.Client
}

// newLocalstackHelper starts a Localstack container or connects to an existing one.
func newLocalstackHelper(t *testing.T) *localstackHelper {
	t.Helper()
	ctx := context.Background()

	// Check if external Localstack is configured via environment
	if endpoint := os.Getenv("LOCALSTACK_ENDPOINT"); endpoint != "" {
		helper := &localstackHelper{endpoint: endpoint}
		helper.createClient(t)
		return helper
	}

	// Start Localstack container using testcontainers
	req := testcontainers.ContainerRequest{
		Image:        "localstack/localstack:3.0",
		ExposedPorts: []string{"4566/tcp"},
		Env: map[string]string{
			"SERVICES":              "s3",
			"DEFAULT_REGION":        "us-east-1",
			"EAGER_SERVICE_LOADING": "1",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("4566/tcp"),
			wait.ForHTTP("/_localstack/health").
				WithPort("4566/tcp").
				WithStartupTimeout(60*time.Second),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start localstack container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "4566")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get container port: %v", err)
	}

	helper := &localstackHelper{
		container: container,
		endpoint:  fmt.Sprintf("http://%s:%s", host, port.Port()),
	}
	helper.createClient(t)

	return helper
}

// createClient creates an S3 client configured for Localstack.
func (lh *localstackHelper) createClient(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			"test", "test", "",
		)),
	)
	if err != nil {
		t.Fatalf("failed to load AWS config: %v", err)
	}

	lh.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = &lh.endpoint
		o.UsePathStyle = true
	})
}

// createBucket creates a new S3 bucket.
func (lh *localstackHelper) createBucket(t *testing.T, bucketName string) {
	t.Helper()
	ctx := context.Background()

	_, err := lh.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	})
	if err != nil {
		t.Fatalf("failed to create test bucket: %v", err)
	}
}

// cleanupBucket removes a bucket and all its contents.
func (lh *localstackHelper) cleanupBucket(bucketName string) {
	ctx := context.Background()

	listResp, _ := lh.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucketName),
	})
	if listResp != nil {
		for _, obj := range listResp.Contents {
			_, _ = lh.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucketName),
				Key:    obj.Key,
			})
		}
	}

	_, _ = lh.client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(bucketName),
	})
}

// cleanup terminates the container if we started one.
func (lh *localstackHelper) cleanup() {
	if lh.container != nil {
		ctx := context.Background()
		_ = lh.container.Terminate(ctx)
	}
}

// TestS3Store_Integration runs object store tests against Localstack.
func TestS3Store_Integration(t *testing.T) {
	ctx := context.Background()

	helper := newLocalstackHelper(t)
	defer helper.cleanup()

	bucketName := "ferry-store-test"
	helper.createBucket(t, bucketName)
	defer helper.cleanupBucket(bucketName)

	s := New(helper.client, Config{
		Bucket:    bucketName,
		KeyPrefix: "objects/",
	})
	defer s.Close()

	t.Run("PutAndGet", func(t *testing.T) {
		data := []byte("hello world from the object store")

		info, err := s.Put(ctx, "greeting.txt", int64(len(data)), bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if info.Size != int64(len(data)) {
			t.Errorf("Put info size = %d, want %d", info.Size, len(data))
		}

		rc, got, err := s.Get(ctx, "greeting.txt")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		defer rc.Close()

		read, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		if string(read) != string(data) {
			t.Errorf("Get returned %q, want %q", read, data)
		}
		if got.Size != int64(len(data)) {
			t.Errorf("Get info size = %d, want %d", got.Size, len(data))
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		_, _, err := s.Get(ctx, "missing")
		if !errors.Is(err, store.ErrObjectNotFound) {
			t.Errorf("Get returned %v, want ErrObjectNotFound", err)
		}
	})

	t.Run("StatAndExists", func(t *testing.T) {
		if _, err := s.Put(ctx, "stat-me", 4, strings.NewReader("data")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		info, err := s.Stat(ctx, "stat-me")
		if err != nil {
			t.Fatalf("Stat failed: %v", err)
		}
		if info.Size != 4 || info.Name != "stat-me" {
			t.Errorf("Stat returned %+v", info)
		}

		ok, err := s.Exists(ctx, "stat-me")
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if !ok {
			t.Error("Exists = false for present object")
		}

		ok, err = s.Exists(ctx, "not-there")
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if ok {
			t.Error("Exists = true for missing object")
		}
	})

	t.Run("List", func(t *testing.T) {
		// An object outside the key prefix must not appear.
		_, err := helper.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucketName),
			Key:    aws.String("unrelated/file"),
			Body:   bytes.NewReader([]byte("x")),
		})
		if err != nil {
			t.Fatalf("PutObject failed: %v", err)
		}

		infos, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		names := make(map[string]int64)
		for _, info := range infos {
			names[info.Name] = info.Size
		}
		if _, ok := names["greeting.txt"]; !ok {
			t.Errorf("List is missing greeting.txt: %v", names)
		}
		if _, ok := names["unrelated/file"]; ok {
			t.Error("List leaked an object outside the key prefix")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if _, err := s.Put(ctx, "versioned", 3, strings.NewReader("old")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if _, err := s.Put(ctx, "versioned", 11, strings.NewReader("replacement")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		rc, info, err := s.Get(ctx, "versioned")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		defer rc.Close()

		read, _ := io.ReadAll(rc)
		if string(read) != "replacement" || info.Size != 11 {
			t.Errorf("Get returned %q (size %d)", read, info.Size)
		}
	})

	t.Run("PutShortSource", func(t *testing.T) {
		_, err := s.Put(ctx, "short", 100, strings.NewReader("tiny"))
		if err == nil {
			t.Fatal("Put with short source should fail")
		}
		ok, err := s.Exists(ctx, "short")
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if ok {
			t.Error("Exists = true after failed Put")
		}
	})

	t.Run("HealthCheck", func(t *testing.T) {
		if err := s.HealthCheck(ctx); err != nil {
			t.Errorf("HealthCheck failed: %v", err)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		rec := &recordingMetrics{}
		ms := New(helper.client, Config{
			Bucket:    bucketName,
			KeyPrefix: "metered/",
			Metrics:   rec,
		})
		defer ms.Close()

		data := []byte("metered payload")
		if _, err := ms.Put(ctx, "m.txt", int64(len(data)), bytes.NewReader(data)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		rc, _, err := ms.Get(ctx, "m.txt")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		_ = rc.Close()

		if got := rec.count("PutObject"); got != 1 {
			t.Errorf("PutObject observations = %d, want 1", got)
		}
		if got := rec.count("GetObject"); got != 1 {
			t.Errorf("GetObject observations = %d, want 1", got)
		}
		if got := rec.transferred("PutObject"); got != int64(len(data)) {
			t.Errorf("PutObject bytes = %d, want %d", got, len(data))
		}
		if got := rec.transferred("GetObject"); got != int64(len(data)) {
			t.Errorf("GetObject bytes = %d, want %d", got, len(data))
		}
	})
}

// recordingMetrics is a Metrics stub that counts observations.
type recordingMetrics struct {
	mu    sync.Mutex
	ops   map[string]int
	bytes map[string]int64
}

func (r *recordingMetrics) ObserveOperation(operation string, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = make(map[string]int)
	}
	r.ops[operation]++
}

func (r *recordingMetrics) RecordBytes(operation string, bytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bytes == nil {
		r.bytes = make(map[string]int64)
	}
	r.bytes[operation] += bytes
}

func (r *recordingMetrics) count(operation string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ops[operation]
}

func (r *recordingMetrics) transferred(operation string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytes[operation]
}

func TestS3Store_ClosedOperations(t *testing.T) {
	ctx := context.Background()

	s := New(nil, Config{Bucket: "unused"})
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := s.List(ctx); !errors.Is(err, store.ErrStoreClosed) {
		t.Errorf("List on closed store returned %v, want ErrStoreClosed", err)
	}
	if _, err := s.Put(ctx, "x", 1, strings.NewReader("x")); !errors.Is(err, store.ErrStoreClosed) {
		t.Errorf("Put on closed store returned %v, want ErrStoreClosed", err)
	}
	if err := s.HealthCheck(ctx); !errors.Is(err, store.ErrStoreClosed) {
		t.Errorf("HealthCheck on closed store returned %v, want ErrStoreClosed", err)
	}
}
