package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound is returned when the requested object does not exist
var ErrNotFound = errors.New("object not found")

// Config holds S3/MinIO connection configuration
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UseSSL          bool
	BucketLookup    string // auto, dns, path
	MaxObjectBytes  int64
}

// Client reads resume files from a single bucket
type Client struct {
	minio    *minio.Client
	bucket   string
	maxBytes int64
	logger   *slog.Logger
}

// NewClient creates a MinIO client and checks that the bucket exists
func NewClient(ctx context.Context, cfg *Config, logger *slog.Logger) (*Client, error) {
	lookup, err := parseBucketLookup(cfg.BucketLookup)
	if err != nil {
		return nil, err
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := mc.BucketExists(checkCtx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	logger.Info("Connected to object store",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("bucket", cfg.Bucket),
	)

	return &Client{
		minio:    mc,
		bucket:   cfg.Bucket,
		maxBytes: cfg.MaxObjectBytes,
		logger:   logger,
	}, nil
}

// Bucket returns the configured bucket name
func (c *Client) Bucket() string {
	return c.bucket
}

// Get downloads the whole object. A missing key yields ErrNotFound.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.minio.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if IsNoSuchKey(err) {
			return nil, fmt.Errorf("get object %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	defer obj.Close()

	var reader io.Reader = obj
	if c.maxBytes > 0 {
		reader = io.LimitReader(obj, c.maxBytes+1)
	}

	// GetObject is lazy; a missing key only surfaces on the first read.
	data, err := io.ReadAll(reader)
	if err != nil {
		if IsNoSuchKey(err) {
			return nil, fmt.Errorf("read object %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("object %q exceeds %d bytes", key, c.maxBytes)
	}

	return data, nil
}

// HealthCheck verifies the bucket is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if _, err := c.minio.BucketExists(ctx, c.bucket); err != nil {
		return fmt.Errorf("object store health check failed: %w", err)
	}
	return nil
}

// IsNoSuchKey reports whether err means the object does not exist
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}

	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch strings.ToLower(strings.TrimSpace(resp.Code)) {
		case "nosuchkey", "notfound":
			return true
		}
	}

	// Some gateways flatten the S3 error into plain text.
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "nosuchkey") ||
		strings.Contains(lower, "specified key does not exist")
}

func parseBucketLookup(v string) (minio.BucketLookupType, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "auto":
		return minio.BucketLookupAuto, nil
	case "dns":
		return minio.BucketLookupDNS, nil
	case "path":
		return minio.BucketLookupPath, nil
	default:
		return minio.BucketLookupAuto, fmt.Errorf("invalid bucket lookup %q", v)
	}
}
