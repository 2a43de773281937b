// Package storage wraps an S3-compatible bucket (AWS S3, Cloudflare R2, MinIO,
// LocalStack) behind a small object API guarded by a circuit breaker.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sony/gobreaker"
)

var (
	// ErrNotFound is returned when the key does not exist
	ErrNotFound = errors.New("object not found")
	// ErrUnavailable is returned while the circuit breaker is open
	ErrUnavailable = errors.New("object storage unavailable")
)

// Config holds the connection settings of the bucket
type Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// Object is a fetched object. The caller must close Body.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// S3API is the subset of the S3 client used by ObjectStore
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ObjectStore reads and writes objects of a single bucket
type ObjectStore struct {
	client S3API
	bucket string
	cb     *gobreaker.CircuitBreaker
}

// NewS3Client builds an S3 client. Static credentials and a custom endpoint are
// used when configured, otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// NewObjectStore creates an object store over client for bucket
func NewObjectStore(client S3API, bucket string) *ObjectStore {
	settings := gobreaker.Settings{
		Name:        "object-storage",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	}

	return &ObjectStore{
		client: client,
		bucket: bucket,
		cb:     gobreaker.NewCircuitBreaker(settings),
	}
}

// Get fetches an object. Returns ErrNotFound when the key is missing.
func (s *ObjectStore) Get(ctx context.Context, key string) (*Object, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			if isNotFound(err) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("failed to get object %s: %w", key, err)
		}
		return &Object{
			Body:        out.Body,
			Size:        aws.ToInt64(out.ContentLength),
			ContentType: aws.ToString(out.ContentType),
		}, nil
	})
	if err != nil {
		return nil, breakerError(err)
	}
	return result.(*Object), nil
}

// Put stores body under key
func (s *ObjectStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(body),
			ContentLength: aws.Int64(int64(len(body))),
			ContentType:   aws.String(contentType),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to put object %s: %w", key, err)
		}
		return nil, nil
	})
	return breakerError(err)
}

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return err
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}
