package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for s3:// sources.
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Sources opens seed sources by scheme: http(s)://, s3://bucket/key,
// gs://bucket/key, and plain file paths. Cloud clients are created on first
// use.
type Sources struct {
	http  *http.Client
	s3cfg S3Config

	mu  sync.Mutex
	s3  *s3.Client
	gcs *gcs.Client
}

// NewSources creates an Opener for all supported schemes
func NewSources(s3cfg S3Config) *Sources {
	return &Sources{
		// Seed files can be large
		http:  &http.Client{Timeout: 5 * time.Minute},
		s3cfg: s3cfg,
	}
}

// Open implements Opener.
func (s *Sources) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	scheme, bucket, key, err := splitSource(source)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "http", "https":
		return s.openHTTP(ctx, source)
	case "s3":
		return s.openS3(ctx, bucket, key)
	case "gs":
		return s.openGCS(ctx, bucket, key)
	default:
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		return f, nil
	}
}

// splitSource returns the scheme and, for bucket schemes, the bucket and
// object key. Plain paths have an empty scheme.
func splitSource(source string) (scheme, bucket, key string, err error) {
	if !strings.Contains(source, "://") {
		return "", "", "", nil
	}

	u, err := url.Parse(source)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid source %q: %w", source, err)
	}

	scheme = strings.ToLower(u.Scheme)
	switch scheme {
	case "http", "https":
		return scheme, "", "", nil
	case "s3", "gs":
		key = strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return "", "", "", fmt.Errorf("invalid source %q: want %s://bucket/key", source, scheme)
		}
		return scheme, u.Host, key, nil
	default:
		return "", "", "", fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}

func (s *Sources) openHTTP(ctx context.Context, source string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp.Body, nil
}

func (s *Sources) s3Client(ctx context.Context) (*s3.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.s3 != nil {
		return s.s3, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if s.s3cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(s.s3cfg.Region))
	}
	if s.s3cfg.AccessKey != "" && s.s3cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.s3cfg.AccessKey, s.s3cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if s.s3cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s.s3cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	s.s3 = s3.NewFromConfig(awsCfg, s3Opts...)
	return s.s3, nil
}

func (s *Sources) openS3(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	client, err := s.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

func (s *Sources) gcsClient(ctx context.Context) (*gcs.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gcs != nil {
		return s.gcs, nil
	}

	// Application Default Credentials
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	s.gcs = client
	return client, nil
}

func (s *Sources) openGCS(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	client, err := s.gcsClient(ctx)
	if err != nil {
		return nil, err
	}

	r, err := client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs read %s/%s: %w", bucket, key, err)
	}
	return r, nil
}

// Close releases cloud clients.
func (s *Sources) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gcs != nil {
		err := s.gcs.Close()
		s.gcs = nil
		return err
	}
	return nil
}
