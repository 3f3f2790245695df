// Package publish uploads result directories to S3 so analysis runs can
// be shared.
package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config configures the S3 publisher.
type Config struct {
	// Bucket is the S3 bucket receiving results
	Bucket string

	// Prefix is prepended to all object keys (e.g., "tracelens/")
	Prefix string

	// Region is the AWS region
	Region string

	// Endpoint overrides the default S3 endpoint (for S3-compatible services)
	Endpoint string

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// UsePathStyle forces path-style addressing (for MinIO, LocalStack)
	UsePathStyle bool

	// Timeout per object upload
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(bucket string) Config {
	return Config{
		Bucket:  bucket,
		Prefix:  "tracelens/",
		Timeout: 30 * time.Second,
	}
}

// Publisher uploads files to S3.
type Publisher struct {
	cfg    Config
	client *s3.Client
}

// New creates an S3 publisher.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Opts := []func(*s3.Options){}

	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	return &Publisher{cfg: cfg, client: client}, nil
}

// UploadFile uploads one file under key.
func (p *Publisher) UploadFile(ctx context.Context, path, key string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.Bucket),
		Key:         aws.String(p.cfg.Prefix + key),
		Body:        f,
		ContentType: aws.String(contentType(path)),
	}

	if _, err := p.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// UploadRun uploads every regular file of a run directory under
// runName/, returning the object keys written. onFile, when non-nil,
// is called after each successful upload.
func (p *Publisher) UploadRun(ctx context.Context, dir, runName string, onFile func(key string)) ([]string, error) {
	var keys []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		key := runName + "/" + filepath.ToSlash(rel)

		if err := p.UploadFile(ctx, path, key); err != nil {
			return err
		}
		keys = append(keys, p.cfg.Prefix+key)
		if onFile != nil {
			onFile(key)
		}
		return nil
	})
	if err != nil {
		return keys, err
	}

	return keys, nil
}

// contentType guesses the MIME type from the file extension.
func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".parquet":
		return "application/vnd.apache.parquet"
	case ".xes":
		return "application/xml"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
