package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/graceskyliz/ocr3/internal/common"
)

// GetObjectAPI is the slice of the S3 client the fetcher needs.
type GetObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Config struct {
	Bucket string // used when the locator omits one
	Region string
	TmpDir string
}

// S3Store downloads "s3://bucket/key" objects into temp files.
type S3Store struct {
	cfg    S3Config
	api    GetObjectAPI
	logger *slog.Logger
}

// NewS3Store builds a client from the default AWS credential chain.
func NewS3Store(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3StoreWithClient(cfg, s3.NewFromConfig(awsCfg), logger), nil
}

func NewS3StoreWithClient(cfg S3Config, api GetObjectAPI, logger *slog.Logger) *S3Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Store{cfg: cfg, api: api, logger: logger}
}

func (s *S3Store) Fetch(ctx context.Context, locator string) (Fetched, error) {
	bucket, key, err := splitS3(locator, s.cfg.Bucket)
	if err != nil {
		return Fetched{}, common.InvalidInput("%v", err)
	}
	start := time.Now()

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return Fetched{}, common.NotFound("s3 object %s/%s", bucket, key)
		}
		s.logger.Error("storage.s3.get_failed", "bucket", bucket, "key", key, "error", err)
		return Fetched{}, common.WrapError(err, "s3 get object")
	}
	defer func() {
		if err := out.Body.Close(); err != nil {
			s.logger.Warn("storage.s3.body_close_failed", "error", err)
		}
	}()

	f, err := os.CreateTemp(s.cfg.TmpDir, "ocr3-s3-*"+path.Ext(key))
	if err != nil {
		return Fetched{}, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	n, err := io.Copy(f, out.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return Fetched{}, fmt.Errorf("download s3 object: %w", err)
	}

	s.logger.Info("storage.s3.fetch",
		"bucket", bucket,
		"key", key,
		"bytes", n,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Fetched{Path: f.Name(), Cleanup: cleanup}, nil
}
