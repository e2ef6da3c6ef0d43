// Package backup uploads snapshots of the data documents to an
// S3-compatible bucket.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/phonebind/internal/clock"
	"github.com/dmitrijs2005/phonebind/internal/common"
	"github.com/dmitrijs2005/phonebind/internal/config"
	"github.com/dmitrijs2005/phonebind/internal/logging"
)

// ErrNotConfigured is returned by New when no bucket is set.
var ErrNotConfigured = fmt.Errorf("%w: backup bucket is not configured", common.ErrValidation)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Documents are the files copied on every run.
var Documents = []string{
	common.AccountsFile,
	common.SessionsFile,
	common.SubmissionsFile,
	common.ConfigFile,
}

// ObjectPutter is the part of *s3.Client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader copies the data directory documents to a bucket under
// <prefix>/<YYYYMMDD-hhmmss>/<file>.
type Uploader struct {
	client  ObjectPutter
	bucket  string
	prefix  string
	dataDir string
	clock   clock.Clock
	log     logging.Logger
}

// New builds an Uploader backed by the AWS SDK. Static credentials are used
// when an access key is configured; otherwise the default AWS chain
// applies. A custom endpoint switches to path-style addressing, as MinIO
// expects.
func New(ctx context.Context, cfg config.Backup, dataDir string, clk clock.Clock, log logging.Logger) (*Uploader, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("backup: load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Prefix, dataDir, clk, log), nil
}

// NewWithClient builds an Uploader over an existing client.
func NewWithClient(client ObjectPutter, bucket, prefix, dataDir string, clk clock.Clock, log logging.Logger) *Uploader {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Uploader{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		dataDir: dataDir,
		clock:   clk,
		log:     log.With("component", "backup"),
	}
}

// Run uploads every document that exists and returns the object keys
// written. Missing documents are skipped; the first upload error stops the
// run.
func (u *Uploader) Run(ctx context.Context) ([]string, error) {
	stamp := u.clock.Now().Format("20060102-150405")
	var keys []string

	for _, name := range Documents {
		data, err := os.ReadFile(filepath.Join(u.dataDir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return keys, fmt.Errorf("backup: read %s: %w", name, err)
		}

		key := path.Join(u.prefix, stamp, name)
		if _, err := u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(u.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		}); err != nil {
			return keys, fmt.Errorf("backup: put %s: %w", key, err)
		}
		keys = append(keys, key)
		u.log.Debug(ctx, "document uploaded", "bucket", u.bucket, "key", key, "bytes", len(data))
	}

	u.log.Info(ctx, "backup finished", "bucket", u.bucket, "objects", len(keys))
	return keys, nil
}
