// Package backup copies the submission store file to S3.
package backup

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dsautocare/site/internal/config"
	"github.com/dsautocare/site/internal/errors"
)

// KeyTimeLayout is the timestamp suffix of backup object keys.
const KeyTimeLayout = "20060102T150405"

// Uploader is the subset of the S3 client used for backups.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Backup uploads timestamped copies of a file to a bucket.
type S3Backup struct {
	client Uploader
	bucket string
	prefix string
	now    func() time.Time
}

// UploadOutput describes a completed backup.
type UploadOutput struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Bytes  int64  `json:"bytes"`
}

// New returns a backup that writes through client.
func New(client Uploader, bucket, prefix string) *S3Backup {
	return &S3Backup{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// NewFromConfig builds an S3 client from cfg. Static credentials are used when
// both key parts are configured; otherwise the default AWS credential chain applies.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*S3Backup, error) {
	if cfg.BackupBucket == "" {
		return nil, errors.NewServiceUnavailable("backup bucket is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("load AWS config: %w", err))
	}
	return New(s3.NewFromConfig(awsCfg), cfg.BackupBucket, cfg.BackupPrefix), nil
}

// Key returns the object key for a backup of file taken at t.
func (b *S3Backup) Key(file string, t time.Time) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	name := fmt.Sprintf("%s-%s.csv", base, t.Format(KeyTimeLayout))
	if b.prefix == "" {
		return name
	}
	return path.Join(strings.Trim(b.prefix, "/"), name)
}

// Upload copies the file at file to the bucket.
func (b *S3Backup) Upload(ctx context.Context, file string) (*UploadOutput, error) {
	f, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInvalidRequest("nothing to back up: store file does not exist yet")
		}
		return nil, errors.NewStorage("backup", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.NewStorage("backup", err)
	}

	key := b.Key(file, b.now())
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("text/csv"),
	})
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("upload to S3: %w", err))
	}

	return &UploadOutput{Bucket: b.bucket, Key: key, Bytes: info.Size()}, nil
}
