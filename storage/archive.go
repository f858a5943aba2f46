package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Archiver keeps a copy of every uploaded order sheet
type Archiver interface {
	// Archive stores data under a unique name derived from filename and
	// returns where it was written
	Archive(ctx context.Context, filename string, data []byte) (string, error)
}

// ObjectName builds a unique, date-partitioned name for an upload
func ObjectName(filename string, at time.Time) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload.xlsx"
	}
	return path.Join(at.UTC().Format("2006/01/02"), uuid.New().String()+"-"+base)
}

// LocalArchiver writes uploads below a directory on disk
type LocalArchiver struct {
	dir string
	now func() time.Time
}

// NewLocalArchiver creates a new local archiver
func NewLocalArchiver(dir string) *LocalArchiver {
	return &LocalArchiver{dir: dir, now: time.Now}
}

// Archive writes the upload to disk
func (a *LocalArchiver) Archive(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dest := filepath.Join(a.dir, filepath.FromSlash(ObjectName(filename, a.now())))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to archive upload: %w", err)
	}
	return dest, nil
}

// putObjectAPI is the part of the S3 client the archiver needs
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads order sheets to an S3 bucket
type S3Archiver struct {
	client putObjectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Archiver creates an archiver using the default AWS credential chain
func NewS3Archiver(ctx context.Context, bucket, region string) (*S3Archiver, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Archiver{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: "uploads",
		now:    time.Now,
	}, nil
}

// Archive uploads the sheet and returns its s3:// URI
func (a *S3Archiver) Archive(ctx context.Context, filename string, data []byte) (string, error) {
	key := path.Join(a.prefix, ObjectName(filename, a.now()))

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}

	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}
