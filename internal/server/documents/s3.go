// Package documents archives uploaded identity documents in S3-compatible
// object storage.
package documents

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/idverifier/internal/server/awsx"
	"github.com/google/uuid"
)

// ObjectPutter is the subset of *s3.Client the archive uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadAWSConfig = awsx.LoadConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type S3Archive struct {
	client ObjectPutter
	bucket string
	now    func() time.Time
}

// NewS3Archive builds an archive for bucket. A non-empty baseEndpoint points
// the client at an S3-compatible server (e.g. MinIO) using path-style URLs.
func NewS3Archive(ctx context.Context, settings awsx.Settings, bucket, baseEndpoint string) (*S3Archive, error) {
	cfg, err := loadAWSConfig(ctx, settings)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if baseEndpoint != "" {
			o.BaseEndpoint = aws.String(baseEndpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3ArchiveWithClient(client, bucket), nil
}

func NewS3ArchiveWithClient(client ObjectPutter, bucket string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket, now: time.Now}
}

// StorageKey returns documents/<year>/<month>/<day>/<uuid> for t.
func StorageKey(t time.Time) string {
	return fmt.Sprintf("documents/%d/%d/%d/%v", t.Year(), int(t.Month()), t.Day(), uuid.New())
}

// Store uploads body under a fresh key and returns that key.
func (a *S3Archive) Store(ctx context.Context, contentType, sha256 string, body []byte) (string, error) {
	key := StorageKey(a.now())

	in := &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata:      map[string]string{"sha256": sha256},
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := a.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return key, nil
}
