package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

// S3Store keeps report files in an S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	logger *logging.Logger
}

// NewS3Store creates an S3-backed store. Returns nil when client or
// bucket is missing so the caller can fall back to the in-memory store.
func NewS3Store(client *s3.Client, bucket string, logger *logging.Logger) *S3Store {
	if client == nil || bucket == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Store{client: client, bucket: bucket, logger: logger}
}

// Put uploads one report.
func (s *S3Store) Put(ctx context.Context, patientID, filename, contentType string, body io.Reader, size int64) (*Object, error) {
	key, err := buildKey(patientID, filename, contentType)
	if err != nil {
		return nil, err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, fmt.Errorf("uploads: put object: %w", err)
	}

	s.logger.Info("report uploaded", "key", key, "size", size)
	return &Object{
		Key:         key,
		ContentType: contentType,
		Size:        size,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// Get streams one report back.
func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, *Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("uploads: get object: %w", err)
	}

	obj := &Object{Key: key, ContentType: aws.ToString(out.ContentType), Size: aws.ToInt64(out.ContentLength)}
	if out.LastModified != nil {
		obj.UploadedAt = *out.LastModified
	}
	return out.Body, obj, nil
}

// Delete removes one report.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("uploads: delete object: %w", err)
	}
	return nil
}

var _ Store = (*S3Store)(nil)
