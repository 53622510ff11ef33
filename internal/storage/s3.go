package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"submission_service/internal/errdefs"
	"submission_service/internal/model"
	"submission_service/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const keyPrefix = "files/"

// S3Store keeps uploads as objects under files/ in a single bucket.
type S3Store struct {
	client *s3.Client
	bucket *string
}

func NewS3Store(ctx context.Context, client *s3.Client, bucketName string) (*S3Store, error) {
	s := &S3Store{client: client, bucket: aws.String(bucketName)}
	err := s.createBucket(ctx, bucketName)
	return s, err
}

func (s *S3Store) Save(ctx context.Context, name string, r io.Reader) error {
	if !validName(name) {
		return fmt.Errorf("invalid file name %q: %w", name, errdefs.ErrValidation)
	}

	body, contentType, err := prepareBody(r)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      s.bucket,
		Key:         aws.String(objectKey(name)),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	return err
}

func (s *S3Store) Open(ctx context.Context, name string) (*model.StoredFile, error) {
	if !validName(name) {
		return nil, fmt.Errorf("file %q: %w", name, errdefs.ErrNotFound)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(objectKey(name)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("file %q: %w", name, errdefs.ErrNotFound)
		}
		return nil, err
	}

	file := &model.StoredFile{
		Name:        name,
		Body:        out.Body,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}
	if out.LastModified != nil {
		file.ModTime = *out.LastModified
	}
	return file, nil
}

func (s *S3Store) createBucket(ctx context.Context, name string) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(name)})
	if err != nil {
		var opErr *http.ResponseError
		if errors.As(err, &opErr) && opErr.HTTPStatusCode() == 409 {
			logging.FromContext(ctx).Info(ctx, "Bucket already exists", zap.String("bucket", name))
			return nil
		}
	}
	return err
}

func objectKey(name string) string {
	return keyPrefix + name
}

// prepareBody returns a seekable body and its detected content type. The SDK
// needs a seekable body to sign the payload, so plain readers are buffered.
func prepareBody(r io.Reader) (io.ReadSeeker, string, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), mimetype.Detect(data).String(), nil
	}

	mtype, err := mimetype.DetectReader(rs)
	if err != nil {
		return nil, "", err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, "", err
	}
	return rs, mtype.String(), nil
}
