package staging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"notedrop/internal/model"
)

// Store holds pre-upload blobs in an S3-compatible bucket. Clients
// stage a file first, then reference the staged key in the upload
// request; the staged object is deleted best-effort once forwarded.
type Store interface {
	StageUpload(ctx context.Context, payload io.Reader, fileName string, contentType string) (string, error)
	FetchStaged(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteStaged(ctx context.Context, key string) error
}

type S3Store struct {
	client *s3.Client
	bucket string
}

type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

func NewS3(ctx context.Context, opts Options) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load staging credentials: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: opts.Bucket}, nil
}

func (s *S3Store) StageUpload(ctx context.Context, payload io.Reader, fileName string, contentType string) (string, error) {
	key := fmt.Sprintf("staged/%s/%s", time.Now().UTC().Format("2006-01-02"), uuid.NewString())

	data, err := io.ReadAll(payload)
	if err != nil {
		return "", fmt.Errorf("read staged payload: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"file-name": fileName},
	})
	if err != nil {
		return "", fmt.Errorf("stage upload %s: %w", fileName, err)
	}

	return key, nil
}

func (s *S3Store) FetchStaged(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, model.ErrStagedNotFound
		}
		return nil, fmt.Errorf("fetch staged object %s: %w", key, err)
	}

	return out.Body, nil
}

func (s *S3Store) DeleteStaged(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete staged object %s: %w", key, err)
	}
	return nil
}
