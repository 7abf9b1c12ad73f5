package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"photovault/internal/config"
)

// S3Backend talks to any S3-compatible store (AWS, DigitalOcean Spaces,
// MinIO). Photo bytes and metadata DB copies share one bucket.
type S3Backend struct {
	client *s3.Client
	bucket string
}

func NewS3Backend(cfg config.S3Config) (*S3Backend, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Backend{client: client, bucket: cfg.Bucket}, nil
}

func (b *S3Backend) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	put := func() error {
		_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      &b.bucket,
			Key:         &key,
			Body:        bytes.NewReader(data),
			ContentType: &contentType,
		})
		return err
	}

	err := put()
	if err != nil {
		var apiError smithy.APIError
		if errors.As(err, &apiError) && apiError.ErrorCode() == "NoSuchBucket" {
			if _, err := b.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: &b.bucket}); err != nil {
				return "", fmt.Errorf("%w: failed to create bucket: %v", ErrStorageWrite, err)
			}
			err = put()
		}
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return key, nil
}

func (b *S3Backend) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &b.bucket,
		Key:    &key,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, key)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageRead, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageRead, err)
	}
	return data, nil
}

func (b *S3Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &b.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return nil
}

func (b *S3Backend) UploadFile(ctx context.Context, localPath string, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}

	_, err = b.Put(ctx, remotePath, data, "application/x-sqlite3")
	return err
}

func (b *S3Backend) DownloadFile(ctx context.Context, remotePath string, localPath string) error {
	data, err := b.Get(ctx, remotePath)
	if err != nil {
		return err
	}

	// Write to a sibling temp file and rename so a crashed download never
	// leaves a half-written database behind.
	tmp := localPath + ".download"
	if err := os.MkdirAll(filepath.Dir(localPath), 0750); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	return os.Rename(tmp, localPath)
}

func isNotFound(err error) bool {
	var apiError smithy.APIError
	if errors.As(err, &apiError) {
		switch apiError.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return true
		}
	}
	return false
}
