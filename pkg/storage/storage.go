package storage

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
)

// ObjectStore is the slice of object storage the recording pipeline needs.
type ObjectStore interface {
	PutObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	UploadFile(ctx context.Context, objectName, filePath, contentType string) error
	PresignedGetUrl(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

type minioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(client *minio.Client, bucket string) ObjectStore {
	return &minioStore{
		client: client,
		bucket: bucket,
	}
}

func (s *minioStore) PutObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *minioStore) UploadFile(ctx context.Context, objectName, filePath, contentType string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *minioStore) PresignedGetUrl(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, url.Values{})
	if err != nil {
		return "", err
	}
	return presigned.String(), nil
}
