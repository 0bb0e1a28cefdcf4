// Package miniostorage keeps processed images as objects in a MinIO bucket
package miniostorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultPort = "9000"

type Options struct {
	Addr   string // хост без порта, как MINIO_CONTAINER_NAME
	User   string
	Pass   string
	Bucket string
}

func (o Options) endpoint() string {
	return o.Addr + ":" + defaultPort
}

type MinioImageStorage struct {
	bucket string
	client *minio.Client
}

// NewMinioClient - подключается и при необходимости создает бакет
func NewMinioClient(ctx context.Context, opts Options) (*MinioImageStorage, error) {
	if opts.Bucket == "" {
		opts.Bucket = "default"
		log.Printf("Bucket name is empty, falling back to %q", opts.Bucket)
	}

	client, err := minio.New(opts.endpoint(), &minio.Options{
		Creds: credentials.NewStaticV4(opts.User, opts.Pass, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for %s: %w", opts.endpoint(), err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", opts.Bucket, err)
		}
	}

	return &MinioImageStorage{bucket: opts.Bucket, client: client}, nil
}

func (s *MinioImageStorage) Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error {
	if r == nil {
		return errors.New("nil reader passed to storage.Put")
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

// Stat - размер объекта в том виде, в каком он лежит в бакете
func (s *MinioImageStorage) Stat(ctx context.Context, key string) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, mapNotFound(err)
	}
	return info.Size, nil
}

// Get - GetObject ленивый, отсутствие объекта всплывает только на Stat
func (s *MinioImageStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", mapNotFound(err)
	}

	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, "", mapNotFound(err)
	}

	return obj, info.ContentType, nil
}

// Delete - удаление отсутствующего объекта minio ошибкой не считает
func (s *MinioImageStorage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// mapNotFound - отсутствующий объект отдается как model.ErrResultNotReady
func mapNotFound(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %v", model.ErrResultNotReady, err)
	}
	return err
}
