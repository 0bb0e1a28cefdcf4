// Package storage picks and connects the backend for processed image files
package storage

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/settings"
	"github.com/UnendingLoop/ImageEvents/internal/storage/fsstorage"
	"github.com/UnendingLoop/ImageEvents/internal/storage/miniostorage"
	"github.com/spf13/afero"
)

// ImageStorage - контракт для работы с хранилищем обработанных файлов
type ImageStorage interface {
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
	Stat(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Delete(ctx context.Context, key string) error
}

// NewImgStorage - для minio переподключается каждые delay, пока не выйдет или не отменят ctx
func NewImgStorage(ctx context.Context, cfg settings.Settings, delay time.Duration) (ImageStorage, error) {
	if cfg.StorageBackend != settings.BackendMinio {
		log.Printf("Using local content directory %q as IMG-storage", cfg.ContentDir)
		return fsstorage.New(afero.NewOsFs()), nil
	}

	opts := miniostorage.Options{
		Addr:   cfg.MinioAddr,
		User:   cfg.MinioUser,
		Pass:   cfg.MinioPass,
		Bucket: cfg.Bucket,
	}

	for {
		log.Println("Connecting to IMG-storage...")
		client, err := miniostorage.NewMinioClient(ctx, opts)
		if err == nil {
			log.Println("Successfully connected IMG-storage!")
			return client, nil
		}
		log.Printf("Failed to init connection to IMG-storage: %v\nNext retry in %v...", err, delay)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}
