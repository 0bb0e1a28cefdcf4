// Package fsstorage keeps processed images as plain files in a content directory
package fsstorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

type FSImageStorage struct {
	fs afero.Fs
}

// New - ключи интерпретируются как пути внутри fs
func New(fs afero.Fs) *FSImageStorage {
	return &FSImageStorage{fs: fs}
}

func (s *FSImageStorage) Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error {
	if r == nil {
		return errors.New("nil reader passed to storage.Put")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if dir := filepath.Dir(key); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create content dir %q: %w", dir, err)
		}
	}

	f, err := s.fs.Create(key)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(key)
		return err
	}

	return f.Close()
}

func (s *FSImageStorage) Stat(ctx context.Context, key string) (int64, error) {
	info, err := s.fs.Stat(key)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return info.Size(), nil
}

func (s *FSImageStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	f, err := s.fs.Open(key)
	if err != nil {
		return nil, "", mapNotFound(err)
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		_ = f.Close()
		return nil, "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, "", err
	}

	return f, mt.String(), nil
}

// Delete - отсутствие файла не считается ошибкой
func (s *FSImageStorage) Delete(ctx context.Context, key string) error {
	err := s.fs.Remove(key)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", model.ErrResultNotReady, err)
	}
	return err
}
