package storage

import (
	"context"
	"testing"
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/settings"
	"github.com/UnendingLoop/ImageEvents/internal/storage/fsstorage"
	"github.com/stretchr/testify/require"
)

func TestNewImgStorage_FS(t *testing.T) {
	strg, err := NewImgStorage(context.Background(), settings.Settings{StorageBackend: settings.BackendFS, ContentDir: "storage"}, time.Second)
	require.NoError(t, err)
	require.IsType(t, &fsstorage.FSImageStorage{}, strg)
}

func TestNewImgStorage_MinioCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// пустой адрес не проходит, отмененный контекст прерывает ожидание
	_, err := NewImgStorage(ctx, settings.Settings{StorageBackend: settings.BackendMinio}, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}
