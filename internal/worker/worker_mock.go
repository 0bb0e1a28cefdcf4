package worker

import (
	"context"
	"io"
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/events"
	"github.com/UnendingLoop/ImageEvents/internal/model"
	kafkago "github.com/segmentio/kafka-go"
)

type mockRepo struct {
	createFn   func(ctx context.Context, img *model.Image) (int64, error)
	getOwnedFn func(ctx context.Context, id, userID int64) (*model.Image, error)
	updateFn   func(ctx context.Context, id, userID int64, patch model.ImagePatch, at time.Time) error
	deleteFn   func(ctx context.Context, id, userID int64) error
}

func (m *mockRepo) Create(ctx context.Context, img *model.Image) (int64, error) {
	return m.createFn(ctx, img)
}

func (m *mockRepo) GetOwned(ctx context.Context, id, userID int64) (*model.Image, error) {
	return m.getOwnedFn(ctx, id, userID)
}

func (m *mockRepo) Update(ctx context.Context, id, userID int64, patch model.ImagePatch, at time.Time) error {
	return m.updateFn(ctx, id, userID, patch, at)
}

func (m *mockRepo) Delete(ctx context.Context, id, userID int64) error {
	return m.deleteFn(ctx, id, userID)
}

//----------------------------------

type mockUsers struct {
	getByIDFn func(ctx context.Context, id int64) (*model.User, error)
}

func (m *mockUsers) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return m.getByIDFn(ctx, id)
}

//----------------------------------

type mockStorage struct {
	putFn    func(ctx context.Context, key string, size int64, ct string, r io.Reader) error
	statFn   func(ctx context.Context, key string) (int64, error)
	getFn    func(ctx context.Context, key string) (io.ReadCloser, string, error)
	deleteFn func(ctx context.Context, key string) error
}

func (m *mockStorage) Put(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
	return m.putFn(ctx, key, size, ct, r)
}

func (m *mockStorage) Stat(ctx context.Context, key string) (int64, error) {
	return m.statFn(ctx, key)
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return m.getFn(ctx, key)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	if m.deleteFn == nil {
		return nil
	}
	return m.deleteFn(ctx, key)
}

//----------------------------------

type mockRegistry struct {
	seen    map[string]bool
	seenErr error
}

func (m *mockRegistry) Seen(ctx context.Context, id string) (bool, error) {
	return m.seen[id], m.seenErr
}

func (m *mockRegistry) Mark(ctx context.Context, id string) error {
	m.seen[id] = true
	return nil
}

//----------------------------------

type mockHandler struct {
	handleFn func(ctx context.Context, raw []byte) (*events.MutationEvent, Outcome, error)
}

func (m *mockHandler) Handle(ctx context.Context, raw []byte) (*events.MutationEvent, Outcome, error) {
	return m.handleFn(ctx, raw)
}

type mockCommitter struct {
	commitFn func(ctx context.Context, msg kafkago.Message) error
}

func (m *mockCommitter) Commit(ctx context.Context, msg kafkago.Message) error {
	return m.commitFn(ctx, msg)
}

type mockRepublisher struct {
	publishFn func(ctx context.Context, key, value []byte) error
}

func (m *mockRepublisher) Publish(ctx context.Context, key, value []byte) error {
	return m.publishFn(ctx, key, value)
}
