package service

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/model"
)

// MOCK RESPOSITORY

type mockRepo struct {
	createFn   func(ctx context.Context, img *model.Image) (int64, error)
	getFn      func(ctx context.Context, id int64) (*model.Image, error)
	getOwnedFn func(ctx context.Context, id, userID int64) (*model.Image, error)
	getListFn  func(ctx context.Context, req *model.ListRequest) ([]model.Image, error)
	updateFn   func(ctx context.Context, id, userID int64, patch model.ImagePatch, at time.Time) error
	deleteFn   func(ctx context.Context, id, userID int64) error
}

func (m *mockRepo) Create(ctx context.Context, img *model.Image) (int64, error) {
	return m.createFn(ctx, img)
}

func (m *mockRepo) Get(ctx context.Context, id int64) (*model.Image, error) {
	return m.getFn(ctx, id)
}

func (m *mockRepo) GetOwned(ctx context.Context, id, userID int64) (*model.Image, error) {
	return m.getOwnedFn(ctx, id, userID)
}

func (m *mockRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Image, error) {
	return m.getListFn(ctx, req)
}

func (m *mockRepo) Update(ctx context.Context, id, userID int64, patch model.ImagePatch, at time.Time) error {
	return m.updateFn(ctx, id, userID, patch, at)
}

func (m *mockRepo) Delete(ctx context.Context, id, userID int64) error {
	return m.deleteFn(ctx, id, userID)
}

// MOCK USERS

type mockUserRepo struct {
	createFn        func(ctx context.Context, u *model.User) (int64, error)
	getByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	getByIDFn       func(ctx context.Context, id int64) (*model.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u *model.User) (int64, error) {
	return m.createFn(ctx, u)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return m.getByUsernameFn(ctx, username)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return m.getByIDFn(ctx, id)
}

// MOCK TOKENS

type mockTokens struct {
	issueFn func(username string) (string, error)
	parseFn func(token string) (string, error)
}

func (m *mockTokens) Issue(username string) (string, error) {
	return m.issueFn(username)
}

func (m *mockTokens) Parse(token string) (string, error) {
	return m.parseFn(token)
}

// MOCK PUBLISHER

type mockPublisher struct {
	publishFn func(ctx context.Context, key, value []byte) error
}

func (m *mockPublisher) Publish(ctx context.Context, key, value []byte) error {
	return m.publishFn(ctx, key, value)
}

// MOCK STORAGE

type mockStorage struct {
	getFn func(ctx context.Context, key string) (io.ReadCloser, string, error)
}

func (m *mockStorage) Put(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
	return nil
}

func (m *mockStorage) Stat(ctx context.Context, key string) (int64, error) {
	return 0, nil
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return io.NopCloser(bytes.NewReader([]byte("img"))), model.PNG, nil
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return nil
}
