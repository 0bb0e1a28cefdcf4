package transport

import (
	"context"
	"io"

	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/gin-gonic/gin"
)

type mockImageService struct {
	requestCreateFn func(ctx context.Context, file io.Reader, filename string, ownerID int64) error
	requestUpdateFn func(ctx context.Context, recordID, ownerID int64, patch model.ImagePatch) error
	requestDeleteFn func(ctx context.Context, recordID, ownerID int64) error
	getListFn       func(ctx context.Context, req *model.ListRequest) ([]model.Image, error)
	getFn           func(ctx context.Context, id int64) (*model.Image, error)
	loadFileFn      func(ctx context.Context, id int64) (io.ReadCloser, string, error)
}

func (m *mockImageService) RequestCreate(ctx context.Context, file io.Reader, filename string, ownerID int64) error {
	return m.requestCreateFn(ctx, file, filename, ownerID)
}

func (m *mockImageService) RequestUpdate(ctx context.Context, recordID, ownerID int64, patch model.ImagePatch) error {
	return m.requestUpdateFn(ctx, recordID, ownerID, patch)
}

func (m *mockImageService) RequestDelete(ctx context.Context, recordID, ownerID int64) error {
	return m.requestDeleteFn(ctx, recordID, ownerID)
}

func (m *mockImageService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Image, error) {
	return m.getListFn(ctx, req)
}

func (m *mockImageService) Get(ctx context.Context, id int64) (*model.Image, error) {
	return m.getFn(ctx, id)
}

func (m *mockImageService) LoadFile(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	return m.loadFileFn(ctx, id)
}

type mockAuthService struct {
	registerFn     func(ctx context.Context, req model.RegisterRequest) (*model.Token, error)
	loginFn        func(ctx context.Context, creds model.Credentials) (*model.Token, error)
	authenticateFn func(ctx context.Context, token string) (*model.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.Token, error) {
	return m.registerFn(ctx, req)
}

func (m *mockAuthService) Login(ctx context.Context, creds model.Credentials) (*model.Token, error) {
	return m.loginFn(ctx, creds)
}

func (m *mockAuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if m.authenticateFn == nil {
		if token == "valid" {
			return &model.User{ID: 1, Username: "alice"}, nil
		}
		return nil, model.ErrUnauthorized
	}
	return m.authenticateFn(ctx, token)
}

func init() {
	gin.SetMode(gin.TestMode)
}
