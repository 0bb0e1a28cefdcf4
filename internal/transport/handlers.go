// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/UnendingLoop/ImageEvents/internal/mwlogger"
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
)

type ImageHandler struct {
	service ImageService
}

type ImageService interface {
	RequestCreate(ctx context.Context, file io.Reader, filename string, ownerID int64) error
	RequestUpdate(ctx context.Context, recordID, ownerID int64, patch model.ImagePatch) error
	RequestDelete(ctx context.Context, recordID, ownerID int64) error
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Image, error) // получить список
	Get(ctx context.Context, id int64) (*model.Image, error)
	LoadFile(ctx context.Context, id int64) (io.ReadCloser, string, error) // прям скачать результат
}

func NewImageHandler(svc ImageService) *ImageHandler {
	return &ImageHandler{
		service: svc,
	}
}

// RegisterRoutes - /ping, /auth/* и закрытые токеном /image/*
func RegisterRoutes(r gin.IRouter, img *ImageHandler, au *AuthHandler, authMW gin.HandlerFunc) {
	r.GET("/ping", img.SimplePinger)

	authGroup := r.Group("/auth")
	authGroup.POST("/register", au.Register)
	authGroup.POST("/login", au.Login)

	imageGroup := r.Group("/image", authMW)
	imageGroup.POST("/upload_image", img.Upload)        // создание
	imageGroup.PUT("/update/:id", img.Update)           // изменение полей
	imageGroup.DELETE("/delete/:id", img.Delete)        // удаление
	imageGroup.GET("/get_all_images", img.GetAllImages) // получение списка картинок с пагинацией и сортировкой
	imageGroup.GET("/:id", img.GetImage)                // одна запись
	imageGroup.GET("/:id/file", img.LoadFile)           // загрузка результата
}

func (h ImageHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

func (h ImageHandler) Upload(ctx *ginext.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		respondError(ctx, model.ErrUnauthorized)
		return
	}

	imageFile, imageHeader, err := ctx.Request.FormFile("image")
	if err != nil {
		respondError(ctx, model.ErrEmptySource)
		return
	}
	defer closeFileFlow(imageFile)

	// передаем в сервис
	if err := h.service.RequestCreate(ctx.Request.Context(), imageFile, imageHeader.Filename, user.ID); err != nil {
		respondError(ctx, err)
		return
	}

	respondAccepted(ctx)
}

func (h ImageHandler) Update(ctx *ginext.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		respondError(ctx, model.ErrUnauthorized)
		return
	}

	id, err := parseID(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	var patch model.ImagePatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		respondError(ctx, model.ErrInvalidPatch)
		return
	}

	if err := h.service.RequestUpdate(ctx.Request.Context(), id, user.ID, patch); err != nil {
		respondError(ctx, err)
		return
	}

	respondAccepted(ctx)
}

func (h ImageHandler) Delete(ctx *ginext.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		respondError(ctx, model.ErrUnauthorized)
		return
	}

	id, err := parseID(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	if err := h.service.RequestDelete(ctx.Request.Context(), id, user.ID); err != nil {
		respondError(ctx, err)
		return
	}

	respondAccepted(ctx)
}

func (h ImageHandler) GetAllImages(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		respondError(ctx, model.ErrIncorrectQuery)
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(200, res)
}

func (h ImageHandler) GetImage(ctx *ginext.Context) {
	id, err := parseID(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	res, err := h.service.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(200, res)
}

func (h ImageHandler) LoadFile(ctx *ginext.Context) {
	id, err := parseID(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	res, cType, err := h.service.LoadFile(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	defer closeFileFlow(res)

	ctx.Writer.Header().Set("Content-Type", cType)
	ctx.Writer.WriteHeader(200)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		logger := mwlogger.LoggerFromContext(ctx.Request.Context())
		logger.Error().Err(err).
			Msgf("Failed to write response at byte %d for image id %d", n, id)
	}
}

func parseID(ctx *ginext.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.ErrIncorrectID
	}
	return id, nil
}

//-------------------

type AuthHandler struct {
	service AuthService
}

type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.Token, error)
	Login(ctx context.Context, creds model.Credentials) (*model.Token, error)
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

func (h AuthHandler) Register(ctx *ginext.Context) {
	var req model.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, model.ErrInvalidCredentialsFormat)
		return
	}

	token, err := h.service.Register(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(200, token)
}

func (h AuthHandler) Login(ctx *ginext.Context) {
	var creds model.Credentials
	if err := ctx.ShouldBindJSON(&creds); err != nil {
		respondError(ctx, model.ErrInvalidCredentialsFormat)
		return
	}

	token, err := h.service.Login(ctx.Request.Context(), creds)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			ctx.Header("WWW-Authenticate", "Bearer")
		}
		respondError(ctx, err)
		return
	}

	ctx.JSON(200, token)
}
