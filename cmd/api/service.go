package main

import (
	"github.com/UnendingLoop/ImageEvents/internal/auth"
	"github.com/UnendingLoop/ImageEvents/internal/repository"
	"github.com/UnendingLoop/ImageEvents/internal/service"
	"github.com/UnendingLoop/ImageEvents/internal/settings"
	"github.com/UnendingLoop/ImageEvents/internal/storage"
	"github.com/UnendingLoop/ImageEvents/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/dbpg"
)

// buildHandlers - собирает репозитории, сервисы и хендлеры API
func buildHandlers(cfg settings.Settings, dbConn *dbpg.DB, pub service.EventPublisher, strg storage.ImageStorage) (*transport.ImageHandler, *transport.AuthHandler, gin.HandlerFunc) {
	imgRepo := repository.NewPostgresImageRepo(dbConn)
	userRepo := repository.NewPostgresUserRepo(dbConn)

	var imgSvc transport.ImageService = service.NewImageService(imgRepo, pub, strg, cfg.MaxUploadBytes)
	var authSvc transport.AuthService = service.NewAuthService(userRepo, auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL))

	return transport.NewImageHandler(imgSvc), transport.NewAuthHandler(authSvc), transport.AuthMiddleware(authSvc)
}
