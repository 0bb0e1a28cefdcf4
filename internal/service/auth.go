package service

import (
	"context"
	"errors"
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/auth"
	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/UnendingLoop/ImageEvents/internal/mwlogger"
	"github.com/UnendingLoop/ImageEvents/internal/repository"
)

// TokenIssuer - выпуск и проверка bearer-токенов
type TokenIssuer interface {
	Issue(username string) (string, error)
	Parse(token string) (string, error)
}

type AuthService struct {
	users  repository.UserRepo
	tokens TokenIssuer
}

func NewAuthService(users repository.UserRepo, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (a AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.Token, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		// bcrypt отказывает только на слишком длинных паролях
		return nil, model.ErrInvalidCredentialsFormat
	}

	now := time.Now().UTC()
	user := &model.User{Username: req.Username, HashedPassword: hash, CreatedAt: &now, UpdatedAt: &now}
	if _, err := a.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrUserExists) {
			return nil, model.ErrUserExists // 400
		}
		logger.Error().Err(err).Msg("Failed to create user in DB")
		return nil, model.ErrCommon500
	}

	return a.issue(ctx, req.Username)
}

func (a AuthService) Login(ctx context.Context, creds model.Credentials) (*model.Token, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	user, err := a.users.GetByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidCredentials // 401
		}
		logger.Error().Err(err).Msg("Failed to fetch user from DB")
		return nil, model.ErrCommon500
	}

	if !auth.CheckPassword(user.HashedPassword, creds.Password) {
		return nil, model.ErrInvalidCredentials // 401
	}

	return a.issue(ctx, user.Username)
}

// Authenticate - пользователь по bearer-токену
func (a AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	username, err := a.tokens.Parse(token)
	if err != nil {
		return nil, model.ErrUnauthorized
	}

	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrUnauthorized
		}
		logger.Error().Err(err).Msg("Failed to fetch user from DB")
		return nil, model.ErrCommon500
	}
	return user, nil
}

func (a AuthService) issue(ctx context.Context, username string) (*model.Token, error) {
	token, err := a.tokens.Issue(username)
	if err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Msg("Failed to issue token")
		return nil, model.ErrCommon500
	}
	return &model.Token{AccessToken: token, TokenType: auth.TokenType}, nil
}
