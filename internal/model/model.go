// Package model provides data-structs for internal app-usage
package model

import (
	"errors"
	"time"

	"github.com/disintegration/imaging"
)

// Image - запись об обработанном изображении, меняется только воркером
type Image struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	FilePath   string     `json:"file_path"`
	Resolution string     `json:"resolution"`
	Size       int64      `json:"size"`
	UserID     int64      `json:"user_id"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

type User struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	HashedPassword string     `json:"-"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// ImagePatch - изменяемые поля записи; nil означает "не трогать"
type ImagePatch struct {
	Title      *string `json:"title,omitempty" binding:"omitempty,min=1,max=255"`
	Resolution *string `json:"resolution,omitempty" binding:"omitempty,resolution"`
	Size       *int64  `json:"size,omitempty" binding:"omitempty,gte=0"`
}

func (p ImagePatch) IsEmpty() bool {
	return p.Title == nil && p.Resolution == nil && p.Size == nil
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByID      = "id"
	ByCreated = "created"
	ByTitle   = "title"
	OrderASC  = "asc"
	OrderDESC = "desc"

	// MaxPageSize - верхняя граница limit; без limit список отдается целиком
	MaxPageSize = 100
)

type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest - пароль 4..50 символов и хотя бы один спецсимвол
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=4,max=50,specialchar"`
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ------------------

var (
	ErrCommon500                = errors.New("something went wrong. Try again later")            // 500
	ErrQueueUnavailable         = errors.New("processing queue is unavailable. Try again later") // 503
	ErrIncorrectQuery           = errors.New("incorrect query parameters")                       // 400
	ErrIncorrectID              = errors.New("incorrect image id")                               // 400
	ErrEmptySource              = errors.New("empty/incorrect source image provided")            // 400
	ErrFileTooLarge             = errors.New("uploaded file is too large")                       // 400
	ErrInvalidPatch             = errors.New("incorrect update fields provided")                 // 400
	ErrInvalidCredentialsFormat = errors.New("incorrect username or password format")            // 400
	ErrUserExists               = errors.New("username is already taken")                        // 400
	ErrUnauthorized             = errors.New("could not validate credentials")                   // 401
	ErrInvalidCredentials       = errors.New("incorrect username or password")                   // 401
	ErrImageNotFound            = errors.New("image not found")                                  // 404
	ErrResultNotReady           = errors.New("requested image file is not available")            // 404
	ErrUserNotFound             = errors.New("user not found")                                   // 404
	ErrStaleEvent               = errors.New("event is older than the stored record")
	ErrUnsupportedFormat        = errors.New("unsupported image format")
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	BMP  = "image/bmp"
	TIFF = "image/tiff"
)

var GetCType = map[imaging.Format]string{
	imaging.JPEG: JPEG,
	imaging.PNG:  PNG,
	imaging.GIF:  GIF,
	imaging.BMP:  BMP,
	imaging.TIFF: TIFF,
}

// ProcessedSide - сторона квадрата, к которому приводится любая загрузка
const ProcessedSide = 500
