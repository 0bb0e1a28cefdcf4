// Package service provides business-logic for the app: publishing image mutations and the read path
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/UnendingLoop/ImageEvents/internal/events"
	"github.com/UnendingLoop/ImageEvents/internal/kafka"
	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/UnendingLoop/ImageEvents/internal/mwlogger"
	"github.com/UnendingLoop/ImageEvents/internal/repository"
	"github.com/UnendingLoop/ImageEvents/internal/storage"
)

// EventPublisher - контракт для работы с очередью; одна попытка отправки
type EventPublisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

type ImageService struct {
	repo           repository.ImageRepo
	publisher      EventPublisher
	storage        storage.ImageStorage
	maxUploadBytes int64
}

func NewImageService(repo repository.ImageRepo, pub EventPublisher, strg storage.ImageStorage, maxUploadBytes int64) *ImageService {
	return &ImageService{
		repo:           repo,
		publisher:      pub,
		storage:        strg,
		maxUploadBytes: maxUploadBytes,
	}
}

// RequestCreate - читает загрузку целиком и публикует CREATE; результат обработки не ждет
func (c ImageService) RequestCreate(ctx context.Context, file io.Reader, filename string, ownerID int64) error {
	if file == nil || strings.TrimSpace(filename) == "" {
		return model.ErrEmptySource
	}

	data, err := c.readUpload(file)
	if err != nil {
		return err
	}

	ev := events.NewCreate(ownerID, filename, data)
	return c.publish(ctx, strconv.FormatInt(ownerID, 10), ev)
}

func (c ImageService) RequestUpdate(ctx context.Context, recordID, ownerID int64, patch model.ImagePatch) error {
	if recordID <= 0 {
		return model.ErrIncorrectID
	}
	if err := validatePatch(patch); err != nil {
		return err
	}

	ev := events.NewUpdate(recordID, ownerID, patch)
	return c.publish(ctx, strconv.FormatInt(recordID, 10), ev)
}

func (c ImageService) RequestDelete(ctx context.Context, recordID, ownerID int64) error {
	if recordID <= 0 {
		return model.ErrIncorrectID
	}

	ev := events.NewDelete(recordID, ownerID)
	return c.publish(ctx, strconv.FormatInt(recordID, 10), ev)
}

func (c ImageService) publish(ctx context.Context, key string, ev *events.MutationEvent) error {
	logger := mwlogger.LoggerFromContext(ctx)

	payload, err := events.Encode(ev)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode event")
		return model.ErrCommon500
	}

	// кладем в очередь один раз, без ретраев
	if err := c.publisher.Publish(ctx, []byte(key), payload); err != nil {
		if errors.Is(err, kafka.ErrMessageTooLarge) {
			logger.Warn().Err(err).Int("payload_bytes", len(payload)).Msg("Event rejected by queue size limit")
			return model.ErrFileTooLarge
		}
		logger.Error().Err(err).Str("event_id", ev.ID.String()).Msg(fmt.Sprintf("Failed to publish %s event to queue", ev.Kind))
		return model.ErrQueueUnavailable
	}

	logger.Info().Str("event_id", ev.ID.String()).Str("event_type", string(ev.Kind)).Msg("Event published")
	return nil
}

func (c ImageService) readUpload(file io.Reader) ([]byte, error) {
	src := file
	if c.maxUploadBytes > 0 {
		src = io.LimitReader(file, c.maxUploadBytes+1)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(src); err != nil {
		return nil, model.ErrEmptySource
	}
	if buf.Len() == 0 {
		return nil, model.ErrEmptySource
	}
	if c.maxUploadBytes > 0 && int64(buf.Len()) > c.maxUploadBytes {
		return nil, model.ErrFileTooLarge
	}
	return buf.Bytes(), nil
}

func (c ImageService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Image, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch all images list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c ImageService) Get(ctx context.Context, id int64) (*model.Image, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if id <= 0 {
		return nil, model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			return nil, model.ErrImageNotFound // 404
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch image %d from DB", id))
		return nil, model.ErrCommon500
	}

	return res, nil
}

// LoadFile - обработанный файл записи
func (c ImageService) LoadFile(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	res, err := c.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	// достаем из хранилища
	data, cType, err := c.storage.Get(ctx, res.FilePath)
	if err != nil {
		if errors.Is(err, model.ErrResultNotReady) {
			return nil, "", model.ErrResultNotReady // 404
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch image file %q from Storage", res.FilePath))
		return nil, "", model.ErrCommon500
	}
	return data, cType, nil
}
