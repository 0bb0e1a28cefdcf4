package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/dedup"
	"github.com/UnendingLoop/ImageEvents/internal/events"
	"github.com/UnendingLoop/ImageEvents/internal/imageproc"
	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/UnendingLoop/ImageEvents/internal/mwlogger"
	"github.com/UnendingLoop/ImageEvents/internal/storage"
	"github.com/google/uuid"
)

// Outcome - итог обработки одного сообщения
type Outcome int

const (
	Applied Outcome = iota // изменение применено
	Dropped                // повторять бессмысленно: битое сообщение, нет пользователя/записи, невалидная картинка
	Failed                 // временная ошибка хранилища или БД, можно повторить
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Dropped:
		return "dropped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

var ErrDuplicate = errors.New("event already handled")

// artifactTimeLayout - префикс имени файла результата
const artifactTimeLayout = "20060102150405"

type ImageRepo interface {
	Create(ctx context.Context, img *model.Image) (int64, error)
	GetOwned(ctx context.Context, id, userID int64) (*model.Image, error)
	Update(ctx context.Context, id, userID int64, patch model.ImagePatch, at time.Time) error
	Delete(ctx context.Context, id, userID int64) error
}

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// Processor применяет события к хранилищу записей и файлов
type Processor struct {
	repo       ImageRepo
	users      UserLookup
	storage    storage.ImageStorage
	registry   dedup.Registry
	contentDir string
	now        func() time.Time
}

func NewProcessor(repo ImageRepo, users UserLookup, strg storage.ImageStorage, registry dedup.Registry, contentDir string) *Processor {
	if registry == nil {
		registry = dedup.Noop{}
	}
	return &Processor{
		repo:       repo,
		users:      users,
		storage:    strg,
		registry:   registry,
		contentDir: contentDir,
		now:        time.Now,
	}
}

// Handle - decode -> проверка владельца -> применение. Возвращает разобранное событие (если удалось), итог и причину.
func (p *Processor) Handle(ctx context.Context, raw []byte) (*events.MutationEvent, Outcome, error) {
	ev, err := events.Decode(raw)
	if err != nil {
		return nil, Dropped, err
	}

	logger := mwlogger.LoggerFromContext(ctx).With().
		Str("event_id", ev.ID.String()).
		Str("event_type", string(ev.Kind)).
		Int64("owner_id", ev.OwnerID()).
		Int("attempt", ev.Attempt).
		Logger()
	ctx = mwlogger.ContextWithLogger(ctx, logger)

	// у сообщений старого формата нет event_id, их не с чем сверять
	tracked := ev.ID != uuid.Nil
	if tracked {
		seen, err := p.registry.Seen(ctx, ev.ID.String())
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("Dedup registry unavailable")
		case seen:
			return ev, Dropped, ErrDuplicate
		}
	}

	if _, err := p.users.GetByID(ctx, ev.OwnerID()); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return ev, Dropped, err
		}
		return ev, Failed, fmt.Errorf("failed to look up owner: %w", err)
	}

	var outcome Outcome
	switch ev.Kind {
	case events.KindCreate:
		outcome, err = p.create(ctx, ev)
	case events.KindUpdate:
		outcome, err = p.update(ctx, ev)
	case events.KindDelete:
		outcome, err = p.delete(ctx, ev)
	default:
		return ev, Dropped, fmt.Errorf("unknown event kind %q", ev.Kind)
	}

	if outcome == Applied && tracked {
		if err := p.registry.Mark(ctx, ev.ID.String()); err != nil {
			logger.Warn().Err(err).Msg("Failed to mark event as handled")
		}
	}
	return ev, outcome, err
}

func (p *Processor) create(ctx context.Context, ev *events.MutationEvent) (Outcome, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	payload := ev.Create

	processed, err := imageproc.Normalize(payload.RawBytes, model.ProcessedSide)
	if err != nil {
		return Dropped, fmt.Errorf("invalid image %q: %w", payload.Filename, err)
	}

	// имя файла - время обработки; отметки записи - время события, с ним сравнивает защита от устаревших UPDATE
	key := artifactKey(p.contentDir, payload.Filename, p.now().UTC())
	stamp := p.eventTime(ev)

	if err := p.storage.Put(ctx, key, int64(len(processed.Data)), processed.ContentType(), bytes.NewReader(processed.Data)); err != nil {
		return Failed, fmt.Errorf("failed to write artifact %q: %w", key, err)
	}

	size, err := p.storage.Stat(ctx, key)
	if err != nil {
		p.removeArtifact(ctx, key)
		return Failed, fmt.Errorf("failed to stat artifact %q: %w", key, err)
	}

	img := &model.Image{
		Title:      payload.Filename,
		FilePath:   key,
		Resolution: processed.Resolution(),
		Size:       size,
		UserID:     payload.OwnerID,
		CreatedAt:  &stamp,
		UpdatedAt:  &stamp,
	}
	id, err := p.repo.Create(ctx, img)
	if err != nil {
		p.removeArtifact(ctx, key)
		return Failed, fmt.Errorf("failed to insert image record: %w", err)
	}

	logger.Info().Int64("image_id", id).Str("file_path", key).Str("resolution", img.Resolution).Msg("Image created")
	return Applied, nil
}

func (p *Processor) update(ctx context.Context, ev *events.MutationEvent) (Outcome, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	payload := ev.Update

	if _, err := p.repo.GetOwned(ctx, payload.RecordID, payload.OwnerID); err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			return Dropped, err
		}
		return Failed, fmt.Errorf("failed to fetch image %d: %w", payload.RecordID, err)
	}

	if err := p.repo.Update(ctx, payload.RecordID, payload.OwnerID, payload.Changes, p.eventTime(ev)); err != nil {
		if errors.Is(err, model.ErrStaleEvent) {
			return Dropped, err
		}
		return Failed, fmt.Errorf("failed to update image %d: %w", payload.RecordID, err)
	}

	logger.Info().Int64("image_id", payload.RecordID).Msg("Image updated")
	return Applied, nil
}

func (p *Processor) delete(ctx context.Context, ev *events.MutationEvent) (Outcome, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	payload := ev.Delete

	img, err := p.repo.GetOwned(ctx, payload.RecordID, payload.OwnerID)
	if err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			return Dropped, err
		}
		return Failed, fmt.Errorf("failed to fetch image %d: %w", payload.RecordID, err)
	}

	if err := p.repo.Delete(ctx, payload.RecordID, payload.OwnerID); err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			return Dropped, err
		}
		return Failed, fmt.Errorf("failed to delete image %d: %w", payload.RecordID, err)
	}

	// запись уже удалена, файл-сирота только логируется
	p.removeArtifact(ctx, img.FilePath)

	logger.Info().Int64("image_id", payload.RecordID).Msg("Image deleted")
	return Applied, nil
}

// eventTime - occurred_at события; у сообщений старого формата его нет, берем свои часы
func (p *Processor) eventTime(ev *events.MutationEvent) time.Time {
	if ev.OccurredAt.IsZero() {
		return p.now().UTC()
	}
	return ev.OccurredAt.UTC()
}

func (p *Processor) removeArtifact(ctx context.Context, key string) {
	if err := p.storage.Delete(ctx, key); err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Str("file_path", key).Msg("Failed to remove artifact")
	}
}

// artifactKey - {dir}/{YYYYMMDDhhmmss}_{basename}
func artifactKey(dir, filename string, at time.Time) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		base = "image"
	}
	return path.Join(dir, at.Format(artifactTimeLayout)+"_"+base)
}
