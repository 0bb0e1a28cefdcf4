// Package worker consumes image mutation events from the queue and applies them
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/events"
	"github.com/UnendingLoop/ImageEvents/internal/mwlogger"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// ErrRerouteFailed - событие не удалось ни повторить, ни отправить в DLQ.
// Коммиты группы кумулятивны: коммит следующего сообщения потерял бы это, поэтому воркер останавливается.
var ErrRerouteFailed = errors.New("failed to reroute failed event")

// DefaultRerouteRetry - повторы публикации при перенаправлении, одно сообщение в работе
var DefaultRerouteRetry = retry.Strategy{Attempts: 5, Delay: time.Second, Backoff: 2}

type Handler interface {
	Handle(ctx context.Context, raw []byte) (*events.MutationEvent, Outcome, error)
}

// Committer - подтверждение сообщения в consumer group
type Committer interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

// Republisher - повторная публикация в основной топик или в DLQ
type Republisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

type Options struct {
	AckAfterSuccess bool
	MaxAttempts     int
	ProcessTimeout  time.Duration
	RerouteRetry    retry.Strategy
}

type Worker struct {
	handler   Handler
	queue     <-chan kafkago.Message
	committer Committer
	redeliver Republisher
	dlq       Republisher
	opts      Options
}

func NewWorkerInstance(h Handler, q <-chan kafkago.Message, c Committer, redeliver, dlq Republisher, opts Options) *Worker {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.RerouteRetry.Attempts < 1 {
		opts.RerouteRetry = DefaultRerouteRetry
	}
	return &Worker{handler: h, queue: q, committer: c, redeliver: redeliver, dlq: dlq, opts: opts}
}

// StartWorker - обрабатывает сообщения по одному, пока не отменят ctx или не закроют канал.
// Ошибка возвращается только когда сообщение нельзя подтвердить без потери (ErrRerouteFailed).
func (w *Worker) StartWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-w.queue:
			if !ok {
				zlog.Logger.Info().Msg("Queue channel closed, stopping worker...")
				return nil
			}
			if err := w.handleMessage(ctx, msg); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg kafkago.Message) error {
	logger := zlog.Logger.With().
		Str("topic", msg.Topic).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Logger()
	ctx = mwlogger.ContextWithLogger(ctx, logger)

	// режим по умолчанию: подтверждаем сразу, сбой обработки окончателен
	if !w.opts.AckAfterSuccess {
		w.commit(ctx, msg)
	}

	ev, outcome, err := w.process(ctx, msg.Value)

	event := logger.Info()
	if err != nil {
		event = logger.Warn().Err(err)
	}
	if ev != nil {
		event = event.Str("event_id", ev.ID.String()).Str("event_type", string(ev.Kind))
	}
	event.Str("outcome", outcome.String()).Msg("Event handled")

	if !w.opts.AckAfterSuccess {
		return nil
	}

	if outcome == Failed {
		payload, target, err := w.route(ctx, msg, ev)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to prepare event for reroute, stopping worker")
			return fmt.Errorf("%w: offset %d: %v", ErrRerouteFailed, msg.Offset, err)
		}
		err = retry.DoContext(ctx, w.opts.RerouteRetry, func() error {
			return target.Publish(ctx, msg.Key, payload)
		})
		if err != nil && ctx.Err() != nil {
			// остановка: без коммита сообщение придет снова после рестарта
			logger.Warn().Err(err).Msg("Reroute interrupted by shutdown, event left uncommitted")
			return nil
		}
		if err != nil {
			// сообщение остается неподтвержденным и придет снова после рестарта
			logger.Error().Err(err).Msg("Failed to reroute event, stopping worker")
			return fmt.Errorf("%w: offset %d: %v", ErrRerouteFailed, msg.Offset, err)
		}
	}
	w.commit(ctx, msg)
	return nil
}

func (w *Worker) process(ctx context.Context, raw []byte) (*events.MutationEvent, Outcome, error) {
	if w.opts.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.ProcessTimeout)
		defer cancel()
	}
	return w.handler.Handle(ctx, raw)
}

// route - что и куда публиковать: повтор с attempt+1 либо DLQ, если попытки кончились
func (w *Worker) route(ctx context.Context, msg kafkago.Message, ev *events.MutationEvent) ([]byte, Republisher, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	if ev == nil {
		return msg.Value, w.dlq, nil
	}

	routed := *ev
	routed.Attempt++
	payload, err := events.Encode(&routed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to re-encode event: %w", err)
	}

	if routed.Attempt < w.opts.MaxAttempts {
		logger.Info().Int("attempt", routed.Attempt).Msg("Republishing event for another attempt")
		return payload, w.redeliver, nil
	}

	logger.Warn().Int("attempt", routed.Attempt).Msg("Out of attempts, sending event to DLQ")
	return payload, w.dlq, nil
}

func (w *Worker) commit(ctx context.Context, msg kafkago.Message) {
	if err := w.committer.Commit(ctx, msg); err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Msg("Failed to commit queue-message")
	}
}
