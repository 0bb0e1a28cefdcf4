// Package dlq inspects and replays dead-lettered image events
package dlq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/events"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader - подмножество *kafkago.Reader
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// Republisher - отправка в основной топик, обычно *kafka.Publisher
type Republisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// IdleTimeout - столько ждем следующее сообщение, прежде чем считать DLQ прочитанной
var IdleTimeout = 3 * time.Second

// Peek - печатает до limit сообщений без коммита, повторный запуск покажет их снова
func Peek(ctx context.Context, r Reader, limit int, out io.Writer) (int, error) {
	n := 0
	for n < limit {
		msg, ok, err := fetch(ctx, r)
		if err != nil {
			return n, err
		}
		if !ok {
			break
		}
		fmt.Fprintln(out, describe(msg))
		n++
	}
	return n, nil
}

// Replay - возвращает до limit сообщений в основной топик с обнуленным attempt и коммитит их в DLQ
func Replay(ctx context.Context, r Reader, w Republisher, limit int, out io.Writer) (int, error) {
	n := 0
	for n < limit {
		msg, ok, err := fetch(ctx, r)
		if err != nil {
			return n, err
		}
		if !ok {
			break
		}

		value := msg.Value
		if ev, err := events.Decode(msg.Value); err == nil {
			ev.Attempt = 0
			if value, err = events.Encode(ev); err != nil {
				return n, fmt.Errorf("failed to re-encode event at offset %d: %w", msg.Offset, err)
			}
		}

		if err := w.Publish(ctx, msg.Key, value); err != nil {
			return n, fmt.Errorf("failed to republish offset %d: %w", msg.Offset, err)
		}
		if err := r.CommitMessages(ctx, msg); err != nil {
			return n, fmt.Errorf("failed to commit offset %d: %w", msg.Offset, err)
		}

		fmt.Fprintf(out, "replayed %s\n", describe(msg))
		n++
	}
	return n, nil
}

// fetch - ok=false, когда за IdleTimeout новых сообщений нет
func fetch(ctx context.Context, r Reader) (kafkago.Message, bool, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, IdleTimeout)
	defer cancel()

	msg, err := r.FetchMessage(fetchCtx)
	switch {
	case err == nil:
		return msg, true, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return kafkago.Message{}, false, nil
	default:
		return kafkago.Message{}, false, err
	}
}

func describe(msg kafkago.Message) string {
	ev, err := events.Decode(msg.Value)
	if err != nil {
		return fmt.Sprintf("offset=%d key=%s undecodable: %v", msg.Offset, msg.Key, err)
	}
	return fmt.Sprintf("offset=%d key=%s event_id=%s type=%s attempt=%d owner=%d record=%d",
		msg.Offset, msg.Key, ev.ID, ev.Kind, ev.Attempt, ev.OwnerID(), ev.RecordID())
}
