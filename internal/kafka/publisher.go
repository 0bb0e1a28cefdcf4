package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
)

var (
	ErrPublisherClosed = errors.New("publisher is closed")
	// ErrMessageTooLarge - сообщение больше лимита продюсера или топика; продюсер при этом исправен
	ErrMessageTooLarge = errors.New("message exceeds the queue size limit")
)

// Sender - то, что Publisher требует от продюсера wbf/kafka
type Sender interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key, value []byte) error
	Close() error
}

// SenderFactory - создает новое подключение к брокеру
type SenderFactory func() (Sender, error)

// singleAttempt - публикация делается один раз, ретраи на стороне продюсера не нужны
var singleAttempt = retry.Strategy{Attempts: 1, Delay: 0, Backoff: 1}

// Publisher владеет продюсером: создает его при первой публикации и сбрасывает
// после неудачной отправки, следующая публикация подключается заново.
type Publisher struct {
	mu      sync.Mutex
	factory SenderFactory
	sender  Sender
	timeout time.Duration
	closed  bool
}

func NewPublisher(factory SenderFactory, timeout time.Duration) *Publisher {
	return &Publisher{factory: factory, timeout: timeout}
}

// NewTopicPublisher - Publisher поверх wbf/kafka для одного топика.
// maxMessageBytes задает BatchBytes писателя, 0 оставляет умолчание kafka-go (1 MiB).
func NewTopicPublisher(broker, topic string, timeout time.Duration, maxMessageBytes int64) *Publisher {
	return NewPublisher(func() (Sender, error) {
		p := wbfkafka.NewProducer([]string{broker}, topic)
		if maxMessageBytes > 0 {
			p.Writer.BatchBytes = maxMessageBytes
		}
		return p, nil
	}, timeout)
}

// Publish - одна попытка отправки; ошибка означает, что сообщение в очередь не попало
func (p *Publisher) Publish(ctx context.Context, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}

	if p.sender == nil {
		s, err := p.factory()
		if err != nil {
			return fmt.Errorf("failed to connect producer: %w", err)
		}
		p.sender = s
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.sender.SendWithRetry(ctx, singleAttempt, key, value); err != nil {
		if isTooLarge(err) {
			return fmt.Errorf("%w (%d bytes): %v", ErrMessageTooLarge, len(value), err)
		}
		p.dropSender()
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// isTooLarge - отказ по размеру от самого kafka-go или от брокера
func isTooLarge(err error) bool {
	var local kafkago.MessageTooLargeError
	if errors.As(err, &local) || errors.Is(err, kafkago.MessageSizeTooLarge) {
		return true
	}
	var batch kafkago.WriteErrors
	if errors.As(err, &batch) {
		for _, e := range batch {
			if e != nil && isTooLarge(e) {
				return true
			}
		}
	}
	return false
}

func (p *Publisher) dropSender() {
	if err := p.sender.Close(); err != nil {
		log.Println("Failed to close broken producer:", err)
	}
	p.sender = nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.sender == nil {
		return nil
	}
	err := p.sender.Close()
	p.sender = nil
	return err
}
