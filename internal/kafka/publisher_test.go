package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
)

func TestPublisher_LazyConnectAndSingleAttempt(t *testing.T) {
	created := 0
	var gotKey, gotValue []byte
	var gotStrategy retry.Strategy

	p := NewPublisher(func() (Sender, error) {
		created++
		return &mockSender{sendFn: func(ctx context.Context, s retry.Strategy, k, v []byte) error {
			gotStrategy, gotKey, gotValue = s, k, v
			return nil
		}}, nil
	}, time.Second)

	require.Equal(t, 0, created)

	require.NoError(t, p.Publish(context.Background(), []byte("1"), []byte("payload")))
	require.NoError(t, p.Publish(context.Background(), []byte("1"), []byte("payload")))

	require.Equal(t, 1, created)
	require.Equal(t, 1, gotStrategy.Attempts)
	require.Equal(t, []byte("1"), gotKey)
	require.Equal(t, []byte("payload"), gotValue)
}

func TestPublisher_ReconnectAfterFailure(t *testing.T) {
	created, closed := 0, 0
	fail := true

	p := NewPublisher(func() (Sender, error) {
		created++
		return &mockSender{
			sendFn: func(ctx context.Context, s retry.Strategy, k, v []byte) error {
				if fail {
					return errors.New("broker down")
				}
				return nil
			},
			closeFn: func() error { closed++; return nil },
		}, nil
	}, 0)

	err := p.Publish(context.Background(), nil, []byte("x"))
	require.Error(t, err)
	require.Equal(t, 1, closed)

	fail = false
	require.NoError(t, p.Publish(context.Background(), nil, []byte("x")))
	require.Equal(t, 2, created)
}

func TestPublisher_TooLargeKeepsSender(t *testing.T) {
	created, closed := 0, 0
	p := NewPublisher(func() (Sender, error) {
		created++
		return &mockSender{
			sendFn: func(ctx context.Context, s retry.Strategy, k, v []byte) error {
				if len(v) > 4 {
					return kafkago.MessageTooLargeError{Message: kafkago.Message{Value: v}}
				}
				return nil
			},
			closeFn: func() error { closed++; return nil },
		}, nil
	}, 0)

	err := p.Publish(context.Background(), nil, []byte("too large"))
	require.ErrorIs(t, err, ErrMessageTooLarge)
	require.Equal(t, 0, closed)

	require.NoError(t, p.Publish(context.Background(), nil, []byte("ok")))
	require.Equal(t, 1, created)
}

func TestIsTooLarge(t *testing.T) {
	require.True(t, isTooLarge(kafkago.MessageTooLargeError{}))
	require.True(t, isTooLarge(kafkago.MessageSizeTooLarge))
	require.True(t, isTooLarge(kafkago.WriteErrors{nil, kafkago.MessageSizeTooLarge}))
	require.False(t, isTooLarge(kafkago.WriteErrors{errors.New("broker down")}))
	require.False(t, isTooLarge(errors.New("broker down")))
}

func TestNewTopicPublisher_BatchBytes(t *testing.T) {
	p := NewTopicPublisher("127.0.0.1:1", "image_events", time.Second, 16<<20)
	s, err := p.factory()
	require.NoError(t, err)

	producer, ok := s.(*wbfkafka.Producer)
	require.True(t, ok)
	require.Equal(t, int64(16<<20), producer.Writer.BatchBytes)
	require.NoError(t, s.Close())
}

func TestTopicConfig_MaxMessageBytes(t *testing.T) {
	cfg := topicConfig("image_events", 16<<20)
	require.Equal(t, []kafkago.ConfigEntry{{ConfigName: "max.message.bytes", ConfigValue: "16777216"}}, cfg.ConfigEntries)
	require.Empty(t, topicConfig("image_events", 0).ConfigEntries)
}

func TestPublisher_FactoryError(t *testing.T) {
	p := NewPublisher(func() (Sender, error) {
		return nil, errors.New("no route to broker")
	}, 0)

	require.Error(t, p.Publish(context.Background(), nil, []byte("x")))
}

func TestPublisher_Close(t *testing.T) {
	closed := 0
	p := NewPublisher(func() (Sender, error) {
		return &mockSender{
			sendFn:  func(ctx context.Context, s retry.Strategy, k, v []byte) error { return nil },
			closeFn: func() error { closed++; return nil },
		}, nil
	}, 0)

	require.NoError(t, p.Close())
	require.Equal(t, 0, closed)

	p2 := NewPublisher(p.factory, 0)
	require.NoError(t, p2.Publish(context.Background(), nil, []byte("x")))
	require.NoError(t, p2.Close())
	require.Equal(t, 1, closed)
	require.ErrorIs(t, p2.Publish(context.Background(), nil, []byte("x")), ErrPublisherClosed)
}

func TestPublisher_TimeoutApplied(t *testing.T) {
	p := NewPublisher(func() (Sender, error) {
		return &mockSender{sendFn: func(ctx context.Context, s retry.Strategy, k, v []byte) error {
			_, ok := ctx.Deadline()
			require.True(t, ok)
			return nil
		}}, nil
	}, time.Second)

	require.NoError(t, p.Publish(context.Background(), nil, []byte("x")))
}

func TestWaitReady(t *testing.T) {
	calls := 0
	err := waitReady(context.Background(), "broker:9092", time.Millisecond, func(ctx context.Context, addr string) error {
		calls++
		if calls < 3 {
			return errors.New("refused")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = waitReady(ctx, "broker:9092", time.Hour, func(ctx context.Context, addr string) error {
		return errors.New("refused")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestTopicsDeclared(t *testing.T) {
	require.True(t, topicsDeclared(map[string]error{"a": nil, "b": kafkago.TopicAlreadyExists}))
	require.False(t, topicsDeclared(map[string]error{"a": nil, "b": errors.New("boom")}))
}
