package kafka

import (
	"context"

	"github.com/wb-go/wbf/retry"
)

type mockSender struct {
	sendFn  func(ctx context.Context, strategy retry.Strategy, key, value []byte) error
	closeFn func() error
}

func (m *mockSender) SendWithRetry(ctx context.Context, strategy retry.Strategy, key, value []byte) error {
	return m.sendFn(ctx, strategy, key, value)
}

func (m *mockSender) Close() error {
	if m.closeFn == nil {
		return nil
	}
	return m.closeFn()
}
