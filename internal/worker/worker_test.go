package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/events"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"
)

var fastRetry = retry.Strategy{Attempts: 3, Delay: time.Millisecond, Backoff: 1}

// recorder - фиксирует порядок коммитов, обработки и публикаций
type recorder struct {
	calls     []string
	published map[string][]byte
}

func newRecorder() *recorder {
	return &recorder{published: map[string][]byte{}}
}

func (r *recorder) committer(err error) *mockCommitter {
	return &mockCommitter{commitFn: func(ctx context.Context, msg kafkago.Message) error {
		r.calls = append(r.calls, "commit")
		return err
	}}
}

func (r *recorder) republisher(name string, err error) *mockRepublisher {
	return &mockRepublisher{publishFn: func(ctx context.Context, key, value []byte) error {
		r.calls = append(r.calls, name)
		r.published[name] = value
		return err
	}}
}

func (r *recorder) handler(ev *events.MutationEvent, outcome Outcome, err error) *mockHandler {
	return &mockHandler{handleFn: func(ctx context.Context, raw []byte) (*events.MutationEvent, Outcome, error) {
		r.calls = append(r.calls, "handle")
		return ev, outcome, err
	}}
}

func TestWorker_AckOnReceipt(t *testing.T) {
	rec := newRecorder()
	w := NewWorkerInstance(rec.handler(events.NewDelete(1, 1), Failed, errors.New("db down")), nil,
		rec.committer(nil), rec.republisher("redeliver", nil), rec.republisher("dlq", nil), Options{MaxAttempts: 3})

	require.NoError(t, w.handleMessage(context.Background(), kafkago.Message{Value: []byte("x")}))

	// сбой после коммита окончателен, никаких повторов
	require.Equal(t, []string{"commit", "handle"}, rec.calls)
}

func TestWorker_AckAfterSuccess(t *testing.T) {
	tests := []struct {
		name      string
		attempt   int
		outcome   Outcome
		want      []string
		wantRoute string
	}{
		{name: "applied", outcome: Applied, want: []string{"handle", "commit"}},
		{name: "dropped", outcome: Dropped, want: []string{"handle", "commit"}},
		{name: "first failure is redelivered", attempt: 0, outcome: Failed, want: []string{"handle", "redeliver", "commit"}, wantRoute: "redeliver"},
		{name: "last attempt goes to dlq", attempt: 2, outcome: Failed, want: []string{"handle", "dlq", "commit"}, wantRoute: "dlq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			ev := events.NewDelete(7, 1)
			ev.Attempt = tt.attempt

			w := NewWorkerInstance(rec.handler(ev, tt.outcome, nil), nil,
				rec.committer(nil), rec.republisher("redeliver", nil), rec.republisher("dlq", nil),
				Options{AckAfterSuccess: true, MaxAttempts: 3})

			require.NoError(t, w.handleMessage(context.Background(), kafkago.Message{Key: []byte("7"), Value: []byte("x")}))
			require.Equal(t, tt.want, rec.calls)

			if tt.wantRoute != "" {
				routed, err := events.Decode(rec.published[tt.wantRoute])
				require.NoError(t, err)
				require.Equal(t, tt.attempt+1, routed.Attempt)
				require.Equal(t, ev.ID, routed.ID)
			}
		})
	}
}

func TestWorker_UndecodableFailureGoesToDLQAsIs(t *testing.T) {
	rec := newRecorder()
	w := NewWorkerInstance(rec.handler(nil, Failed, errors.New("boom")), nil,
		rec.committer(nil), rec.republisher("redeliver", nil), rec.republisher("dlq", nil),
		Options{AckAfterSuccess: true, MaxAttempts: 3})

	require.NoError(t, w.handleMessage(context.Background(), kafkago.Message{Value: []byte("raw")}))
	require.Equal(t, []string{"handle", "dlq", "commit"}, rec.calls)
	require.Equal(t, []byte("raw"), rec.published["dlq"])
}

func TestWorker_RerouteRetriedBeforeCommit(t *testing.T) {
	rec := newRecorder()
	failures := 2
	redeliver := &mockRepublisher{publishFn: func(ctx context.Context, key, value []byte) error {
		rec.calls = append(rec.calls, "redeliver")
		if failures > 0 {
			failures--
			return errors.New("broker down")
		}
		return nil
	}}
	w := NewWorkerInstance(rec.handler(events.NewDelete(7, 1), Failed, errors.New("db down")), nil,
		rec.committer(nil), redeliver, rec.republisher("dlq", nil),
		Options{AckAfterSuccess: true, MaxAttempts: 3, RerouteRetry: fastRetry})

	require.NoError(t, w.handleMessage(context.Background(), kafkago.Message{Value: []byte("x")}))
	require.Equal(t, []string{"handle", "redeliver", "redeliver", "redeliver", "commit"}, rec.calls)
}

// коммиты группы кумулятивны: после неудачного перенаправления ни одно следующее сообщение не подтверждается
func TestWorker_RerouteFailureStopsBeforeNextCommit(t *testing.T) {
	rec := newRecorder()
	outcomes := []Outcome{Failed, Applied}
	h := &mockHandler{handleFn: func(ctx context.Context, raw []byte) (*events.MutationEvent, Outcome, error) {
		rec.calls = append(rec.calls, "handle")
		o := outcomes[0]
		outcomes = outcomes[1:]
		return events.NewDelete(7, 1), o, nil
	}}

	queue := make(chan kafkago.Message, 2)
	queue <- kafkago.Message{Offset: 10, Value: []byte("a")}
	queue <- kafkago.Message{Offset: 11, Value: []byte("b")}

	var committed []int64
	committer := &mockCommitter{commitFn: func(ctx context.Context, msg kafkago.Message) error {
		committed = append(committed, msg.Offset)
		return nil
	}}

	w := NewWorkerInstance(h, queue, committer,
		rec.republisher("redeliver", errors.New("broker down")), rec.republisher("dlq", nil),
		Options{AckAfterSuccess: true, MaxAttempts: 3, RerouteRetry: fastRetry})

	err := w.StartWorker(context.Background())
	require.ErrorIs(t, err, ErrRerouteFailed)
	require.Empty(t, committed)
	require.Equal(t, []string{"handle", "redeliver", "redeliver", "redeliver"}, rec.calls)
	require.Len(t, queue, 1, "next message must stay unread")
}

func TestWorker_RerouteInterruptedByShutdown(t *testing.T) {
	rec := newRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	redeliver := &mockRepublisher{publishFn: func(ctx context.Context, key, value []byte) error {
		cancel()
		return errors.New("broker down")
	}}
	w := NewWorkerInstance(rec.handler(events.NewDelete(7, 1), Failed, nil), nil,
		rec.committer(nil), redeliver, rec.republisher("dlq", nil),
		Options{AckAfterSuccess: true, MaxAttempts: 3, RerouteRetry: fastRetry})

	require.NoError(t, w.handleMessage(ctx, kafkago.Message{Value: []byte("x")}))
	require.Equal(t, []string{"handle"}, rec.calls)
}

func TestWorker_ProcessTimeout(t *testing.T) {
	var hasDeadline bool
	h := &mockHandler{handleFn: func(ctx context.Context, raw []byte) (*events.MutationEvent, Outcome, error) {
		_, hasDeadline = ctx.Deadline()
		return nil, Applied, nil
	}}
	rec := newRecorder()

	w := NewWorkerInstance(h, nil, rec.committer(nil), nil, nil, Options{ProcessTimeout: time.Second})
	require.NoError(t, w.handleMessage(context.Background(), kafkago.Message{}))
	require.True(t, hasDeadline)

	w = NewWorkerInstance(h, nil, rec.committer(nil), nil, nil, Options{})
	require.NoError(t, w.handleMessage(context.Background(), kafkago.Message{}))
	require.False(t, hasDeadline)
}

func TestWorker_StartWorkerDrainsQueue(t *testing.T) {
	rec := newRecorder()
	queue := make(chan kafkago.Message, 2)
	queue <- kafkago.Message{Value: []byte("a")}
	queue <- kafkago.Message{Value: []byte("b")}
	close(queue)

	w := NewWorkerInstance(rec.handler(nil, Dropped, events.ErrDecode), queue,
		rec.committer(errors.New("commit failed")), nil, nil, Options{})

	done := make(chan error, 1)
	go func() {
		done <- w.StartWorker(context.Background())
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after queue was closed")
	}
	require.Equal(t, []string{"commit", "handle", "commit", "handle"}, rec.calls)
}

func TestWorker_StartWorkerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWorkerInstance(&mockHandler{}, make(chan kafkago.Message), &mockCommitter{}, nil, nil, Options{})
	require.NoError(t, w.StartWorker(ctx))
}
