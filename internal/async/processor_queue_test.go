package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessorQueue_ProcessesInOrderAndDrains(t *testing.T) {
	defer goleak.VerifyNone(t)

	var (
		mu   sync.Mutex
		seen []string
	)
	q := NewProcessorQueue(func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job.PackID)
		return nil
	}, testLogger(), WithQueueSize(8))

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{PackID: id}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Shutdown(ctx))

	assert.Equal(t, []string{"a", "b", "c"}, seen)
	stats := q.Stats()
	assert.EqualValues(t, 3, stats.Queued)
	assert.EqualValues(t, 3, stats.Processed)
	assert.EqualValues(t, 0, stats.Failed)
}

func TestProcessorQueue_CountsFailuresAndPanics(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewProcessorQueue(func(ctx context.Context, job Job) error {
		switch job.PackID {
		case "boom":
			panic("handler exploded")
		case "fail":
			return errors.New("nope")
		}
		return nil
	}, testLogger(), WithWorkers(2))

	for _, id := range []string{"ok", "fail", "boom"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{PackID: id}))
	}
	q.Shutdown(context.Background())

	stats := q.Stats()
	assert.EqualValues(t, 1, stats.Processed)
	assert.EqualValues(t, 2, stats.Failed)
}

func TestProcessorQueue_RejectsAfterShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewProcessorQueue(func(ctx context.Context, job Job) error { return nil }, testLogger())
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{PackID: "late"})
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.EqualValues(t, 1, q.Stats().Rejected)
}

func TestProcessorQueue_BackpressureHonorsContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewProcessorQueue(func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, testLogger(), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{PackID: "running"}))
	<-started
	require.NoError(t, q.Enqueue(context.Background(), Job{PackID: "buffered"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{PackID: "overflow"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	q.Shutdown(context.Background())
	stats := q.Stats()
	assert.EqualValues(t, 2, stats.Processed)
	assert.EqualValues(t, 1, stats.Rejected)
}
