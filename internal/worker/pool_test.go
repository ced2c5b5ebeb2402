package worker

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wissididom/twitch-sus-user-logger/internal/discord"
)

// blockingSender holds every delivery until release is closed.
type blockingSender struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingSender() *blockingSender {
	return &blockingSender{started: make(chan struct{}), release: make(chan struct{})}
}

func (s *blockingSender) Execute(ctx context.Context, _ discord.Destination, _ discord.Message) (*discord.Result, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &discord.Result{StatusCode: http.StatusOK}, nil
}

func TestPool_DeliversSubmittedJobs(t *testing.T) {
	rec := &memoryRecorder{}
	sender := &countingSender{result: &discord.Result{StatusCode: http.StatusNoContent}}
	pool := NewPool(3, 10, NewDeliverer(sender, testLogger(), WithRecorder(rec)), testLogger())
	pool.Start(context.Background())

	dest := discord.Destination{WebhookURL: "https://discord.invalid/x"}
	for i := 0; i < 5; i++ {
		assert.True(t, pool.Submit(testJob(dest)))
	}
	pool.Stop()

	assert.Equal(t, int32(5), sender.calls.Load())
	assert.Len(t, rec.all(), 5)
}

func TestPool_SubmitDoesNotBlockWhenFull(t *testing.T) {
	sender := newBlockingSender()
	pool := NewPool(1, 1, NewDeliverer(sender, testLogger()), testLogger())
	pool.Start(context.Background())

	dest := discord.Destination{WebhookURL: "https://discord.invalid/x"}

	require.True(t, pool.Submit(testJob(dest)))
	<-sender.started
	require.True(t, pool.Submit(testJob(dest)), "queue has room for one waiting job")

	done := make(chan bool, 1)
	go func() { done <- pool.Submit(testJob(dest)) }()

	select {
	case accepted := <-done:
		assert.False(t, accepted, "a full queue drops the job")
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}

	close(sender.release)
	pool.Stop()
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := NewPool(1, 1, NewDeliverer(&countingSender{}, testLogger()), testLogger())
	pool.Start(context.Background())
	pool.Stop()

	assert.False(t, pool.Submit(testJob(discord.Destination{WebhookURL: "https://discord.invalid/x"})))
	pool.Stop()
}

func TestPool_CancelledContextDropsQueuedJobs(t *testing.T) {
	sender := &countingSender{result: &discord.Result{StatusCode: http.StatusOK}}
	pool := NewPool(1, 2, NewDeliverer(sender, testLogger()), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pool.Start(ctx)

	require.True(t, pool.Submit(testJob(discord.Destination{WebhookURL: "https://discord.invalid/x"})))
	pool.Stop()

	assert.Equal(t, int32(0), sender.calls.Load())
}

func TestNewPool_Bounds(t *testing.T) {
	pool := NewPool(0, -1, nil, testLogger())
	assert.Equal(t, 1, pool.numWorkers)
	assert.Equal(t, 0, cap(pool.jobs))
}
