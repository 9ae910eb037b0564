package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestEnqueueAndProcess(t *testing.T) {
	client := newClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, Enqueuer{R: client}.Enqueue(ctx, "token-1"))

	var mu sync.Mutex
	var seen []string
	done := make(chan struct{})

	worker := Worker{
		R: client,
		Handler: func(_ context.Context, token string) error {
			mu.Lock()
			seen = append(seen, token)
			mu.Unlock()
			close(done)
			return nil
		},
	}
	go func() { _ = worker.Run(ctx) }()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("worker did not process the token in time")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"token-1"}, seen)
}

func TestEnqueueDeduplicatesWaitingTokens(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	e := Enqueuer{R: client}
	require.NoError(t, e.Enqueue(ctx, "token-1"))
	require.NoError(t, e.Enqueue(ctx, "token-1"))

	waiting, err := client.ZCard(ctx, queueKey("")).Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, waiting)
}

func TestEnqueueRequiresToken(t *testing.T) {
	client := newClient(t)
	require.Error(t, Enqueuer{R: client}.Enqueue(context.Background(), ""))
}

func TestFailingTokenMovesToDLQ(t *testing.T) {
	client := newClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, Enqueuer{R: client}.Enqueue(ctx, "token-1"))

	var mu sync.Mutex
	attempts := 0
	worker := Worker{
		R:           client,
		MaxAttempts: 2,
		RetryBase:   time.Millisecond,
		Handler: func(context.Context, string) error {
			mu.Lock()
			attempts++
			mu.Unlock()
			return errors.New("boom")
		},
	}
	go func() { _ = worker.Run(ctx) }()

	require.Eventually(t, func() bool {
		n, err := client.LLen(ctx, dlqKey("")).Result()
		return err == nil && n == 1
	}, 4*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, attempts)

	// The dedup key is released so the token can be enqueued again.
	require.NoError(t, Enqueuer{R: client}.Enqueue(ctx, "token-1"))
}
