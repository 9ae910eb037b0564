// Package queue schedules cart recalculations through Redis. The API side
// enqueues cart tokens whose reference data changed; the worker drains the
// queue and runs the calculation pipeline per token. A sorted set keyed by
// availability time gives delayed retries; a processing set redelivers
// tokens lost to a crashed worker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const queueName = "cart-recalculation"

// Enqueuer publishes recalculation requests.
type Enqueuer struct {
	R        *redis.Client
	Prefix   string
	DedupTTL time.Duration
}

// Enqueue schedules the cart token for recalculation. A token already
// waiting in the queue is not enqueued twice.
func (e Enqueuer) Enqueue(ctx context.Context, token string) error {
	return e.EnqueueDelayed(ctx, token, 0)
}

// EnqueueDelayed schedules the token to become due after the delay.
func (e Enqueuer) EnqueueDelayed(ctx context.Context, token string, delay time.Duration) error {
	if e.R == nil {
		return errors.New("queue: redis client not configured")
	}
	if token == "" {
		return errors.New("queue: cart token is required")
	}

	ttl := e.DedupTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	ok, err := e.R.SetNX(ctx, dedupKey(e.Prefix, token), "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("queue: dedup %s: %w", token, err)
	}
	if !ok {
		return nil
	}

	msg := message{Token: token, AvailableAt: time.Now().Add(delay).UnixNano()}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return e.R.ZAdd(ctx, queueKey(e.Prefix), redis.Z{Score: float64(msg.AvailableAt), Member: raw}).Err()
}

// Worker drains the recalculation queue.
type Worker struct {
	R                 *redis.Client
	Prefix            string
	Concurrency       int
	MaxAttempts       int
	VisibilityTimeout time.Duration
	RetryBase         time.Duration
	// Handler recalculates one cart. An error requeues the token with
	// backoff until MaxAttempts is reached.
	Handler func(ctx context.Context, token string) error
}

// Run processes tokens until the context is cancelled.
func (w Worker) Run(ctx context.Context) error {
	if w.R == nil {
		return errors.New("queue: worker redis client not configured")
	}
	if w.Handler == nil {
		return errors.New("queue: worker handler not configured")
	}
	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	visibility := w.VisibilityTimeout
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	retryBase := w.RetryBase
	if retryBase <= 0 {
		retryBase = 200 * time.Millisecond
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	qKey := queueKey(w.Prefix)
	pKey := processingKey(w.Prefix)

	requeueTicker := time.NewTicker(time.Second)
	defer requeueTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case <-requeueTicker.C:
			if err := w.requeueExpired(ctx, pKey, qKey); err != nil {
				return err
			}
		default:
		}

		res, err := w.R.ZPopMin(ctx, qKey, 1).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if errors.Is(err, redis.Nil) {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return err
		}
		if len(res) == 0 {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		member, ok := res[0].Member.(string)
		if !ok {
			continue
		}
		msg, err := decodeMessage(member)
		if err != nil {
			continue
		}
		now := time.Now().UnixNano()
		if msg.AvailableAt > now {
			w.R.ZAdd(ctx, qKey, redis.Z{Score: float64(msg.AvailableAt), Member: member})
			sleep := time.Duration(msg.AvailableAt - now)
			if sleep > time.Second {
				sleep = time.Second
			}
			time.Sleep(sleep)
			continue
		}

		msg.Attempt++
		rawBytes, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		raw := string(rawBytes)
		deadline := time.Now().Add(visibility).UnixNano()
		if err := w.R.ZAdd(ctx, pKey, redis.Z{Score: float64(deadline), Member: raw}).Err(); err != nil {
			return err
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(raw string, m message) {
			defer func() { <-sem }()
			defer wg.Done()
			jobCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			if err := w.Handler(jobCtx, m.Token); err != nil {
				w.handleFailure(jobCtx, qKey, pKey, raw, m, retryBase)
				return
			}
			w.ack(jobCtx, pKey, raw, m)
		}(raw, msg)
	}
}

func (w Worker) handleFailure(ctx context.Context, qKey, pKey, raw string, msg message, base time.Duration) {
	_ = w.R.ZRem(ctx, pKey, raw)
	maxAttempts := w.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if msg.Attempt >= maxAttempts {
		rawBytes, err := json.Marshal(msg)
		if err != nil {
			return
		}
		_ = w.R.LPush(ctx, dlqKey(w.Prefix), rawBytes).Err()
		_ = w.R.Del(ctx, dedupKey(w.Prefix, msg.Token)).Err()
		return
	}
	msg.AvailableAt = time.Now().Add(backoff(base, msg.Attempt)).UnixNano()
	rawBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = w.R.ZAdd(ctx, qKey, redis.Z{Score: float64(msg.AvailableAt), Member: string(rawBytes)}).Err()
}

func (w Worker) ack(ctx context.Context, pKey, raw string, msg message) {
	_ = w.R.ZRem(ctx, pKey, raw)
	_ = w.R.Del(ctx, dedupKey(w.Prefix, msg.Token)).Err()
}

func (w Worker) requeueExpired(ctx context.Context, pKey, qKey string) error {
	now := float64(time.Now().UnixNano())
	due, err := w.R.ZRangeByScore(ctx, pKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%f", now)}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	for _, raw := range due {
		msg, err := decodeMessage(raw)
		if err != nil {
			continue
		}
		_ = w.R.ZRem(ctx, pKey, raw).Err()
		msg.AvailableAt = time.Now().UnixNano()
		encoded, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		_ = w.R.ZAdd(ctx, qKey, redis.Z{Score: float64(msg.AvailableAt), Member: encoded}).Err()
	}
	return nil
}

// backoff grows exponentially with a small jitter so retrying workers do
// not synchronise.
func backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base << (attempt - 1)
	if d > time.Minute {
		d = time.Minute
	}
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

func queueKey(prefix string) string {
	if prefix == "" {
		return "queue:" + queueName
	}
	return prefix + ":queue:" + queueName
}

func processingKey(prefix string) string {
	return queueKey(prefix) + ":processing"
}

func dlqKey(prefix string) string {
	return queueKey(prefix) + ":dlq"
}

func dedupKey(prefix, token string) string {
	if prefix == "" {
		return "queue:dedup:" + queueName + ":" + token
	}
	return prefix + ":dedup:" + queueName + ":" + token
}

func decodeMessage(raw string) (message, error) {
	var msg message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return message{}, err
	}
	return msg, nil
}

type message struct {
	Token       string `json:"token"`
	Attempt     int    `json:"attempt"`
	AvailableAt int64  `json:"available_at"`
}
