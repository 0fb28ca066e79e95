package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultStream   = "draftflow:notifications"
	defaultGroup    = "draftflow-notifiers"
	readBlock       = 5 * time.Second
	readErrorPause  = time.Second
	pendingIdleTime = time.Minute
	reclaimEvery    = 30 * time.Second
	reclaimBatch    = 100
)

// RedisOptions configures a RedisQueue.
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int

	Stream   string
	Group    string
	Consumer string

	Workers     int
	SendTimeout time.Duration
	Observer    Observer

	// ClaimIdle is how long a delivered message may stay unacknowledged
	// before another worker takes it over. ReclaimInterval is how often
	// pending messages are checked.
	ClaimIdle       time.Duration
	ReclaimInterval time.Duration
}

// RedisQueue is a Dispatcher backed by a Redis stream. Dispatch appends with
// XADD; workers read through a consumer group and XACK after delivery, so
// notifications survive restarts and are shared between replicas.
type RedisQueue struct {
	client *redis.Client
	sender Sender
	opts   RedisOptions
}

// NewRedisQueue connects to Redis and ensures the consumer group exists.
func NewRedisQueue(ctx context.Context, sender Sender, opts RedisOptions) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	q, err := newRedisQueue(client, sender, opts)
	if err != nil {
		client.Close()
		return nil, err
	}
	if err := q.ensureGroup(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return q, nil
}

func newRedisQueue(client *redis.Client, sender Sender, opts RedisOptions) (*RedisQueue, error) {
	if sender == nil {
		return nil, errors.New("notify: sender must not be nil")
	}
	if opts.Stream == "" {
		opts.Stream = defaultStream
	}
	if opts.Group == "" {
		opts.Group = defaultGroup
	}
	if opts.Consumer == "" {
		opts.Consumer = "draftflow"
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.ClaimIdle <= 0 {
		opts.ClaimIdle = pendingIdleTime
	}
	if opts.ReclaimInterval <= 0 {
		opts.ReclaimInterval = reclaimEvery
	}
	return &RedisQueue{client: client, sender: sender, opts: opts}, nil
}

// Dispatch appends n to the stream.
func (q *RedisQueue) Dispatch(ctx context.Context, n Notification) error {
	id, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.opts.Stream,
		Values: n.values(),
	}).Result()
	if err != nil {
		if q.opts.Observer != nil {
			q.opts.Observer.NotificationProcessed(n.Template, ResultDropped)
		}
		return fmt.Errorf("failed to XADD to stream %s: %w", q.opts.Stream, err)
	}
	slog.Debug("[Notify] Notification queued", "stream", q.opts.Stream, "message_id", id)
	return nil
}

// Start consumes the stream until ctx is cancelled.
func (q *RedisQueue) Start(ctx context.Context) error {
	slog.Info("[Notify] Starting Redis stream workers",
		"stream", q.opts.Stream,
		"group", q.opts.Group,
		"consumer", q.opts.Consumer,
		"workers", q.opts.Workers)

	var wg sync.WaitGroup
	for i := 0; i < q.opts.Workers; i++ {
		wg.Add(1)
		consumer := q.consumerName(i)
		go func() {
			defer wg.Done()
			q.work(ctx, consumer)
		}()
	}

	// Messages left pending by a crashed worker or replica are retried.
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.reclaimLoop(ctx, q.consumerName(0))
	}()
	wg.Wait()

	slog.Info("[Notify] Redis stream workers stopped", "stream", q.opts.Stream)
	return nil
}

// Close releases the Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Ping checks Redis connectivity.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.opts.Stream, q.opts.Group, "0").Err()
	if err != nil && !isBusyGroupError(err) {
		return fmt.Errorf("failed to create consumer group %s: %w", q.opts.Group, err)
	}
	return nil
}

func (q *RedisQueue) work(ctx context.Context, consumer string) {
	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.opts.Group,
			Consumer: consumer,
			Streams:  []string{q.opts.Stream, ">"},
			Count:    1,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			slog.Error("[Notify] XREADGROUP failed", "error", err, "stream", q.opts.Stream)
			select {
			case <-ctx.Done():
			case <-time.After(readErrorPause):
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.process(ctx, msg)
			}
		}
	}
}

// consumerName is the group consumer used by worker i.
func (q *RedisQueue) consumerName(i int) string {
	return fmt.Sprintf("%s-%d", q.opts.Consumer, i)
}

func (q *RedisQueue) reclaimLoop(ctx context.Context, consumer string) {
	ticker := time.NewTicker(q.opts.ReclaimInterval)
	defer ticker.Stop()

	for {
		q.reclaim(ctx, consumer)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// reclaim claims messages idle for at least ClaimIdle into consumer and
// processes them. It returns the number of messages processed.
func (q *RedisQueue) reclaim(ctx context.Context, consumer string) int {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.opts.Stream,
		Group:  q.opts.Group,
		Start:  "-",
		End:    "+",
		Count:  reclaimBatch,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("[Notify] Failed to list pending notifications", "error", err)
		}
		return 0
	}
	var ids []string
	for _, p := range pending {
		if p.Idle >= q.opts.ClaimIdle {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return 0
	}

	// XCLAIM re-checks MinIdle, so a message a live worker just touched stays put.
	msgs, err := q.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   q.opts.Stream,
		Group:    q.opts.Group,
		Consumer: consumer,
		MinIdle:  q.opts.ClaimIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("[Notify] Failed to claim pending notifications", "error", err)
		}
		return 0
	}
	if len(msgs) > 0 {
		slog.Info("[Notify] Reclaimed pending notifications", "count", len(msgs), "consumer", consumer)
	}
	for _, msg := range msgs {
		q.process(ctx, msg)
	}
	return len(msgs)
}

// process delivers one message. Messages are acknowledged after a delivery
// attempt whatever its outcome; undecodable messages are acknowledged too.
func (q *RedisQueue) process(ctx context.Context, msg redis.XMessage) {
	n, err := notificationFromValues(msg.Values)
	if err != nil {
		slog.Error("[Notify] Discarding malformed stream message", "error", err, "message_id", msg.ID)
	} else {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.opts.SendTimeout)
		_ = deliver(sendCtx, q.sender, q.opts.Observer, n)
		cancel()
	}

	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := q.client.XAck(ackCtx, q.opts.Stream, q.opts.Group, msg.ID).Err(); err != nil {
		slog.Error("[Notify] Failed to XACK message", "error", err, "message_id", msg.ID)
	}
}

func isBusyGroupError(err error) bool {
	return err != nil && strings.Contains(strings.ToUpper(err.Error()), "BUSYGROUP")
}
