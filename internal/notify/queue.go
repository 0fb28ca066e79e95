package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultWorkers     = 2
	defaultBufferSize  = 256
	defaultSendTimeout = 30 * time.Second
	drainTimeout       = 30 * time.Second
)

// QueueOptions tunes an in-process Queue.
type QueueOptions struct {
	Workers     int
	BufferSize  int
	SendTimeout time.Duration
	Observer    Observer
}

func (o QueueOptions) normalized() QueueOptions {
	n := o
	if n.Workers <= 0 {
		n.Workers = defaultWorkers
	}
	if n.BufferSize <= 0 {
		n.BufferSize = defaultBufferSize
	}
	if n.SendTimeout <= 0 {
		n.SendTimeout = defaultSendTimeout
	}
	return n
}

// Queue is an in-process Dispatcher backed by a buffered channel.
// Notifications still buffered when the process exits are lost.
type Queue struct {
	items  chan Notification
	sender Sender
	opts   QueueOptions

	// mu orders sends on items against the shutdown drain.
	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a queue delivering through sender.
func NewQueue(sender Sender, opts QueueOptions) *Queue {
	if sender == nil {
		panic("notify: sender must not be nil")
	}
	opts = opts.normalized()
	return &Queue{
		items:  make(chan Notification, opts.BufferSize),
		sender: sender,
		opts:   opts,
	}
}

// Dispatch enqueues n without blocking.
func (q *Queue) Dispatch(ctx context.Context, n Notification) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.dropped(n)
		return ErrQueueClosed
	}
	select {
	case q.items <- n:
		return nil
	default:
		q.dropped(n)
		return ErrQueueFull
	}
}

// Len returns the number of buffered notifications.
func (q *Queue) Len() int {
	return len(q.items)
}

// Start runs the workers until ctx is cancelled, then delivers whatever is
// still buffered before returning.
func (q *Queue) Start(ctx context.Context) error {
	slog.Info("[Notify] Starting notification workers",
		"workers", q.opts.Workers,
		"buffer", q.opts.BufferSize)

	var wg sync.WaitGroup
	for i := 0; i < q.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.work(ctx)
		}()
	}
	wg.Wait()

	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	drained := 0
	for {
		select {
		case n := <-q.items:
			q.send(shutdownCtx, n)
			drained++
		default:
			slog.Info("[Notify] Notification workers stopped", "drained", drained)
			return nil
		}
	}
}

func (q *Queue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-q.items:
			q.send(ctx, n)
		}
	}
}

func (q *Queue) send(ctx context.Context, n Notification) {
	// Delivery of an accepted item outlives request cancellation.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.opts.SendTimeout)
	defer cancel()
	_ = deliver(sendCtx, q.sender, q.opts.Observer, n)
}

func (q *Queue) dropped(n Notification) {
	slog.Warn("[Notify] Dropping notification", "template", n.Template, "concept_id", n.ConceptID)
	if q.opts.Observer != nil {
		q.opts.Observer.NotificationProcessed(n.Template, ResultDropped)
	}
}
