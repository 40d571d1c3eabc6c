package notifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dmitrymomot/vtn/pkg/logger"
)

// Drop logs per handle: one per second with a burst of five.
const (
	dropLogEvery = time.Second
	dropLogBurst = 5
)

// Handle is the enqueue side of one client's delivery pipeline.
// It is shared by the registry entry, producers and the forwarding loop;
// all methods are safe for concurrent use.
type Handle struct {
	id     string
	client ClientID
	queue  chan Notification
	policy Policy

	// ctx is cancelled to make the forwarding loop exit without draining.
	ctx    context.Context
	cancel context.CancelFunc

	// closing is closed first and turns new senders away. done follows once
	// every sender that got past the check has finished, so a notification
	// accepted before done is always seen by the forwarding loop's flush.
	closing   chan struct{}
	done      chan struct{}
	sendMu    sync.RWMutex
	closeOnce sync.Once

	// evictMu serializes DropOldest producers so that one eviction always
	// makes room for exactly one notification.
	evictMu sync.Mutex

	tel     *telemetry
	dropLog *rate.Limiter
}

type telemetry struct {
	logger  *slog.Logger
	metrics *Metrics
}

func newHandle(parent context.Context, client ClientID, capacity int, policy Policy, tel *telemetry) *Handle {
	ctx, cancel := context.WithCancel(parent)
	return &Handle{
		id:      uuid.New().String(),
		client:  client,
		queue:   make(chan Notification, max(capacity, 1)),
		policy:  policy,
		ctx:     ctx,
		cancel:  cancel,
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		tel:     tel,
		dropLog: rate.NewLimiter(rate.Every(dropLogEvery), dropLogBurst),
	}
}

// ID returns the unique identifier of the channel this handle feeds.
func (h *Handle) ID() string { return h.id }

// Client returns the client the handle was created for.
func (h *Handle) Client() ClientID { return h.client }

// Len returns the number of buffered notifications.
func (h *Handle) Len() int { return len(h.queue) }

// Cap returns the buffer capacity.
func (h *Handle) Cap() int { return cap(h.queue) }

// Done is closed once the handle stops accepting notifications.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) closed() bool {
	select {
	case <-h.closing:
		return true
	default:
		return false
	}
}

// TrySend enqueues n without blocking. Under BlockProducer it behaves like DropNewest.
func (h *Handle) TrySend(n Notification) PublishOutcome {
	h.sendMu.RLock()
	defer h.sendMu.RUnlock()

	if h.closed() {
		return NoSuchClient
	}
	if h.policy == DropOldest {
		return h.sendEvicting(n)
	}
	select {
	case h.queue <- n:
		return Delivered
	default:
		h.drop(dropOverflow, n, nil)
		return BufferFull
	}
}

// Send enqueues n according to the handle's policy. Only BlockProducer may
// suspend the caller, until there is room, the handle closes or ctx is done.
func (h *Handle) Send(ctx context.Context, n Notification) PublishOutcome {
	if h.policy != BlockProducer {
		return h.TrySend(n)
	}
	h.sendMu.RLock()
	defer h.sendMu.RUnlock()

	if h.closed() {
		return NoSuchClient
	}
	select {
	case h.queue <- n:
		return Delivered
	default:
	}
	select {
	case h.queue <- n:
		return Delivered
	case <-h.closing:
		return NoSuchClient
	case <-ctx.Done():
		h.drop(dropOverflow, n, ctx.Err())
		return BufferFull
	}
}

func (h *Handle) sendEvicting(n Notification) PublishOutcome {
	h.evictMu.Lock()
	defer h.evictMu.Unlock()

	for {
		select {
		case h.queue <- n:
			return Delivered
		default:
		}
		select {
		case old := <-h.queue:
			h.drop(dropEvicted, old, nil)
		default:
			// the forwarding loop took one meanwhile
		}
	}
}

// Close stops accepting notifications. The forwarding loop flushes what is
// already buffered and closes the socket normally. Close is idempotent.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		close(h.closing)
		h.sendMu.Lock()
		close(h.done)
		h.sendMu.Unlock()
	})
}

// Cancel makes the forwarding loop exit as soon as possible, discarding the buffer.
func (h *Handle) Cancel() {
	h.cancel()
	h.Close()
}

// discard empties the buffer of a closed handle and counts what it removed.
func (h *Handle) discard() int {
	n := 0
	for {
		select {
		case <-h.queue:
			n++
		default:
			if n > 0 {
				h.tel.metrics.Dropped.WithLabelValues(dropDiscarded).Add(float64(n))
			}
			return n
		}
	}
}

func (h *Handle) drop(reason string, n Notification, err error) {
	h.tel.metrics.Dropped.WithLabelValues(reason).Inc()
	if !h.dropLog.Allow() {
		return
	}
	h.tel.logger.Warn("notification dropped",
		logger.Component("notifier"),
		logger.ClientID(h.client),
		logger.SessionID(h.id),
		logger.NotificationType(n.Type),
		slog.String("reason", reason),
		slog.Int("buffered", len(h.queue)),
		logger.Error(err),
	)
}
