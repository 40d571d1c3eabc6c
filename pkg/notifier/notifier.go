package notifier

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/vtn/pkg/logger"
)

// Publisher is the interface other VTN subsystems use to reach clients.
type Publisher interface {
	// Publish enqueues n for one client.
	Publish(ctx context.Context, id ClientID, n Notification) PublishOutcome
	// PublishMany enqueues n for each listed client; absent clients count as NoSuchClient.
	PublishMany(ctx context.Context, ids []ClientID, n Notification) BroadcastResult
	// Broadcast enqueues n for every connected client matched by filter.
	Broadcast(ctx context.Context, filter Filter, n Notification) BroadcastResult
}

// Identifier extracts the authenticated client from an upgrade request.
// It returns ErrUnauthenticated when there is no valid session and
// ErrNoClientID when the session carries no client identity.
type Identifier func(r *http.Request) (ClientID, error)

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the logger. Nil keeps the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.log = l
		}
	}
}

// WithMetrics sets the prometheus collectors. Nil keeps unregistered ones.
func WithMetrics(m *Metrics) Option {
	return func(n *Notifier) {
		if m != nil {
			n.metrics = m
		}
	}
}

// WithIdentifier sets how upgrade requests are mapped to clients. Required.
func WithIdentifier(id Identifier) Option {
	return func(n *Notifier) { n.identify = id }
}

// WithUpgrader replaces the websocket upgrader built from Config.
func WithUpgrader(u *websocket.Upgrader) Option {
	return func(n *Notifier) {
		if u != nil {
			n.upgrader = u
		}
	}
}

// Notifier owns the registry and the forwarding loops of all channels.
type Notifier struct {
	cfg      Config
	registry *Registry
	identify Identifier
	upgrader *websocket.Upgrader
	log      *slog.Logger
	metrics  *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	// mu orders reservations before Close so wg.Add never races wg.Wait.
	// wg counts admitted handles, from reservation until the forwarding
	// loop ends or the reservation is released.
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

var _ Publisher = (*Notifier)(nil)

// New validates cfg and returns a running Notifier.
func New(cfg Config, opts ...Option) (*Notifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		cfg:      cfg,
		registry: NewRegistry(),
		upgrader: newUpgrader(cfg.AllowedOrigins),
		log:      slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.identify == nil {
		cancel()
		return nil, ErrMissingIdentifier
	}
	if n.metrics == nil {
		n.metrics = NewMetrics(nil)
	}
	n.log = n.log.With(logger.Component("notifier"))
	return n, nil
}

// Publish enqueues n on the channel bound to id.
func (n *Notifier) Publish(ctx context.Context, id ClientID, msg Notification) PublishOutcome {
	out := NoSuchClient
	if h, ok := n.registry.Lookup(id); ok {
		out = h.Send(ctx, msg)
	}
	n.metrics.Published.WithLabelValues(out.String()).Inc()
	return out
}

// PublishMany enqueues n for every listed client. Duplicate IDs are offered once.
func (n *Notifier) PublishMany(ctx context.Context, ids []ClientID, msg Notification) BroadcastResult {
	var res BroadcastResult
	seen := make(map[ClientID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		res.add(n.Publish(ctx, id, msg))
	}
	return res
}

// Broadcast enqueues n for every connected client matched by filter.
func (n *Notifier) Broadcast(ctx context.Context, filter Filter, msg Notification) BroadcastResult {
	res := n.registry.Broadcast(ctx, filter, msg)
	n.metrics.Published.WithLabelValues(Delivered.String()).Add(float64(res.Accepted))
	n.metrics.Published.WithLabelValues(NoSuchClient.String()).Add(float64(res.NoSuchClient))
	n.metrics.Published.WithLabelValues(BufferFull.String()).Add(float64(res.Dropped))
	return res
}

// Connected reports whether a channel is bound to id.
func (n *Notifier) Connected(id ClientID) bool {
	_, ok := n.registry.Lookup(id)
	return ok
}

// Clients returns the connected client IDs in ascending order.
func (n *Notifier) Clients() []ClientID {
	return n.registry.Clients()
}

// Disconnect cancels the channel bound to id. The forwarding loop sends a
// going-away close frame and removes the binding. It reports whether a
// channel was bound.
func (n *Notifier) Disconnect(id ClientID) bool {
	h, ok := n.registry.Lookup(id)
	if ok {
		h.Cancel()
	}
	return ok
}

// Attach binds conn to id and starts its forwarding loop. It is the
// transport-agnostic part of the upgrade handler.
func (n *Notifier) Attach(id ClientID, conn Conn) (*Handle, error) {
	h, err := n.reserve(id)
	if err != nil {
		return nil, err
	}
	n.serve(h, conn)
	return h, nil
}

// reserve creates a handle and binds it to id.
func (n *Notifier) reserve(id ClientID) (*Handle, error) {
	h := newHandle(n.ctx, id, n.cfg.BufferCapacity, n.cfg.Backpressure, &telemetry{logger: n.log, metrics: n.metrics})

	n.mu.Lock()
	out := Closed
	if !n.closing {
		out = n.registry.Register(id, h)
	}
	if out == Admitted {
		n.wg.Add(1)
	}
	n.mu.Unlock()

	n.metrics.Admissions.WithLabelValues(out.String()).Inc()
	switch out {
	case Admitted:
		return h, nil
	case Conflict:
		h.Cancel()
		return nil, ErrChannelConflict
	default:
		h.Cancel()
		return nil, ErrClosed
	}
}

// release undoes reserve when the channel never started.
func (n *Notifier) release(h *Handle) {
	n.registry.Deregister(h.client, h)
	h.Cancel()
	n.wg.Done()
}

// serve spawns the forwarding loop that owns conn from now on.
func (n *Notifier) serve(h *Handle, conn Conn) {
	s := &session{
		handle:   h,
		conn:     conn,
		registry: n.registry,
		cfg:      n.cfg,
		metrics:  n.metrics,
		log: n.log.With(
			logger.ClientID(h.client),
			logger.SessionID(h.id),
		),
	}
	n.metrics.ActiveChannels.Inc()
	s.log.Info("notifier channel opened")

	go func() {
		defer n.wg.Done()
		s.run()
	}()
}

// Ready reports ErrClosed once Close has been called. It backs the
// readiness probe.
func (n *Notifier) Ready(context.Context) error {
	if n.registry.Closed() {
		return ErrClosed
	}
	return nil
}

// Close stops admissions, flushes and closes every channel, and waits for the
// forwarding loops to finish. When ctx expires first, the remaining channels
// are cancelled and Close returns ctx's error once they are gone.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	n.closing = true
	n.mu.Unlock()
	n.registry.Close()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		n.cancel()
		return nil
	case <-ctx.Done():
		n.cancel()
		<-done
		return ctx.Err()
	}
}

func newUpgrader(origins []string) *websocket.Upgrader {
	u := &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}
	switch {
	case len(origins) == 0:
		// gorilla's same-origin check
	case slices.Contains(origins, "*"):
		u.CheckOrigin = func(*http.Request) bool { return true }
	default:
		u.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(origins, origin)
		}
	}
	return u
}
