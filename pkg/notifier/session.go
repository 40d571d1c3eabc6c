package notifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/vtn/pkg/logger"
)

// Conn is the socket a forwarding loop owns. *websocket.Conn satisfies it.
type Conn interface {
	NextReader() (messageType int, r io.Reader, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// Reasons a forwarding loop stops, used for logging.
const (
	exitBufferClosed = "buffer_closed"
	exitCancelled    = "cancelled"
	exitPeerGone     = "peer_gone"
	exitWriteFailed  = "write_failed"
)

// session is the forwarding loop of one channel.
type session struct {
	handle   *Handle
	conn     Conn
	registry *Registry
	cfg      Config
	log      *slog.Logger
	metrics  *Metrics
}

// run drains the handle onto the socket until something ends the channel.
// Whatever the reason, the deferred cleanup deregisters the handle before
// the handle and the socket are released.
func (s *session) run() {
	started := time.Now()
	reason := exitPeerGone
	peerGone := make(chan struct{})

	defer func() {
		if p := recover(); p != nil {
			reason = fmt.Sprintf("panic: %v", p)
		}
		s.registry.Deregister(s.handle.client, s.handle)
		s.handle.Cancel()
		_ = s.conn.Close()
		<-peerGone
		discarded := s.handle.discard()

		s.metrics.ActiveChannels.Dec()
		s.metrics.SessionDuration.Observe(time.Since(started).Seconds())
		s.log.Info("notifier channel closed",
			slog.String("reason", reason),
			slog.Int("discarded", discarded),
			logger.Duration(time.Since(started)),
		)
	}()

	go s.readLoop(peerGone)

	var ping <-chan time.Time
	if every := s.cfg.pingInterval(); every > 0 {
		t := time.NewTicker(every)
		defer t.Stop()
		ping = t.C
	}

	for {
		select {
		case n := <-s.handle.queue:
			if err := s.forward(n); err != nil {
				reason = exitWriteFailed
				s.log.Debug("notification write failed", logger.Error(err))
				return
			}

		case <-ping:
			deadline := time.Now().Add(s.cfg.writeTimeout())
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				reason = exitWriteFailed
				s.log.Debug("keepalive ping failed", logger.Error(err))
				return
			}

		case <-peerGone:
			reason = exitPeerGone
			return

		case <-s.handle.ctx.Done():
			reason = exitCancelled
			s.closeWith(websocket.CloseGoingAway, "server going away")
			return

		case <-s.handle.done:
			if s.handle.ctx.Err() != nil {
				reason = exitCancelled
				s.closeWith(websocket.CloseGoingAway, "server going away")
				return
			}
			reason = exitBufferClosed
			if err := s.flush(); err != nil {
				reason = exitWriteFailed
				return
			}
			if s.registry.Closed() {
				s.closeWith(websocket.CloseGoingAway, "server shutting down")
			} else {
				s.closeWith(websocket.CloseNormalClosure, "")
			}
			return
		}
	}
}

// forward serializes n and writes it as one text frame. A notification that
// cannot be serialized is dropped and the channel keeps running; only a socket
// error is returned.
func (s *session) forward(n Notification) error {
	data, err := encode(n)
	if err != nil {
		s.handle.drop(dropSerialize, n, err)
		return nil
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.writeTimeout())); err != nil {
		return err
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	s.metrics.FramesWritten.Inc()
	return nil
}

// flush writes out what is still buffered after the handle was closed.
func (s *session) flush() error {
	for {
		select {
		case n := <-s.handle.queue:
			if err := s.forward(n); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (s *session) closeWith(code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.writeTimeout())); err != nil {
		s.log.Debug("close frame not sent", logger.Error(err))
	}
}

// readLoop consumes inbound frames so that control frames are processed.
// Data frames of any size are streamed into io.Discard, never buffered, and
// change nothing. It closes peerGone when the peer closes, the socket fails
// or the idle deadline passes.
func (s *session) readLoop(peerGone chan<- struct{}) {
	defer close(peerGone)

	idle := s.cfg.IdleTimeout
	extend := func() error {
		if idle <= 0 {
			return nil
		}
		return s.conn.SetReadDeadline(time.Now().Add(idle))
	}
	if err := extend(); err != nil {
		return
	}
	s.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, r, err := s.conn.NextReader()
		if err == nil {
			_, err = io.Copy(io.Discard, r)
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("notifier channel read ended", logger.Error(err))
			}
			return
		}
		if err := extend(); err != nil {
			return
		}
	}
}

type frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// encode turns n into the wire frame. Panics raised by custom marshalers are
// converted into ErrSerialize.
func encode(n Notification) (data []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			data, err = nil, fmt.Errorf("%w: panic: %v", ErrSerialize, p)
		}
	}()
	if n.Type == "" {
		return nil, errors.Join(ErrSerialize, errors.New("notification type is empty"))
	}
	data, err = json.Marshal(frame{Type: n.Type, Payload: n.Payload})
	if err != nil {
		return nil, errors.Join(ErrSerialize, err)
	}
	return data, nil
}
