package notifier

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/vtn/pkg/logger"
)

var (
	errFakeClosed  = errors.New("fake conn: closed")
	errFakeTimeout = errors.New("fake conn: i/o timeout")
)

// fakeConn is an in-memory Conn. Closing inbound simulates a peer close
// frame; gate, when set, holds every data write until a token arrives.
type fakeConn struct {
	inbound chan []byte
	written chan []byte
	gate    chan struct{}

	mu            sync.Mutex
	controls      []int
	closeCode     int
	writeErr      error
	readDeadline  time.Time
	writeDeadline time.Time
	bytesRead     int

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		written: make(chan []byte, 1024),
		closed:  make(chan struct{}),
	}
}

func deadlineChan(dl time.Time) (<-chan time.Time, func()) {
	if dl.IsZero() {
		return nil, func() {}
	}
	t := time.NewTimer(time.Until(dl))
	return t.C, func() { t.Stop() }
}

// NextReader hands out inbound frames in small chunks so that a reader
// relying on a single Read call would see a partial frame.
func (c *fakeConn) NextReader() (int, io.Reader, error) {
	c.mu.Lock()
	dl := c.readDeadline
	c.mu.Unlock()

	timeout, stop := deadlineChan(dl)
	defer stop()
	select {
	case b, ok := <-c.inbound:
		if !ok {
			return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
		}
		return websocket.TextMessage, &countingReader{r: bytes.NewReader(b), conn: c}, nil
	case <-c.closed:
		return 0, nil, errFakeClosed
	case <-timeout:
		return 0, nil, errFakeTimeout
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	err, dl, gate := c.writeErr, c.writeDeadline, c.gate
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if gate != nil {
		timeout, stop := deadlineChan(dl)
		defer stop()
		select {
		case <-gate:
		case <-c.closed:
			return errFakeClosed
		case <-timeout:
			return errFakeTimeout
		}
	}
	select {
	case <-c.closed:
		return errFakeClosed
	default:
	}
	c.written <- append([]byte(nil), data...)
	return nil
}

func (c *fakeConn) WriteControl(messageType int, data []byte, _ time.Time) error {
	select {
	case <-c.closed:
		return errFakeClosed
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = append(c.controls, messageType)
	if messageType == websocket.CloseMessage && len(data) >= 2 {
		c.closeCode = int(binary.BigEndian.Uint16(data))
	}
	return nil
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.readDeadline = t
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	c.writeDeadline = t
	c.mu.Unlock()
	return nil
}

// countingReader records how much of each inbound frame was consumed.
type countingReader struct {
	r    io.Reader
	conn *fakeConn
}

func (r *countingReader) Read(p []byte) (int, error) {
	if len(p) > 512 {
		p = p[:512]
	}
	n, err := r.r.Read(p)
	r.conn.mu.Lock()
	r.conn.bytesRead += n
	r.conn.mu.Unlock()
	return n, err
}

func (c *fakeConn) consumed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytesRead
}

func (c *fakeConn) SetPongHandler(func(string) error) {}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) failWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

func (c *fakeConn) hold() chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate = make(chan struct{})
	return c.gate
}

func (c *fakeConn) getCloseCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

func (c *fakeConn) count(messageType int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.controls {
		if t == messageType {
			n++
		}
	}
	return n
}

type wireFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// next waits for the next data frame written to c.
func (c *fakeConn) next(t *testing.T) wireFrame {
	t.Helper()
	select {
	case b := <-c.written:
		var f wireFrame
		require.NoError(t, json.Unmarshal(b, &f))
		return f
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no frame written")
		return wireFrame{}
	}
}

// none asserts that no data frame is written within d.
func (c *fakeConn) none(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case b := <-c.written:
		require.FailNow(t, "unexpected frame", string(b))
	case <-time.After(d):
	}
}

func headerIdentifier(r *http.Request) (ClientID, error) {
	return ClientID(r.Header.Get("X-Client-ID")), nil
}

func newTestNotifier(t *testing.T, cfg Config, opts ...Option) *Notifier {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Discard()), WithIdentifier(headerIdentifier)}, opts...)
	n, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = n.Close(ctx)
	})
	return n
}

func testTelemetry() *telemetry {
	return &telemetry{logger: logger.Discard(), metrics: NewMetrics(nil)}
}

func evt(i int) Notification {
	return Notification{Type: "evt", Payload: i}
}
