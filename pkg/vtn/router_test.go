package vtn_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/vtn/handler"
	"github.com/dmitrymomot/vtn/pkg/jwt"
	"github.com/dmitrymomot/vtn/pkg/logger"
	"github.com/dmitrymomot/vtn/pkg/notifier"
	"github.com/dmitrymomot/vtn/pkg/vtn"
)

const waitFor = 2 * time.Second

type testEnv struct {
	notifier *notifier.Notifier
	tokens   *jwt.Service
	metrics  *notifier.Metrics
	url      string
}

func newEnv(t *testing.T, cfg notifier.Config) *testEnv {
	t.Helper()

	tokens, err := jwt.NewFromString("test-signing-key")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := notifier.NewMetrics(reg)
	n, err := notifier.New(cfg,
		notifier.WithLogger(logger.Discard()),
		notifier.WithMetrics(m),
		notifier.WithIdentifier(vtn.ClientIdentifier),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(vtn.NewRouter(vtn.RouterConfig{
		Notifier: n,
		Tokens:   tokens,
		Gatherer: reg,
	}))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = n.Close(ctx)
		srv.Close()
	})

	return &testEnv{notifier: n, tokens: tokens, metrics: m, url: srv.URL}
}

func (e *testEnv) token(t *testing.T, sub string) string {
	t.Helper()
	token, err := e.tokens.Issue(sub, jwt.Role{Role: jwt.RoleVEN, ID: sub})
	require.NoError(t, err)
	return token
}

func (e *testEnv) wsURL() string {
	return "ws" + strings.TrimPrefix(e.url, "http") + "/notifiers/websocket"
}

func (e *testEnv) dial(t *testing.T, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(e.wsURL(), header)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func (e *testEnv) connect(t *testing.T, client string) *websocket.Conn {
	t.Helper()
	conn, _, err := e.dial(t, e.token(t, client))
	require.NoError(t, err)
	return conn
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, mt)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func problem(t *testing.T, resp *http.Response) handler.ProblemDetails {
	t.Helper()
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, handler.ProblemContentType, resp.Header.Get("Content-Type"))
	var p handler.ProblemDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	return p
}

func evt(payload any) notifier.Notification {
	return notifier.Notification{Type: "evt", Payload: payload}
}

func TestCapabilities(t *testing.T) {
	t.Parallel()
	env := newEnv(t, notifier.DefaultConfig())

	for _, path := range []string{"/notifiers", "/notifiers/"} {
		resp, err := http.Get(env.url + path)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.JSONEq(t, `{"websocket":true}`, string(body), path)
	}
}

// E1
func TestPublishInOrder(t *testing.T) {
	t.Parallel()
	env := newEnv(t, notifier.DefaultConfig())
	conn := env.connect(t, "ven-a")

	require.Equal(t, notifier.Delivered, env.notifier.Publish(context.Background(), "ven-a", evt(1)))
	require.Equal(t, notifier.Delivered, env.notifier.Publish(context.Background(), "ven-a", evt(2)))

	for _, want := range []string{"1", "2"} {
		f := read(t, conn)
		assert.Equal(t, "evt", f.Type)
		assert.JSONEq(t, want, string(f.Payload))
	}
}

// E2
func TestSecondChannelConflicts(t *testing.T) {
	t.Parallel()
	env := newEnv(t, notifier.DefaultConfig())
	token := env.token(t, "ven-a")

	first, _, err := env.dial(t, token)
	require.NoError(t, err)

	_, resp, err := env.dial(t, token)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	p := problem(t, resp)
	assert.Equal(t, "notifier_channel_conflict", p.Code)
	assert.Equal(t, "notifier channel already open for this client", p.Message)

	require.Equal(t, notifier.Delivered, env.notifier.Publish(context.Background(), "ven-a", evt("still-live")))
	assert.JSONEq(t, `"still-live"`, string(read(t, first).Payload))
}

// E3
func TestDroppedSocketIsDeregistered(t *testing.T) {
	t.Parallel()
	env := newEnv(t, notifier.DefaultConfig())
	conn := env.connect(t, "ven-a")
	require.True(t, env.notifier.Connected("ven-a"))

	require.NoError(t, conn.UnderlyingConn().Close())

	require.Eventually(t, func() bool {
		return env.notifier.Publish(context.Background(), "ven-a", evt(1)) == notifier.NoSuchClient
	}, waitFor, 10*time.Millisecond)
	assert.NotContains(t, env.notifier.Clients(), notifier.ClientID("ven-a"))

	// The client can reconnect.
	env.connect(t, "ven-a")
}

// E4
func TestSlowConsumerDropsNewest(t *testing.T) {
	t.Parallel()
	cfg := notifier.DefaultConfig()
	cfg.BufferCapacity = 2
	cfg.Backpressure = notifier.DropNewest
	env := newEnv(t, cfg)
	conn := env.connect(t, "ven-a")

	// Large frames fill the socket buffers while the client is not reading.
	filler := strings.Repeat("x", 128<<10)
	var accepted []int
	dropped := 0
	for i := range 200 {
		switch env.notifier.Publish(context.Background(), "ven-a", evt(map[string]any{"seq": i, "fill": filler})) {
		case notifier.Delivered:
			accepted = append(accepted, i)
		case notifier.BufferFull:
			dropped++
		}
	}
	require.Positive(t, dropped, "a full buffer drops new notifications")
	require.GreaterOrEqual(t, len(accepted), 2)
	assert.Equal(t, []int{0, 1}, accepted[:2])

	for _, want := range accepted {
		var p struct {
			Seq int `json:"seq"`
		}
		require.NoError(t, json.Unmarshal(read(t, conn).Payload, &p))
		require.Equal(t, want, p.Seq, "delivered notifications keep the accepted order")
	}

	resp, err := http.Get(env.url + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Contains(t, string(body), fmt.Sprintf(`vtn_notifier_dropped_total{reason="overflow"} %d`, dropped))
}

// E5
func TestCancellationClosesChannel(t *testing.T) {
	t.Parallel()
	env := newEnv(t, notifier.DefaultConfig())
	conn := env.connect(t, "ven-a")

	require.True(t, env.notifier.Disconnect("ven-a"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	require.Eventually(t, func() bool { return !env.notifier.Connected("ven-a") }, waitFor, 5*time.Millisecond)
}

// E6
func TestBroadcastReachesEveryClient(t *testing.T) {
	t.Parallel()
	env := newEnv(t, notifier.DefaultConfig())

	const clients = 100
	conns := make([]*websocket.Conn, clients)
	for i := range conns {
		conns[i] = env.connect(t, fmt.Sprintf("ven-%03d", i))
	}
	require.Len(t, env.notifier.Clients(), clients)

	res := env.notifier.Broadcast(context.Background(), notifier.All(), evt("m"))
	assert.Equal(t, notifier.BroadcastResult{Accepted: clients}, res)

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = conn.SetReadDeadline(time.Now().Add(waitFor))
			_, data, err := conn.ReadMessage()
			if !assert.NoError(t, err) {
				return
			}
			assert.JSONEq(t, `{"type":"evt","payload":"m"}`, string(data))

			// Exactly one frame.
			_ = conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
			_, _, err = conn.ReadMessage()
			assert.Error(t, err)
		}()
	}
	wg.Wait()
}

func TestUpgradeAuth(t *testing.T) {
	t.Parallel()
	env := newEnv(t, notifier.DefaultConfig())

	t.Run("missing token", func(t *testing.T) {
		_, resp, err := env.dial(t, "")
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "unauthorized", problem(t, resp).Code)
	})

	t.Run("bad signature", func(t *testing.T) {
		other, err := jwt.NewFromString("another-key")
		require.NoError(t, err)
		token, err := other.Issue("ven-a")
		require.NoError(t, err)

		_, resp, err := env.dial(t, token)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("token without subject", func(t *testing.T) {
		token, err := env.tokens.Generate(jwt.Claims{
			StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()},
			Roles:          []jwt.Role{{Role: jwt.RoleAnyBusiness}},
		})
		require.NoError(t, err)

		_, resp, err := env.dial(t, token)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "forbidden", problem(t, resp).Code)
	})

	t.Run("query parameter token", func(t *testing.T) {
		url := env.wsURL() + "?" + vtn.AccessTokenParam + "=" + env.token(t, "ven-query")
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer conn.Close()
		assert.True(t, env.notifier.Connected("ven-query"))
	})
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	env := newEnv(t, notifier.DefaultConfig())
	env.connect(t, "ven-a")

	get := func(path string) (int, string) {
		resp, err := http.Get(env.url + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, body := get("/health/live")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ALIVE", body)

	code, body = get("/health/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "READY", body)

	code, body = get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "vtn_notifier_active_channels 1")
	assert.Contains(t, body, `vtn_notifier_admissions_total{outcome="admitted"} 1`)

	code, _ = get("/nope")
	assert.Equal(t, http.StatusNotFound, code)

	require.NoError(t, env.notifier.Close(context.Background()))
	code, body = get("/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "NOT_READY", body)
}

func TestRequestIDExtractor(t *testing.T) {
	t.Parallel()

	_, ok := vtn.RequestIDExtractor(context.Background())
	assert.False(t, ok)

	var got slog.Attr
	h := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = vtn.RequestIDExtractor(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "request_id", got.Key)
	assert.Equal(t, "req-42", got.Value.String())
}
