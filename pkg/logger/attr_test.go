package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/vtn/pkg/logger"
)

type stringer string

func (s stringer) String() string { return string(s) }

func TestGroup(t *testing.T) {
	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	assert.Len(t, attr.Value.Group(), 2)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	assert.True(t, logger.Errors(nil).Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())
	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestClientID(t *testing.T) {
	attr := logger.ClientID(stringer("ven-1"))
	require.Equal(t, "client_id", attr.Key)
	assert.Equal(t, "ven-1", attr.Value.String())

	assert.True(t, logger.ClientID(stringer("")).Equal(slog.Attr{}))
	assert.True(t, logger.ClientID(nil).Equal(slog.Attr{}))
	assert.Equal(t, int64(7), logger.ClientID(7).Value.Any())
}

func TestSessionAndRequestID(t *testing.T) {
	assert.Equal(t, "session_id", logger.SessionID("abc").Key)
	assert.True(t, logger.SessionID("").Equal(slog.Attr{}))
	assert.Equal(t, "request_id", logger.RequestID("r-1").Key)
	assert.True(t, logger.RequestID("").Equal(slog.Attr{}))
}

func TestNotificationType(t *testing.T) {
	attr := logger.NotificationType("event")
	assert.Equal(t, "notification_type", attr.Key)
	assert.Equal(t, "event", attr.Value.String())
}
