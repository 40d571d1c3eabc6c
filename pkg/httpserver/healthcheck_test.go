package httpserver_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/vtn/pkg/httpserver"
)

func TestHealthCheckHandler(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errors.New("closed") }

	tests := []struct {
		name     string
		checks   []httpserver.Check
		wantCode int
		wantBody string
	}{
		{name: "liveness", wantCode: http.StatusOK, wantBody: "ALIVE"},
		{name: "ready", checks: []httpserver.Check{ok, ok}, wantCode: http.StatusOK, wantBody: "READY"},
		{name: "not ready", checks: []httpserver.Check{ok, fail}, wantCode: http.StatusServiceUnavailable, wantBody: "NOT_READY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			httpserver.HealthCheckHandler(nil, tt.checks...).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		})
	}
}
