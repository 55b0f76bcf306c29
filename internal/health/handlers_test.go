package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	redisErr    error
	upstreamErr error
}

func (s stubChecker) PingRedis(context.Context, time.Duration) error    { return s.redisErr }
func (s stubChecker) PingUpstream(context.Context, time.Duration) error { return s.upstreamErr }

func TestLive(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler{}.Live(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReadyAllHealthy(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler{Checker: stubChecker{}}.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status["redis"])
	assert.Equal(t, "ok", status["upstream"])
}

func TestReadyUpstreamDown(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler{Checker: stubChecker{upstreamErr: errors.New("connection refused")}}.
		Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "connection refused", status["upstream"])
}

func TestReadyWithoutChecker(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler{}.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
