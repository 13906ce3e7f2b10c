package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func serve(t *testing.T, fn http.HandlerFunc) (int, response) {
	t.Helper()
	w := httptest.NewRecorder()
	fn(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

// toggle fails while its flag is set.
type toggle struct{ failing atomic.Bool }

func (c *toggle) check(context.Context) error {
	if c.failing.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestLiveness(t *testing.T) {
	h := New()
	var db toggle
	h.Register(Liveness, "db", db.check)

	status, body := serve(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body.Status)

	db.failing.Store(true)
	p := h.probes[0]
	p.observe(context.Background())
	p.observe(context.Background())

	status, _ = serve(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, status, "below failure threshold")

	p.observe(context.Background())
	status, body = serve(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])

	db.failing.Store(false)
	p.observe(context.Background())
	status, _ = serve(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, status)
}

func TestThresholds(t *testing.T) {
	h := New()
	var c toggle
	c.failing.Store(true)
	h.Register(Readiness, "cache", c.check, WithThresholds(1, 2))
	h.SetReady(true)
	p := h.probes[0]

	p.observe(context.Background())
	assert.False(t, h.IsReady())

	c.failing.Store(false)
	p.observe(context.Background())
	assert.False(t, h.IsReady(), "one success is below threshold")
	p.observe(context.Background())
	assert.True(t, h.IsReady())
}

func TestReadinessGate(t *testing.T) {
	h := New()
	h.Register(Readiness, "db", func(context.Context) error { return nil })

	status, body := serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body.Checks, "_readiness")

	h.SetReady(true)
	status, body = serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body.Checks)

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestKindsAreSeparate(t *testing.T) {
	h := New()
	h.Register(Readiness, "db", func(context.Context) error { return errors.New("down") }, WithThresholds(1, 1))
	h.SetReady(true)
	h.probes[0].observe(context.Background())

	status, _ := serve(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, status)
	status, body := serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "down", body.Checks["db"])
}

func TestTimeout(t *testing.T) {
	h := New()
	h.Register(Liveness, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithTimeout(10*time.Millisecond), WithThresholds(1, 1))

	h.probes[0].observe(context.Background())
	status, body := serve(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, context.DeadlineExceeded.Error(), body.Checks["slow"])
}

func TestStartStop(t *testing.T) {
	h := New()
	var runs atomic.Int32
	h.Register(Liveness, "counter", func(context.Context) error {
		runs.Add(1)
		return nil
	})

	h.Start(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	h.Stop()

	stopped := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())

	h.Stop()
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, PingCheck(pinger{})(ctx))
	err := PingCheck(pinger{err: errors.New("refused")})(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")

	require.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	require.Error(t, GoroutineCountCheck(0)(ctx))
}
