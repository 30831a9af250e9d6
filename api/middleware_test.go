package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/empowerflow/portal/api"
	"github.com/empowerflow/portal/auth"
	"github.com/empowerflow/portal/generic"
	"github.com/stretchr/testify/assert"
)

var teapot = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

func TestSimulateLatency(t *testing.T) {
	rec := httptest.NewRecorder()
	start := time.Now()
	api.SimulateLatency(20*time.Millisecond)(teapot).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	// a cancelled request never reaches the handler
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec = httptest.NewRecorder()
	api.SimulateLatency(time.Hour)(teapot).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
	assert.Equal(t, http.StatusOK, rec.Code, "recorder default, handler not called")
}

func TestRequireRole(t *testing.T) {
	mw := api.RequireRole(auth.RoleHR, auth.RoleSuperAdmin)
	serve := func(ctx context.Context) int {
		rec := httptest.NewRecorder()
		mw(teapot).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(context.Background()))
	assert.Equal(t, http.StatusForbidden, serve(auth.WithIdentity(context.Background(), auth.Identity{Role: auth.RoleManager})))
	assert.Equal(t, http.StatusTeapot, serve(auth.WithIdentity(context.Background(), auth.Identity{Role: auth.RoleHR})))
}

func TestIPRateLimiter_PerKey(t *testing.T) {
	l := api.NewIPRateLimiter(0.001, 1)

	assert.True(t, l.Limiter("10.0.0.1").Allow())
	assert.False(t, l.Limiter("10.0.0.1").Allow())
	assert.True(t, l.Limiter("10.0.0.2").Allow())
	assert.Same(t, l.Limiter("10.0.0.1"), l.Limiter("10.0.0.1"))
}

func TestIPRateLimiter_DropsIdleAddresses(t *testing.T) {
	// GIVEN: Two addresses seen at the same moment
	// WHEN: One of them comes back after the idle window
	// THEN: The silent address is dropped and the returning one gets a fresh bucket

	clock := &generic.FixedClock{T: time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)}
	l := api.NewIPRateLimiterWithClock(1, 5, clock)

	first := l.Limiter("10.0.0.1")
	l.Limiter("10.0.0.2")
	assert.Equal(t, 2, l.Len())

	clock.T = clock.T.Add(5 * time.Minute)
	assert.Same(t, first, l.Limiter("10.0.0.1"), "still within the idle window")

	clock.T = clock.T.Add(10 * time.Minute)
	assert.NotSame(t, first, l.Limiter("10.0.0.1"))
	assert.Equal(t, 1, l.Len())
}
