package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsLimitThenRejects(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.False(t, limiter.Exceeded("fp"), "request %d", i+1)
	}
	assert.True(t, limiter.Exceeded("fp"))
	assert.True(t, limiter.Exceeded("fp"))
}

func TestRateLimiter_FirstObservationNeverExceeds(t *testing.T) {
	limiter := NewRateLimiter(0, time.Minute)

	assert.False(t, limiter.Exceeded("fp"))
	assert.True(t, limiter.Exceeded("fp"))
}

func TestRateLimiter_PerFingerprintIsolation(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)

	assert.False(t, limiter.Exceeded("a"))
	assert.True(t, limiter.Exceeded("a"))
	assert.False(t, limiter.Exceeded("b"))
	assert.Equal(t, 2, limiter.Len())
}

func TestRateLimiter_ResetRestoresAllowance(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)

	limiter.Exceeded("fp")
	require.True(t, limiter.Exceeded("fp"))

	limiter.Reset()
	assert.Equal(t, 0, limiter.Len())
	assert.False(t, limiter.Exceeded("fp"))
}

func TestRateLimiter_StartResetsEachWindow(t *testing.T) {
	limiter := NewRateLimiter(1, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = limiter.Start(ctx)
		close(done)
	}()

	limiter.Exceeded("fp")
	require.True(t, limiter.Exceeded("fp"))

	assert.Eventually(t, func() bool { return limiter.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, limiter.Exceeded("fp"))

	limiter.Stop()
	limiter.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reset loop did not stop")
	}
}

func TestRateLimiter_StartStopsOnContextCancel(t *testing.T) {
	limiter := NewRateLimiter(1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- limiter.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reset loop did not stop")
	}
}

func TestRateLimiter_ConcurrentCallsCountExactly(t *testing.T) {
	const limit = 50
	limiter := NewRateLimiter(limit, time.Minute)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		rejected int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Exceeded("shared") {
				mu.Lock()
				rejected++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 200-limit, rejected)
}

func TestRateLimiter_ConcurrentResetAndIncrement(t *testing.T) {
	limiter := NewRateLimiter(10, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			limiter.Exceeded(fmt.Sprintf("fp-%d", i%4))
		}(i)
		go func() {
			defer wg.Done()
			limiter.Reset()
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, limiter.Len(), 4)
}
