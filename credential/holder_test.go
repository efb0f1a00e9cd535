package credential

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingFetcher issues tokens "t1", "t2", ... valid for ttl.
type countingFetcher struct {
	mu    sync.Mutex
	clock *fakeClock
	ttl   time.Duration
	calls int
	err   error
}

func (f *countingFetcher) FetchToken(context.Context) (Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return Token{}, f.err
	}
	return Token{Value: "t" + strconv.Itoa(f.calls), ExpiresAt: f.clock.Now().Add(f.ttl)}, nil
}

func (f *countingFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestHolder(ttl time.Duration) (*Holder, *countingFetcher, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	f := &countingFetcher{clock: clock, ttl: ttl}
	return NewHolder(f, WithClock(clock.Now), quiet()), f, clock
}

func TestHolder_CachesUntilSkew(t *testing.T) {
	h, f, clock := newTestHolder(time.Minute)
	ctx := context.Background()
	assert.False(t, h.Valid())

	tok, err := h.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", tok)
	assert.True(t, h.Valid())

	clock.Advance(45 * time.Second)
	tok, err = h.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", tok)
	assert.Equal(t, 1, f.Calls())

	// 5s left, inside the default 10s skew.
	clock.Advance(10 * time.Second)
	assert.False(t, h.Valid())
	tok, err = h.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t2", tok)
	assert.Equal(t, 2, f.Calls())
}

func TestHolder_WithSkew(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	f := &countingFetcher{clock: clock, ttl: time.Minute}
	h := NewHolder(f, WithClock(clock.Now), WithSkew(0), quiet())

	_, err := h.Token(context.Background())
	require.NoError(t, err)
	clock.Advance(59 * time.Second)
	assert.True(t, h.Valid())
	clock.Advance(time.Second)
	assert.False(t, h.Valid())
}

func TestHolder_RefreshAndInvalidate(t *testing.T) {
	h, f, _ := newTestHolder(time.Hour)
	ctx := context.Background()

	_, err := h.Token(ctx)
	require.NoError(t, err)
	tok, err := h.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t2", tok)

	h.Invalidate()
	assert.False(t, h.Valid())
	tok, err = h.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t3", tok)
	assert.Equal(t, 3, f.Calls())
}

func TestHolder_FetchError(t *testing.T) {
	h, f, _ := newTestHolder(time.Hour)
	denied := errors.New("denied")
	f.err = denied

	_, err := h.Token(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, denied)
	assert.Contains(t, err.Error(), "credential: refresh token")
	assert.False(t, h.Valid())
}

func TestHolder_EmptyToken(t *testing.T) {
	h := NewHolder(FetcherFunc(func(context.Context) (Token, error) {
		return Token{ExpiresAt: time.Now().Add(time.Hour)}, nil
	}), quiet())
	_, err := h.Token(context.Background())
	require.ErrorIs(t, err, ErrEmptyToken)
}

func TestHolder_ConcurrentCallersShareRefresh(t *testing.T) {
	h, f, _ := newTestHolder(time.Hour)
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := h.Token(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "t1", tok)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, f.Calls())
}

func TestOptions_IgnoreInvalid(t *testing.T) {
	h := NewHolder(FetcherFunc(func(context.Context) (Token, error) { return Token{}, nil }),
		WithClock(nil), WithSkew(-time.Second), WithLogger(nil))
	assert.NotNil(t, h.now)
	assert.Equal(t, DefaultSkew, h.skew)
	assert.NotNil(t, h.logger)
}
