// Package credential keeps a short-lived bearer token fresh for model calls.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultSkew is how long before expiry a token is considered stale.
const DefaultSkew = 10 * time.Second

// ErrEmptyToken is returned when a Fetcher returns a token without a value.
var ErrEmptyToken = errors.New("credential: fetched token is empty")

// Token is a bearer token and the time it stops being valid.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Fetcher obtains a new token from the identity provider.
type Fetcher interface {
	FetchToken(ctx context.Context) (Token, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (Token, error)

func (f FetcherFunc) FetchToken(ctx context.Context) (Token, error) { return f(ctx) }

// Option configures a Holder.
type Option func(*Holder)

// WithClock sets the time source. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Holder) {
		if now != nil {
			h.now = now
		}
	}
}

// WithSkew sets how long before expiry the token is refreshed.
func WithSkew(d time.Duration) Option {
	return func(h *Holder) {
		if d >= 0 {
			h.skew = d
		}
	}
}

// WithLogger sets the logger for refresh events.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Holder) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Holder owns one cached token and refreshes it on demand. It is safe for
// concurrent use; concurrent callers share a single refresh.
type Holder struct {
	mu     sync.Mutex
	fetch  Fetcher
	now    func() time.Time
	skew   time.Duration
	logger *slog.Logger
	token  Token
}

// NewHolder creates a Holder that obtains tokens from f.
func NewHolder(f Fetcher, opts ...Option) *Holder {
	h := &Holder{
		fetch:  f,
		now:    time.Now,
		skew:   DefaultSkew,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Token returns the cached token while it is valid for longer than the skew,
// and fetches a new one otherwise.
func (h *Holder) Token(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.validLocked() {
		return h.token.Value, nil
	}
	return h.refreshLocked(ctx)
}

// Refresh fetches a new token unconditionally.
func (h *Holder) Refresh(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refreshLocked(ctx)
}

// Valid reports whether the cached token is usable without a refresh.
func (h *Holder) Valid() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.validLocked()
}

// Invalidate drops the cached token, e.g. after the provider rejected it.
func (h *Holder) Invalidate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = Token{}
}

func (h *Holder) validLocked() bool {
	return h.token.Value != "" && h.token.ExpiresAt.After(h.now().Add(h.skew))
}

func (h *Holder) refreshLocked(ctx context.Context) (string, error) {
	tok, err := h.fetch.FetchToken(ctx)
	if err != nil {
		h.logger.Error("token refresh failed", "error", err)
		return "", fmt.Errorf("credential: refresh token: %w", err)
	}
	if tok.Value == "" {
		return "", ErrEmptyToken
	}
	h.token = tok
	h.logger.Info("token refreshed", "expires_at", tok.ExpiresAt)
	return tok.Value, nil
}
