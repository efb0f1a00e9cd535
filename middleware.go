package toolpick

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
)

// Middleware wraps a Client with cross-cutting behavior (logging, recovery, timeout).
type Middleware func(Client) Client

// Chain applies middlewares to c in onion order: the first middleware is outermost.
func Chain(c Client, middlewares ...Middleware) Client {
	for i := len(middlewares) - 1; i >= 0; i-- {
		c = middlewares[i](c)
	}
	return c
}

// WithLogging returns a middleware that logs start, end, duration, and errors of every call.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Client) Client {
		return &loggingClient{clientBase: clientBase{next: next}, logger: logger}
	}
}

// WithRecovery returns a middleware that recovers panics and returns SystemError.
func WithRecovery() Middleware {
	return func(next Client) Client {
		return &recoveryClient{clientBase{next: next}}
	}
}

// WithTimeoutMiddleware returns a middleware that bounds every call, streaming
// included, by d. A non-positive d disables it.
func WithTimeoutMiddleware(d time.Duration) Middleware {
	return func(next Client) Client {
		return &timeoutClient{clientBase: clientBase{next: next}, timeout: d}
	}
}

// TokenSource supplies bearer tokens. credential.Holder implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// MetadataAuthorization is the Request.Metadata key set by WithCredentials.
const MetadataAuthorization = "authorization"

// WithCredentials returns a middleware that attaches "Bearer <token>" from src
// to every request's metadata.
func WithCredentials(src TokenSource) Middleware {
	return func(next Client) Client {
		return &credentialClient{clientBase: clientBase{next: next}, src: src}
	}
}

// clientBase delegates Client to the wrapped Client; used by middleware wrappers.
type clientBase struct{ next Client }

func (b *clientBase) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	return b.next.Call(ctx, req)
}

func (b *clientBase) Stream(ctx context.Context, req Request, yield func(json.RawMessage) error) error {
	return b.next.Stream(ctx, req, yield)
}

func slotOf(req Request) string {
	if req.Contract == nil {
		return ""
	}
	return req.Contract.Slot()
}

type loggingClient struct {
	clientBase
	logger *slog.Logger
}

func (m *loggingClient) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	m.logger.Info("call start", "slot", slotOf(req), "messages", len(req.Messages))
	start := time.Now()
	out, err := m.next.Call(ctx, req)
	dur := time.Since(start)
	if err != nil {
		m.logger.Error("call error", "slot", slotOf(req), "duration", dur, "error", err)
		return nil, err
	}
	m.logger.Info("call end", "slot", slotOf(req), "duration", dur, "bytes", len(out))
	return out, nil
}

func (m *loggingClient) Stream(ctx context.Context, req Request, yield func(json.RawMessage) error) error {
	m.logger.Info("stream start", "slot", slotOf(req), "messages", len(req.Messages))
	start := time.Now()
	snapshots := 0
	err := m.next.Stream(ctx, req, func(out json.RawMessage) error {
		snapshots++
		return yield(out)
	})
	dur := time.Since(start)
	if err != nil {
		m.logger.Error("stream error", "slot", slotOf(req), "duration", dur, "snapshots", snapshots, "error", err)
		return err
	}
	m.logger.Info("stream end", "slot", slotOf(req), "duration", dur, "snapshots", snapshots)
	return nil
}

type recoveryClient struct{ clientBase }

func (r *recoveryClient) Call(ctx context.Context, req Request) (out json.RawMessage, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = &SystemError{Err: &panicError{p: p}}
		}
	}()
	return r.next.Call(ctx, req)
}

func (r *recoveryClient) Stream(ctx context.Context, req Request, yield func(json.RawMessage) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &SystemError{Err: &panicError{p: p}}
		}
	}()
	return r.next.Stream(ctx, req, yield)
}

type timeoutClient struct {
	clientBase
	timeout time.Duration
}

func (t *timeoutClient) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	if t.timeout <= 0 {
		return t.next.Call(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Call(ctx, req)
}

func (t *timeoutClient) Stream(ctx context.Context, req Request, yield func(json.RawMessage) error) error {
	if t.timeout <= 0 {
		return t.next.Stream(ctx, req, yield)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Stream(ctx, req, yield)
}

type credentialClient struct {
	clientBase
	src TokenSource
}

func (c *credentialClient) authorize(ctx context.Context, req Request) (Request, error) {
	tok, err := c.src.Token(ctx)
	if err != nil {
		return req, fmt.Errorf("obtain credentials: %w", err)
	}
	return req.WithMetadata(MetadataAuthorization, "Bearer "+tok), nil
}

func (c *credentialClient) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	req, err := c.authorize(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.next.Call(ctx, req)
}

func (c *credentialClient) Stream(ctx context.Context, req Request, yield func(json.RawMessage) error) error {
	req, err := c.authorize(ctx, req)
	if err != nil {
		return err
	}
	return c.next.Stream(ctx, req, yield)
}

// panicError wraps a recovered panic value for SystemError.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}
