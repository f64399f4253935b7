// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raysh454/trygglink/internal/logging"
	"github.com/raysh454/trygglink/internal/provider"
	"github.com/raysh454/trygglink/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// WarnCount returns the number of recorded warnings.
func (l *DummyLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyWebClient implements webclient.WebClient.
// By default it returns body "ok:<url>" with status 200. Handler, when set,
// produces the response instead. FailURLs[url] = true forces an error.
type DummyWebClient struct {
	ResponseDelay time.Duration
	FailURLs      map[string]bool
	Handler       func(req *webclient.Request) (*webclient.Response, error)

	mu       sync.Mutex
	Requests []*webclient.Request
}

func (d *DummyWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	if d.ResponseDelay > 0 {
		select {
		case <-time.After(d.ResponseDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	d.mu.Unlock()

	if d.FailURLs != nil && d.FailURLs[req.URL] {
		return nil, &errString{"dummy fetch fail for " + req.URL}
	}
	if d.Handler != nil {
		return d.Handler(req)
	}

	return &webclient.Response{
		Request:    req,
		Body:       []byte("ok:" + req.URL),
		StatusCode: 200,
		FetchedAt:  time.Now(),
	}, nil
}

func (d *DummyWebClient) Close() error { return nil }

// ─── Provider ──────────────────────────────────────────────────────────

// StubProvider implements provider.Provider with a canned outcome.
type StubProvider struct {
	ProviderName string
	ProviderKind provider.Kind
	Signal       provider.Signal
	Err          error
	Panic        bool
	Delay        time.Duration

	calls int32
}

func (s *StubProvider) Name() string { return s.ProviderName }

func (s *StubProvider) Kind() provider.Kind { return s.ProviderKind }

func (s *StubProvider) Check(ctx context.Context, _ provider.Input) (provider.Signal, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return provider.Signal{}, ctx.Err()
		}
	}
	if s.Panic {
		panic("stub provider exploded")
	}
	return s.Signal, s.Err
}

// Calls returns how many times Check ran.
func (s *StubProvider) Calls() int {
	return int(atomic.LoadInt32(&s.calls))
}

// ─── helpers ───────────────────────────────────────────────────────────

type errString struct{ s string }

func (e *errString) Error() string { return e.s }
