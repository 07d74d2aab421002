// Package testutil provides test utilities and mocks for the upload client.
// This package is internal and should only be used for testing within the module.
package testutil

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/transport"
)

// MockPool is the pool handle returned by MockTransport.
type MockPool struct {
	Config transport.PoolConfig
}

// SentRequest records one Send call. Body holds the bytes that were read from
// the request body.
type SentRequest struct {
	Request transport.Request
	Body    []byte
}

// MockTransport is a mock implementation of transport.Transport.
// It allows customization of each operation through function fields and
// records every call it receives.
type MockTransport struct {
	InitPoolFunc  func(context.Context, transport.PoolConfig) (transport.Pool, error)
	SendFunc      func(context.Context, transport.Pool, *transport.Request) (*transport.Response, error)
	ClosePoolFunc func(transport.Pool) error

	mu         sync.Mutex
	initCalls  []transport.PoolConfig
	sent       []SentRequest
	closeCalls int
}

var _ transport.Transport = (*MockTransport)(nil)

// InitPool mocks pool initialization.
func (m *MockTransport) InitPool(ctx context.Context, cfg transport.PoolConfig) (transport.Pool, error) {
	m.mu.Lock()
	m.initCalls = append(m.initCalls, cfg)
	m.mu.Unlock()

	if m.InitPoolFunc != nil {
		return m.InitPoolFunc(ctx, cfg)
	}
	return &MockPool{Config: cfg}, nil
}

// Send mocks a single upload attempt. The request body is drained and
// recorded before SendFunc runs; SendFunc receives the request with a nil Body.
func (m *MockTransport) Send(ctx context.Context, pool transport.Pool, req *transport.Request) (*transport.Response, error) {
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, transport.Permanent(err)
		}
		body = b
	}

	recorded := *req
	recorded.Body = nil

	m.mu.Lock()
	m.sent = append(m.sent, SentRequest{Request: recorded, Body: body})
	m.mu.Unlock()

	if m.SendFunc != nil {
		return m.SendFunc(ctx, pool, &recorded)
	}
	return &transport.Response{ETag: "abc123", HTTPStatus: http.StatusOK}, nil
}

// ClosePool mocks pool release.
func (m *MockTransport) ClosePool(pool transport.Pool) error {
	m.mu.Lock()
	m.closeCalls++
	m.mu.Unlock()

	if m.ClosePoolFunc != nil {
		return m.ClosePoolFunc(pool)
	}
	return nil
}

// InitCalls returns the pool configs passed to InitPool.
func (m *MockTransport) InitCalls() []transport.PoolConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]transport.PoolConfig(nil), m.initCalls...)
}

// Sent returns every request received by Send.
func (m *MockTransport) Sent() []SentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentRequest(nil), m.sent...)
}

// SendCount returns the number of Send calls.
func (m *MockTransport) SendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// CloseCount returns the number of ClosePool calls.
func (m *MockTransport) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// Script returns a SendFunc that replays results in order. Each entry is
// either a *transport.Response or an error. Once the script is exhausted the
// last entry repeats.
func Script(results ...any) func(context.Context, transport.Pool, *transport.Request) (*transport.Response, error) {
	var (
		mu sync.Mutex
		i  int
	)
	return func(context.Context, transport.Pool, *transport.Request) (*transport.Response, error) {
		mu.Lock()
		r := results[min(i, len(results)-1)]
		i++
		mu.Unlock()

		if err, ok := r.(error); ok {
			return nil, err
		}
		return r.(*transport.Response), nil
	}
}
