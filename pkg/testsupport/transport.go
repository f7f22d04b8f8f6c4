package testsupport

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/goliatone/go-embedform/pkg/transport"
)

// ErrNetwork is the failure returned for routes registered with Fail.
var ErrNetwork = errors.New("testsupport: simulated network failure")

// Request is one call recorded by FakeTransport.
type Request struct {
	Method  string
	URL     string
	Payload transport.Payload
}

type reply struct {
	status  int
	outcome transport.Outcome
	body    string
	err     error
}

// FakeTransport is a scripted transport.Client. Replies are queued per
// method and URL; the last reply of a queue is reused. Unscripted reads
// fail with a 404 transport error.
type FakeTransport struct {
	mu       sync.Mutex
	replies  map[string][]reply
	gates    map[string]chan struct{}
	requests []Request
}

var _ transport.Client = (*FakeTransport)(nil)

// NewFakeTransport returns an empty fake.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		replies: make(map[string][]reply),
		gates:   make(map[string]chan struct{}),
	}
}

// Page queues a fragment for GET url.
func (f *FakeTransport) Page(url, body string) *FakeTransport {
	return f.queue(http.MethodGet, url, reply{status: http.StatusOK, outcome: transport.OutcomeSuccess, body: body})
}

// Accept queues a successful submission reply for POST url.
func (f *FakeTransport) Accept(url, body string) *FakeTransport {
	return f.queue(http.MethodPost, url, reply{status: http.StatusOK, outcome: transport.OutcomeSuccess, body: body})
}

// Reject queues a validation failure reply for POST url.
func (f *FakeTransport) Reject(url, body string) *FakeTransport {
	return f.queue(http.MethodPost, url, reply{status: http.StatusUnprocessableEntity, outcome: transport.OutcomeInvalid, body: body})
}

// Fail queues a network failure for method and url.
func (f *FakeTransport) Fail(method, url string) *FakeTransport {
	return f.queue(method, url, reply{err: ErrNetwork})
}

// Hold blocks calls to method and url until the returned release func runs.
func (f *FakeTransport) Hold(method, url string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[key(method, url)] = gate
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// Requests returns the calls seen so far.
func (f *FakeTransport) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// Count returns how many calls hit method and url.
func (f *FakeTransport) Count(method, url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Method == method && r.URL == url {
			n++
		}
	}
	return n
}

// Fetch implements transport.Client.
func (f *FakeTransport) Fetch(ctx context.Context, url string) (*transport.Response, error) {
	return f.call(ctx, "fetch", http.MethodGet, url, transport.Payload{})
}

// Submit implements transport.Client.
func (f *FakeTransport) Submit(ctx context.Context, method, url string, payload transport.Payload) (*transport.Response, error) {
	if method == "" {
		method = http.MethodPost
	}
	return f.call(ctx, "submit", method, url, payload)
}

func (f *FakeTransport) call(ctx context.Context, op, method, url string, payload transport.Payload) (*transport.Response, error) {
	k := key(method, url)
	f.mu.Lock()
	f.requests = append(f.requests, Request{Method: method, URL: url, Payload: payload})
	gate := f.gates[k]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &transport.Error{Op: op, URL: url, Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	queue := f.replies[k]
	var r reply
	found := len(queue) > 0
	if found {
		r = queue[0]
		if len(queue) > 1 {
			f.replies[k] = queue[1:]
		}
	}
	f.mu.Unlock()

	if !found {
		return nil, &transport.Error{Op: op, URL: url, StatusCode: http.StatusNotFound, Err: transport.ErrUnexpectedStatus}
	}
	if r.err != nil {
		return nil, &transport.Error{Op: op, URL: url, Err: r.err}
	}
	return &transport.Response{
		URL:     url,
		Status:  r.status,
		Outcome: r.outcome,
		Header:  make(http.Header),
		Body:    []byte(r.body),
	}, nil
}

func (f *FakeTransport) queue(method, url string, r reply) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(method, url)
	f.replies[k] = append(f.replies[k], r)
	return f
}

func key(method, url string) string {
	return method + " " + url
}
