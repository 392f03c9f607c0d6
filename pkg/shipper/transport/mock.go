package transport

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tournevent/carrierbridge/pkg/shipper"
)

// Call records a request made through Mock.
type Call struct {
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string
}

// Mock is a Transport for tests. Responses come from the On* hooks; when no
// hook is set the request fails with a 404 TransportError.
type Mock struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnGet  func(ctx context.Context, url string, headers map[string]string) ([]byte, error)
	OnPost func(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error)

	mu    sync.Mutex
	calls []Call
}

// NewMock creates a new mock transport.
func NewMock() *Mock {
	return &Mock{}
}

// Get records the call and delegates to OnGet.
func (m *Mock) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	m.record(Call{Method: "GET", URL: url, Headers: headers})
	if err := m.simulate("GET", url); err != nil {
		return nil, err
	}
	if m.OnGet != nil {
		return m.OnGet(ctx, url, headers)
	}
	return nil, &shipper.TransportError{Method: "GET", URL: url, StatusCode: 404}
}

// Post records the call and delegates to OnPost.
func (m *Mock) Post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error) {
	m.record(Call{Method: "POST", URL: url, Body: body, Headers: headers})
	if err := m.simulate("POST", url); err != nil {
		return nil, err
	}
	if m.OnPost != nil {
		return m.OnPost(ctx, url, body, headers)
	}
	return nil, &shipper.TransportError{Method: "POST", URL: url, StatusCode: 404}
}

// Calls returns the recorded requests.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsTo counts recorded requests whose URL contains fragment.
func (m *Mock) CallsTo(fragment string) int {
	n := 0
	for _, c := range m.Calls() {
		if strings.Contains(c.URL, fragment) {
			n++
		}
	}
	return n
}

func (m *Mock) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *Mock) simulate(method, url string) error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return &shipper.TransportError{Method: method, URL: url, StatusCode: 503}
	}
	return nil
}

// Respond returns a hook that always answers with body.
func Respond(body string) func(context.Context, string, map[string]string) ([]byte, error) {
	return func(context.Context, string, map[string]string) ([]byte, error) {
		return []byte(body), nil
	}
}

// RespondPost returns a POST hook that always answers with body.
func RespondPost(body string) func(context.Context, string, []byte, map[string]string) ([]byte, error) {
	return func(context.Context, string, []byte, map[string]string) ([]byte, error) {
		return []byte(body), nil
	}
}

var _ shipper.Transport = (*Mock)(nil)
