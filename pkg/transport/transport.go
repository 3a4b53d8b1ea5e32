// Package transport is the HTTP capability the paginator talks through.
//
// Transport is deliberately tiny so tests and callers can plug in anything
// that maps a request to a status code and body. HTTPTransport is the
// production implementation on net/http with request pacing, shared rate
// limit budget gating and Prometheus metrics.
package transport

import (
	"context"
	"net/http"
)

// Request is one outgoing HTTP request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs HTTP requests. It returns an error only when no
// response was received; HTTP error statuses are reported in Response.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Do implements Transport.
func (f Func) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// IsSuccess reports whether status is 2xx.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
