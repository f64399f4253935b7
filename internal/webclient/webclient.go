// Package webclient abstracts outbound HTTP so providers and the page
// inspector can share one transport and be tested against fakes.
package webclient

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrNilRequest is returned by Do when req is nil.
var ErrNilRequest = errors.New("nil request")

// WebClient executes a Request.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	Close() error
}

type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
	// Options carries backend-specific hints, e.g. "render": "true" for chromedp.
	Options map[string]string
}

type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}
