package webclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raysh454/trygglink/internal/logging"
)

// NetHTTPClient is the net/http backed implementation of WebClient.
type NetHTTPClient struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	logger       logging.Logger
}

// NewNetHTTPClient wraps httpClient, or builds one with cfg.Timeout when nil.
func NewNetHTTPClient(cfg Config, logger logging.Logger, httpClient *http.Client) (*NetHTTPClient, error) {
	cfg = cfg.withDefaults()
	componentLogger := logger.With(logging.Field{Key: "backend", Value: "nethttp"})

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	componentLogger.Debug("created nethttp webclient",
		logging.Field{Key: "timeout", Value: httpClient.Timeout.String()})

	return &NetHTTPClient{
		client:       httpClient,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
		logger:       componentLogger,
	}, nil
}

// Do implements the generic request execution using net/http.
func (nhc *NetHTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	nhc.logger.Debug("sending http request",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "url", Value: redactQuery(req.URL)})

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", nhc.userAgent)
	}

	resp, err := nhc.client.Do(httpReq)
	if err != nil {
		nhc.logger.Warn("http request failed",
			logging.Field{Key: "method", Value: method},
			logging.Field{Key: "url", Value: redactQuery(req.URL)},
			logging.Err(err))
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, nhc.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		Request:    req,
		Body:       body,
		Headers:    resp.Header,
		StatusCode: resp.StatusCode,
		FetchedAt:  time.Now(),
	}, nil
}

// Get is a convenience method for simple GET requests.
func (nhc *NetHTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	return nhc.Do(ctx, &Request{Method: http.MethodGet, URL: url})
}

func (nhc *NetHTTPClient) Close() error {
	nhc.client.CloseIdleConnections()
	return nil
}

// redactQuery drops the query string, which carries API keys for some vendors.
func redactQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i] + "?…"
	}
	return raw
}
