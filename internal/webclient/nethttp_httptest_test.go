package webclient_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/raysh454/trygglink/internal/testutil"
	"github.com/raysh454/trygglink/internal/webclient"
)

func newClient(t *testing.T, cfg webclient.Config, hc *http.Client) *webclient.NetHTTPClient {
	t.Helper()
	client, err := webclient.NewNetHTTPClient(cfg, &testutil.DummyLogger{}, hc)
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// ─── Do: real HTTP round-trip via httptest ──────────────────────────────

func TestNetHTTPClient_Do_GET_ReturnsBody(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "hello")
		_, _ = io.WriteString(w, "response body")
	}))
	defer ts.Close()

	client := newClient(t, webclient.Config{}, ts.Client())
	resp, err := client.Do(context.Background(), &webclient.Request{Method: "GET", URL: ts.URL + "/test"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !resp.OK() {
		t.Errorf("expected 2xx, got %d", resp.StatusCode)
	}
	if string(resp.Body) != "response body" {
		t.Errorf("expected 'response body', got %q", resp.Body)
	}
	if resp.Headers.Get("X-Custom") != "hello" {
		t.Errorf("expected X-Custom header 'hello', got %q", resp.Headers.Get("X-Custom"))
	}
}

func TestNetHTTPClient_Do_POST_SendsBodyAndHeaders(t *testing.T) {
	t.Parallel()
	var gotBody, gotKey, gotMethod string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotKey = r.Header.Get("API-Key")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	client := newClient(t, webclient.Config{}, ts.Client())
	hdrs := http.Header{}
	hdrs.Set("API-Key", "secret")
	resp, err := client.Do(context.Background(), &webclient.Request{
		Method: "post", URL: ts.URL, Headers: hdrs, Body: []byte(`{"url":"x"}`),
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotMethod != http.MethodPost || gotBody != `{"url":"x"}` || gotKey != "secret" {
		t.Errorf("server saw method=%s body=%q key=%q", gotMethod, gotBody, gotKey)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201, got %d", resp.StatusCode)
	}
}

func TestNetHTTPClient_Do_SetsDefaultUserAgent(t *testing.T) {
	t.Parallel()
	var ua string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
	}))
	defer ts.Close()

	client := newClient(t, webclient.Config{UserAgent: "scanner/2"}, ts.Client())
	if _, err := client.Get(context.Background(), ts.URL); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ua != "scanner/2" {
		t.Errorf("expected configured user agent, got %q", ua)
	}
}

func TestNetHTTPClient_Do_PropagatesStatusCode(t *testing.T) {
	t.Parallel()
	for _, code := range []int{200, 404, 429, 500} {
		code := code
		t.Run(http.StatusText(code), func(t *testing.T) {
			t.Parallel()
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(code)
			}))
			defer ts.Close()

			client := newClient(t, webclient.Config{}, ts.Client())
			resp, err := client.Get(context.Background(), ts.URL)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if resp.StatusCode != code {
				t.Errorf("expected %d, got %d", code, resp.StatusCode)
			}
		})
	}
}

func TestNetHTTPClient_Do_NilRequest(t *testing.T) {
	t.Parallel()
	client := newClient(t, webclient.Config{}, nil)
	if _, err := client.Do(context.Background(), nil); !errors.Is(err, webclient.ErrNilRequest) {
		t.Fatalf("expected ErrNilRequest, got %v", err)
	}
}

func TestNetHTTPClient_Do_CanceledContext(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer ts.Close()

	client := newClient(t, webclient.Config{}, ts.Client())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Get(ctx, ts.URL); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestNetHTTPClient_Do_TruncatesAtMaxBodyBytes(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("X", 4096))
	}))
	defer ts.Close()

	client := newClient(t, webclient.Config{MaxBodyBytes: 1024}, ts.Client())
	resp, err := client.Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(resp.Body) != 1024 {
		t.Errorf("expected 1024 bytes, got %d", len(resp.Body))
	}
}
