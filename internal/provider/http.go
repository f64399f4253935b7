package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raysh454/trygglink/internal/webclient"
)

const maxErrorSnippet = 256

// fetchJSON runs req and decodes a 2xx body into out. Non-2xx responses
// return ErrUnexpectedStatus along with the status code.
func fetchJSON(ctx context.Context, wc webclient.WebClient, req *webclient.Request, out any) (int, error) {
	resp, err := wc.Do(ctx, req)
	if err != nil {
		return 0, err
	}
	if !resp.OK() {
		return resp.StatusCode, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, snippet(resp.Body))
	}
	if out != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorSnippet {
		s = s[:maxErrorSnippet]
	}
	return s
}

func baseURL(configured, fallback string) string {
	if configured == "" {
		configured = fallback
	}
	return strings.TrimRight(configured, "/")
}
