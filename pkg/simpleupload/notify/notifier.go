// Package notify delivers derivative completion callbacks over HTTP.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tendant/simple-upload/pkg/simpleupload"
)

const defaultTimeout = 10 * time.Second

// HTTPNotifier posts derivative records as JSON to a configured callback
// URL. Delivery is a single attempt with no retry; a non-2xx response is
// reported through the returned status code, not as an error.
type HTTPNotifier struct {
	url    string
	client *http.Client
}

// Option configures an HTTPNotifier
type Option func(*HTTPNotifier)

// WithClient overrides the HTTP client used for callbacks
func WithClient(client *http.Client) Option {
	return func(n *HTTPNotifier) {
		n.client = client
	}
}

// NewHTTPNotifier creates a notifier posting to the given URL
func NewHTTPNotifier(url string, opts ...Option) *HTTPNotifier {
	n := &HTTPNotifier{
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify posts the derivative record and returns the response status code
func (n *HTTPNotifier) Notify(ctx context.Context, derivative *simpleupload.DerivativeRecord) (int, error) {
	body, err := json.Marshal(derivative)
	if err != nil {
		return 0, fmt.Errorf("failed to encode derivative record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("callback to %s failed: %w", n.url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
