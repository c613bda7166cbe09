package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"

// NewHTTPClient returns a client with the given timeout that goes through
// proxyURL when it is set.
func NewHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// getJSONBody performs a GET and returns the body when it looks like JSON.
// Failures are classified: transport errors and 5xx are network, 429 and
// edge throttling pages are rate-limit, everything else is malformed.
func getJSONBody(ctx context.Context, client *http.Client, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Reason: ReasonMalformed, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{Reason: ReasonNetwork, Err: err}
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, &FetchError{Reason: ReasonNetwork, Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || bytes.HasPrefix(body, []byte("Edge: Too Many Requests")):
		return nil, &FetchError{Reason: ReasonRateLimit, Err: fmt.Errorf("%s returned 429", req.URL.Host)}
	case resp.StatusCode >= 500:
		return nil, &FetchError{Reason: ReasonNetwork, Err: fmt.Errorf("%s returned %d: %s", req.URL.Host, resp.StatusCode, preview(body))}
	case resp.StatusCode != http.StatusOK:
		return nil, &FetchError{Reason: ReasonMalformed, Err: fmt.Errorf("%s returned %d: %s", req.URL.Host, resp.StatusCode, preview(body))}
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, &FetchError{Reason: ReasonMalformed, Err: fmt.Errorf("non-json body: %s", preview(body))}
	}
	return body, nil
}

func preview(body []byte) string {
	if len(body) > 120 {
		return string(body[:120])
	}
	return string(body)
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
