package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxBody bounds how much of a response body [Get] reads.
const maxBody = 1 << 20

// Get issues a GET request and returns the response body. Transport errors
// and 5xx responses are wrapped in [RetryableError]; other non-2xx statuses
// are returned as plain errors.
func Get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("read response: %w", err)}
	}
	switch {
	case resp.StatusCode >= 500:
		return nil, &RetryableError{Err: fmt.Errorf("%s: %s", url, resp.Status)}
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%s: %s", url, resp.Status)
	}
	return body, nil
}
