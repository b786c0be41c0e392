package viewer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/httputil"
	"github.com/chronictectonic/underworld2/pkg/observability"
)

// Viewer defaults.
const (
	DefaultPort       = 9999
	DefaultQuality    = 90
	DefaultRetryDelay = time.Second
)

// Client sends commands over the viewer's HTTP command channel.
type Client struct {
	base   string
	http   *http.Client
	policy httputil.Policy
	logger *log.Logger
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithBaseURL points the client at base instead of localhost:<port>.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) { c.base = strings.TrimRight(base, "/") }
}

// WithHTTPClient sets the HTTP client used for commands.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithRetryPolicy replaces the single one-second retry.
func WithRetryPolicy(p httputil.Policy) ClientOption {
	return func(c *Client) { c.policy = p }
}

// WithLogger sets the logger for retry messages.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for the viewer listening on port.
func NewClient(port int, opts ...ClientOption) *Client {
	if port <= 0 {
		port = DefaultPort
	}
	c := &Client{
		base:   fmt.Sprintf("http://localhost:%d", port),
		http:   http.DefaultClient,
		policy: httputil.Once(DefaultRetryDelay),
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the request URL for cmd.
func (c *Client) URL(cmd string) string {
	return c.base + "/command=" + url.PathEscape(cmd)
}

// Send runs cmd on the viewer and returns its response body.
func (c *Client) Send(ctx context.Context, cmd string) ([]byte, error) {
	if err := errors.ValidateCommand(cmd); err != nil {
		return nil, err
	}

	start := time.Now()
	attempts := 0
	policy := c.policy
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, err error) {
		c.logger.Warn("viewer command failed, retrying", "command", cmd, "attempt", attempt, "delay", policy.Delay, "err", err)
		if onRetry != nil {
			onRetry(attempt, err)
		}
	}

	var body []byte
	err := httputil.Retry(ctx, policy, func() error {
		attempts++
		var err error
		body, err = httputil.Get(ctx, c.http, c.URL(cmd))
		if err != nil && ctx.Err() == nil {
			// Any failed request gets the retry, not only transient ones.
			return &httputil.RetryableError{Err: err}
		}
		return err
	})
	if err != nil {
		err = errors.Wrap(errors.ErrCodeViewerFailed, err, "send %q", cmd)
	}
	observability.Viewer().OnCommand(ctx, cmd, attempts, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return body, nil
}
