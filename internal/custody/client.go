package custody

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/votis/walletd/internal/stamp"
	walleterr "github.com/votis/walletd/pkg/errors"
)

const (
	// defaultTimeout bounds every upstream call. Exceeding it is a
	// transient upstream error, never an indefinite hang.
	defaultTimeout = 15 * time.Second

	// maxResponseBody is the maximum response body size to read (1 MB).
	maxResponseBody = 1 << 20

	// submitPathFormat is the activity submission endpoint.
	submitPathFormat = "%s/submit/%s"
)

// Client submits stamped activity envelopes to the custody service.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// ClientOptions configures the custody client.
type ClientOptions struct {
	// HTTPClient overrides the default HTTP client (useful for testing).
	HTTPClient *http.Client
	// Timeout overrides the default per-call timeout.
	Timeout time.Duration
	// RatePerSecond and Burst configure the client-side token bucket.
	// Zero values keep the defaults (10 req/s, burst 20).
	RatePerSecond float64
	Burst         int
}

// NewClient creates a custody client for the given base URL.
func NewClient(baseURL string, opts *ClientOptions) (*Client, error) {
	if baseURL == "" {
		return nil, walleterr.Wrap(walleterr.ErrConfigInvalid, "custody base URL is required")
	}

	timeout := defaultTimeout
	ratePerSecond := 10.0
	burst := 20
	var httpClient *http.Client

	if opts != nil {
		if opts.Timeout > 0 {
			timeout = opts.Timeout
		}
		if opts.RatePerSecond > 0 {
			ratePerSecond = opts.RatePerSecond
		}
		if opts.Burst > 0 {
			burst = opts.Burst
		}
		httpClient = opts.HTTPClient
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		}
	}

	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}, nil
}

// SubmitActivity POSTs a stamped envelope to submit/{activityType}.
// body must be the exact bytes the stamp was computed over; the stamp is
// attached under the header for authMode and never inspected here.
func (c *Client) SubmitActivity(ctx context.Context, activityType string, body []byte, authMode stamp.AuthMode, encodedStamp string) (*Activity, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, walleterr.Wrap(walleterr.ErrTransientUpstream, "rate limiter wait")
	}

	url := fmt.Sprintf(submitPathFormat, c.baseURL, activityType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, walleterr.Wrap(err, "building custody request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(authMode.HeaderName(), encodedStamp)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrTransientUpstream, "reading custody response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp.StatusCode, raw)
	}

	var parsed activityResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, walleterr.Wrap(walleterr.ErrInternal, "parsing custody response")
	}

	return &parsed.Activity, nil
}

// ClassifyStatus maps an upstream HTTP status to the error taxonomy.
// Retry eligibility rides on the sentinel: only 429 and 5xx are
// background-retryable; everything else fails fast.
func ClassifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return walleterr.ErrAuthFailure
	case status == http.StatusBadRequest,
		status == http.StatusNotFound,
		status == http.StatusConflict,
		status == http.StatusUnprocessableEntity:
		return walleterr.ErrValidation
	case status == http.StatusTooManyRequests:
		return walleterr.ErrRateLimited
	case status >= 500 && status <= 599:
		return walleterr.ErrTransientUpstream
	default:
		return walleterr.ErrInternal
	}
}

// upstreamError builds a classified error carrying the status code and
// the upstream message. Request/credential content is never included.
func upstreamError(status int, body []byte) error {
	message := upstreamMessage(body)
	err := walleterr.Wrap(ClassifyStatus(status), "custody service rejected activity")
	return walleterr.WithDetails(err, map[string]string{
		"status":  fmt.Sprintf("%d", status),
		"message": message,
	})
}

// upstreamMessage extracts a short human-readable message from an error
// body, tolerating arbitrary shapes.
func upstreamMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}

	const maxMessage = 200
	s := string(body)
	if len(s) > maxMessage {
		s = s[:maxMessage]
	}
	return s
}

// classifyTransportError maps network-level failures. Timeouts and
// connection errors are transient; context cancellation is passed
// through so callers can distinguish their own aborts.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return walleterr.Wrap(err, "custody call canceled")
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return walleterr.Wrap(walleterr.ErrTransientUpstream, "custody call timed out")
	}
	return walleterr.Wrap(walleterr.ErrTransientUpstream, "custody call failed")
}
