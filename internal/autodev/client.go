package autodev

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public auto.dev API.
	DefaultBaseURL = "https://api.auto.dev"
	// TestVIN is decoded by TestConnection.
	TestVIN = "3GCUDHEL3NG668790"

	defaultUserAgent = "vininsight/0.1"
	maxBodyBytes     = 8 << 20
)

// Operation names reported to an Observer.
const (
	OpDecode         = "decode"
	OpTestConnection = "test_connection"
)

// Decoder defines the decode operations. It is implemented by *Client and
// can be faked in tests.
type Decoder interface {
	Decode(ctx context.Context, vin, apiKey string) (*Result, error)
	TestConnection(ctx context.Context, apiKey string) (ConnectionReport, error)
}

var _ Decoder = (*Client)(nil)

// Observer receives one call per operation with its outcome label and
// duration.
type Observer func(op, outcome string, elapsed time.Duration)

// ConnectionReport summarises a successful connection test.
type ConnectionReport struct {
	VIN    string
	Make   string
	Model  string
	Result *Result
}

// Client talks to the decode API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	observe   Observer
	now       func() time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithObserver installs a per-call observer.
func WithObserver(fn Observer) Option {
	return func(c *Client) { c.observe = fn }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client for baseURL; blank means DefaultBaseURL. The
// transport has no timeout of its own; callers bound calls with ctx.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Validate checks the decode preconditions.
func Validate(vin, apiKey string) error {
	if strings.TrimSpace(vin) == "" {
		return &ValidationError{Field: FieldVIN, Message: msgVINMissing}
	}
	if strings.TrimSpace(apiKey) == "" {
		return &ValidationError{Field: FieldAPIKey, Message: msgAPIKeyMissing}
	}
	return nil
}

// Decode resolves vin. Exactly one request is made when the inputs are valid.
func (c *Client) Decode(ctx context.Context, vin, apiKey string) (*Result, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	start := time.Now()
	res, err := c.decode(ctx, vin, apiKey)
	c.report(OpDecode, err, start)
	return res, err
}

// TestConnection decodes TestVIN and reports the make and model.
func (c *Client) TestConnection(ctx context.Context, apiKey string) (ConnectionReport, error) {
	if c == nil {
		return ConnectionReport{}, fmt.Errorf("client is nil")
	}
	start := time.Now()
	res, err := c.decode(ctx, TestVIN, apiKey)
	c.report(OpTestConnection, err, start)
	if err != nil {
		return ConnectionReport{}, err
	}
	report := ConnectionReport{VIN: TestVIN, Result: res}
	report.Make, _ = res.Lookup("make")
	report.Model, _ = res.Lookup("model")
	return report, nil
}

func (c *Client) decode(ctx context.Context, vin, apiKey string) (*Result, error) {
	if err := Validate(vin, apiKey); err != nil {
		return nil, err
	}
	vin = strings.TrimSpace(vin)
	apiKey = strings.TrimSpace(apiKey)

	reqURL := c.baseURL.JoinPath("vin", vin)
	values := url.Values{}
	values.Set("apiKey", apiKey)
	reqURL.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("execute request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &NetworkError{StatusCode: resp.StatusCode, Status: statusText(resp)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("read response: %w", err)}
	}
	return ParseResult(vin, body, c.now())
}

func (c *Client) report(op string, err error, start time.Time) {
	if c.observe == nil {
		return
	}
	c.observe(op, Classify(err), time.Since(start))
}

// statusText returns the reason phrase the server sent, without the code.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	if text == "" {
		text = msgUnknownStatus
	}
	return text
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse decode_url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse decode_url %q: missing host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}
