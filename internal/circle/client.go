package circle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/silouanwright/cdb/internal/domain"
)

// TokenEnvVar is the environment variable holding the CircleCI API token
const TokenEnvVar = "CIRCLECI_TOKEN"

const apiBase = "https://circleci.com/api/v1.1"

// requestTimeout bounds every API call. Failed calls are not retried.
const requestTimeout = 30 * time.Second

// ErrNoToken is returned when no API token is available
var ErrNoToken = errors.New("cannot find CircleCI API token (set " + TokenEnvVar + ")")

// Client talks to the CircleCI REST API. Authentication uses the
// Circle-Token header on every request.
type Client struct {
	token string
	http  *http.Client
	log   *zap.Logger
	base  string
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API base URL (used in tests)
func WithBaseURL(base string) Option {
	return func(c *Client) { c.base = base }
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client with the given token
func New(token string, log *zap.Logger, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		token: token,
		http:  &http.Client{Timeout: requestTimeout},
		log:   log,
		base:  apiBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromEnv creates a client using the CIRCLECI_TOKEN environment variable
func NewFromEnv(log *zap.Logger, opts ...Option) (*Client, error) {
	return New(os.Getenv(TokenEnvVar), log, opts...)
}

// Build fetches build information for a single build
func (c *Client) Build(ctx context.Context, ref BuildRef) (*domain.Build, error) {
	u := fmt.Sprintf("%s/project/github/%s/%s/%d",
		c.base, url.PathEscape(ref.Org), url.PathEscape(ref.Project), ref.BuildNum)

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var build domain.Build
	if err := json.Unmarshal(body, &build); err != nil {
		return nil, fmt.Errorf("failed to parse CircleCI response: %w", err)
	}

	c.log.Debug("fetched build",
		zap.Int("build_num", build.BuildNum),
		zap.String("status", build.Status),
		zap.Int("steps", len(build.Steps)))

	return &build, nil
}

// Logs fetches the output of a single action. CircleCI serves action output
// as a JSON array of {message, type, time} objects; the messages are
// concatenated in order. Non-JSON responses are returned verbatim.
func (c *Client) Logs(ctx context.Context, outputURL string) (string, error) {
	body, err := c.get(ctx, outputURL)
	if err != nil {
		return "", err
	}

	text := string(body)
	parsed := gjson.Parse(text)
	if parsed.IsArray() {
		var out []byte
		parsed.ForEach(func(_, value gjson.Result) bool {
			out = append(out, value.Get("message").String()...)
			return true
		})
		c.log.Debug("extracted log messages from JSON payload",
			zap.Int("payload_bytes", len(body)),
			zap.Int("log_bytes", len(out)))
		return string(out), nil
	}

	return text, nil
}

// Ping verifies that the token is accepted by the API
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, c.base+"/me")
	return err
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Circle-Token", c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to CircleCI API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read CircleCI response: %w", err)
	}

	c.log.Debug("circleci request",
		zap.String("url", req.URL.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if msg == "" {
			msg = "<no response body>"
		}
		return nil, fmt.Errorf("CircleCI API returned error %s: %s", resp.Status, msg)
	}

	return body, nil
}
