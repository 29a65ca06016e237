package quantconnect

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/camuig/quant-relay/internal/logger"
)

const defaultEndpoint = "https://www.quantconnect.com/api/v2/"

// Client is a read-only QuantConnect API v2 client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userID     int64
	token      string
	logger     *logger.Logger
	now        func() time.Time
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.baseURL = u
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(userID int64, token string, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultEndpoint,
		userID:     userID,
		token:      token,
		logger:     log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a response with success=false.
type APIError struct {
	StatusCode int
	Errors     []string
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("quantconnect API request failed (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("quantconnect API request failed (status %d): %s", e.StatusCode, strings.Join(e.Errors, "; "))
}

type envelope struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

// Authenticate checks the job user id and token.
func (c *Client) Authenticate(ctx context.Context) error {
	var resp envelope
	if err := c.get(ctx, "authenticate", nil, &resp); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	c.logger.Info("quantconnect API authenticated", "user_id", c.userID)
	return nil
}

// passwordHash derives the per-request basic auth password.
func passwordHash(token string, timestamp int64) string {
	sum := sha256.Sum256([]byte(token + ":" + strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(sum[:])
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	ts := c.now().Unix()
	req.Header.Set("Timestamp", strconv.FormatInt(ts, 10))
	req.SetBasicAuth(strconv.FormatInt(c.userID, 10), passwordHash(c.token, ts))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	if !env.Success || resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Errors: env.Errors}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}
