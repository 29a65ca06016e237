package oanda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/camuig/quant-relay/internal/config"
	"github.com/camuig/quant-relay/internal/logger"
)

const (
	tradeEndpoint    = "https://api-fxtrade.oanda.com"
	practiceEndpoint = "https://api-fxpractice.oanda.com"
)

// Client is a read-only OANDA v20 REST client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *logger.Logger
}

type Option func(*Client)

// WithBaseURL overrides the environment endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Endpoint returns the REST host for an account mode.
func Endpoint(mode config.AccountMode) string {
	if mode == config.ModeTrade {
		return tradeEndpoint
	}
	return practiceEndpoint
}

func NewClient(token string, mode config.AccountMode, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    Endpoint(mode),
		token:      token,
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify checks the token against the account. Used once at startup.
func (c *Client) Verify(ctx context.Context, accountID string) error {
	summary, err := c.AccountSummary(ctx, accountID)
	if err != nil {
		return fmt.Errorf("verify oanda credentials: %w", err)
	}
	c.logger.Info("oanda account verified", "account_id", summary.ID, "currency", summary.Currency)
	return nil
}

// APIError is a non-2xx response from the v20 API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("oanda API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("oanda API returned status %d: %s", e.StatusCode, e.Message)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept-Datetime-Format", "RFC3339")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			ErrorMessage string `json:"errorMessage"`
		}
		_ = json.Unmarshal(body, &apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.ErrorMessage}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}

func accountPath(accountID, resource string) string {
	return "/v3/accounts/" + url.PathEscape(accountID) + "/" + resource
}
