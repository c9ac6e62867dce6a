// Package provider is the client-side adapter for the remote wallet and
// identity provider's Connect API: redirect URL generation,
// token-to-profile resolution, balance queries, and pay-by-destination.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default endpoints for the hosted wallet provider.
const (
	DefaultBaseURL = "https://connect.pocketcash.io"
	DefaultAuthURL = "https://app.pocketcash.io"
)

// Profile describes the account behind a session token.
type Profile struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// Balance is the spendable balance of the account.
type Balance struct {
	AmountInBaseCurrency  float64 `json:"amountInBaseCurrency"`
	AmountInLocalCurrency float64 `json:"amountInLocalCurrency"`
	LocalCurrencyCode     string  `json:"localCurrencyCode"`
}

// PaymentRequest describes a single pay-by-destination charge.
type PaymentRequest struct {
	Description  string  `json:"description"`
	Destination  string  `json:"destination"`
	CurrencyCode string  `json:"currencyCode"`
	Amount       float64 `json:"sendAmount"`
}

// Receipt is the provider's confirmation of a settled payment.
type Receipt struct {
	TransactionID string `json:"transactionId"`
}

// Client talks to the provider's Connect API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authURL    string
	appID      string
}

// Option configures the Client.
type Option func(*Client)

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL overrides the Connect API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithAuthURL overrides the browser-facing authorization base URL.
func WithAuthURL(authURL string) Option {
	return func(c *Client) {
		c.authURL = strings.TrimRight(authURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a Client for the given application id.
func New(appID string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		authURL:    DefaultAuthURL,
		appID:      appID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RedirectionURL builds the browser URL that asks the user to authorize
// this application. Construction is purely local; no network call.
func (c *Client) RedirectionURL(permissions []string, callbackURL string) string {
	q := url.Values{}
	q.Set("appId", c.appID)
	q.Set("permissions", strings.Join(permissions, ","))
	q.Set("redirectUrl", callbackURL)
	return fmt.Sprintf("%s/authorizeApp?%s", c.authURL, q.Encode())
}

// CurrentProfile resolves the account profile behind a session token.
func (c *Client) CurrentProfile(ctx context.Context, token string) (*Profile, error) {
	var profile Profile
	if err := c.get(ctx, "/v1/connect/profile/currentUserProfile", token, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SpendableBalance queries the account's spendable balance.
func (c *Client) SpendableBalance(ctx context.Context, token string) (*Balance, error) {
	var balance Balance
	if err := c.get(ctx, "/v1/connect/wallet/spendableBalance", token, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// Pay executes a pay-by-destination charge. Each call carries a fresh
// request id so the provider can deduplicate replays.
func (c *Client) Pay(ctx context.Context, token string, req PaymentRequest) (*Receipt, error) {
	body, err := json.Marshal(struct {
		Description string           `json:"description"`
		Payments    []PaymentRequest `json:"payments"`
	}{
		Description: req.Description,
		Payments:    []PaymentRequest{req},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/connect/wallet/pay", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-Id", uuid.NewString())

	var receipt Receipt
	if err := c.do(httpReq, token, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) get(ctx context.Context, path, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{
			Kind:    KindNetwork,
			Message: fmt.Sprintf("request to provider failed: %v", err),
			cause:   err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{
			Kind:    KindNetwork,
			Message: fmt.Sprintf("reading provider response: %v", err),
			cause:   err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return classifyHTTP(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Error{
			Kind:       KindProvider,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("malformed provider response: %v", err),
			cause:      err,
		}
	}
	return nil
}

// classifyHTTP maps a non-200 provider response into a classified
// error. This is the single place provider-specific error shapes become
// a Kind.
func classifyHTTP(statusCode int, body []byte) *Error {
	message := providerMessage(body)
	if message == "" {
		message = fmt.Sprintf("provider returned %d", statusCode)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &Error{Kind: KindAuth, StatusCode: statusCode, Message: message}
	case statusCode >= 400 && statusCode < 500 && containsAny(strings.ToLower(message), "insufficient", "balance", "funds"):
		return &Error{Kind: KindFunds, StatusCode: statusCode, Message: message}
	case statusCode >= 500:
		return &Error{Kind: KindProvider, StatusCode: statusCode, Message: message}
	default:
		return &Error{Kind: KindProvider, StatusCode: statusCode, Message: message}
	}
}

func providerMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
