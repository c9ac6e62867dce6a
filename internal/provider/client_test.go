package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New("paygit", WithBaseURL(server.URL))
}

func TestRedirectionURL(t *testing.T) {
	c := New("paygit", WithAuthURL("https://app.example.com"))

	raw := c.RedirectionURL([]string{"USER_PUBLIC_PROFILE", "PAY"}, "http://localhost:8050/callback")

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", parsed.Host)
	assert.Equal(t, "/authorizeApp", parsed.Path)
	assert.Equal(t, "paygit", parsed.Query().Get("appId"))
	assert.Equal(t, "USER_PUBLIC_PROFILE,PAY", parsed.Query().Get("permissions"))
	assert.Equal(t, "http://localhost:8050/callback", parsed.Query().Get("redirectUrl"))
}

func TestCurrentProfile_Success(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/connect/profile/currentUserProfile", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"handle":"satoshi","displayName":"Satoshi","avatarUrl":"https://img.example/s.png"}`))
	}))

	profile, err := c.CurrentProfile(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "satoshi", profile.Handle)
	assert.Equal(t, "Satoshi", profile.DisplayName)
}

func TestCurrentProfile_Unauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid authorization token"}`))
	}))

	_, err := c.CurrentProfile(context.Background(), "bad")
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindAuth, perr.Kind)
	assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	assert.False(t, perr.Retryable())
}

func TestSpendableBalance_Success(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/connect/wallet/spendableBalance", r.URL.Path)
		w.Write([]byte(`{"amountInBaseCurrency":1.5,"amountInLocalCurrency":1.5,"localCurrencyCode":"USD"}`))
	}))

	balance, err := c.SpendableBalance(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 1.5, balance.AmountInBaseCurrency)
	assert.Equal(t, "USD", balance.LocalCurrencyCode)
}

func TestPay_Success(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/connect/wallet/pay", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		w.Write([]byte(`{"transactionId":"tx-42"}`))
	}))

	receipt, err := c.Pay(context.Background(), "tok", PaymentRequest{
		Description:  "paygit push",
		Destination:  "maintainer",
		CurrencyCode: "USD",
		Amount:       0.01,
	})
	require.NoError(t, err)
	assert.Equal(t, "tx-42", receipt.TransactionID)
}

func TestPay_InsufficientFunds(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"insufficient balance to complete payment"}`))
	}))

	_, err := c.Pay(context.Background(), "tok", PaymentRequest{Amount: 0.01})
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindFunds, perr.Kind)
	assert.False(t, perr.Retryable())
}

func TestPay_ServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.Pay(context.Background(), "tok", PaymentRequest{Amount: 0.01})
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindProvider, perr.Kind)
	assert.True(t, perr.Retryable())
}

func TestNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // connection refused from here on

	c := New("paygit", WithBaseURL(server.URL))
	_, err := c.CurrentProfile(context.Background(), "tok")

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindNetwork, perr.Kind)
	assert.True(t, perr.Retryable())
}

func TestMalformedResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>surprise</html>"))
	}))

	_, err := c.CurrentProfile(context.Background(), "tok")
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindProvider, perr.Kind)
}

func TestClassify_TypedError(t *testing.T) {
	err := &Error{Kind: KindFunds, Message: "nope"}
	assert.Equal(t, KindFunds, Classify(err))

	wrapped := &Error{Kind: KindAuth, Message: "nope"}
	assert.Equal(t, KindAuth, Classify(wrapped))
}

func TestClassify_SubstringFallback(t *testing.T) {
	assert.Equal(t, KindFunds, Classify(errors.New("payment failed: insufficient balance")))
	assert.Equal(t, KindAuth, Classify(errors.New("provider said: unauthorized")))
	assert.Equal(t, KindNetwork, Classify(errors.New("dial tcp: i/o timeout")))
	assert.Equal(t, KindProvider, Classify(errors.New("something unexpected")))
}
