package listener

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test ports sit outside the default range so parallel test runs and
// developer machines don't collide with real logins.
const (
	testPortStart = 18250
	testPortEnd   = 18270
)

func startListener(t *testing.T, opts ...Option) (*Listener, string) {
	t.Helper()
	l := New(nil, opts...)
	callbackURL, err := l.Start(testPortStart, testPortEnd)
	require.NoError(t, err)
	t.Cleanup(func() { l.Stop() })
	return l, callbackURL
}

func TestStart_HealthEndpoint(t *testing.T) {
	l, _ := startListener(t)

	resp, err := http.Get(l.BaseURL() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCallback_CapturesToken(t *testing.T) {
	l, callbackURL := startListener(t)

	resp, err := http.Get(callbackURL + "?token=tok-abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Authorization complete")

	token, err := l.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)
}

func TestCallback_MissingToken(t *testing.T) {
	l, callbackURL := startListener(t)

	resp, err := http.Get(callbackURL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err = l.Await(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing the token parameter")
}

func TestErrorEndpoint(t *testing.T) {
	l, _ := startListener(t)

	q := url.Values{"message": {"user denied access"}}
	resp, err := http.Get(l.BaseURL() + "/error?" + q.Encode())
	require.NoError(t, err)
	resp.Body.Close()

	_, err = l.Await(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user denied access")
}

func TestAwait_Timeout(t *testing.T) {
	l, _ := startListener(t, WithTimeout(50*time.Millisecond))

	_, err := l.Await(context.Background())
	require.ErrorIs(t, err, ErrTimeout)
}

func TestAwait_ContextCancelled(t *testing.T) {
	l, _ := startListener(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Await(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStart_PortFallbackOnAddressInUse(t *testing.T) {
	// Occupy the first port of the range so Start has to move on.
	blocker, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", testPortStart))
	require.NoError(t, err)
	defer blocker.Close()

	l, callbackURL := startListener(t)

	parsed, err := url.Parse(l.BaseURL())
	require.NoError(t, err)
	port, err := strconv.Atoi(parsed.Port())
	require.NoError(t, err)
	assert.Greater(t, port, testPortStart)
	assert.LessOrEqual(t, port, testPortEnd)
	assert.Contains(t, callbackURL, "/callback")
}

func TestStart_ExhaustedRange(t *testing.T) {
	blocker, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", testPortEnd+1))
	require.NoError(t, err)
	defer blocker.Close()

	l := New(nil)
	_, err = l.Start(testPortEnd+1, testPortEnd+1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no free port")
}

func TestFirstCallbackWins(t *testing.T) {
	l, callbackURL := startListener(t)

	for _, token := range []string{"first", "second"} {
		resp, err := http.Get(callbackURL + "?token=" + token)
		require.NoError(t, err)
		resp.Body.Close()
	}

	token, err := l.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", token)
}

func TestStop_Idempotent(t *testing.T) {
	l, _ := startListener(t)
	require.NoError(t, l.Stop())
	require.NoError(t, l.Stop())

	// Stopping a listener that never started is a no-op success.
	idle := New(nil)
	require.NoError(t, idle.Stop())
}
