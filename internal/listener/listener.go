// Package listener runs the ephemeral local HTTP server that captures
// the session token delivered by the provider's browser redirect.
package listener

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"
)

const (
	// DefaultTimeout is how long to wait for the authorization callback.
	DefaultTimeout = 5 * time.Minute

	// DefaultPortStart and DefaultPortEnd bound the local port range the
	// listener tries, in order.
	DefaultPortStart = 8050
	DefaultPortEnd   = 8060
)

// ErrTimeout indicates no callback arrived within the timeout window.
var ErrTimeout = errors.New("timed out waiting for authorization callback")

type result struct {
	token string
	err   error
}

// Listener is a one-shot callback server. Exactly one authorization
// attempt may be in flight per instance; the orchestrator serializes
// attempts.
type Listener struct {
	server   *http.Server
	ln       net.Listener
	resultCh chan result
	once     sync.Once
	timeout  time.Duration
	baseURL  string
	logger   *slog.Logger
}

// Option configures the Listener.
type Option func(*Listener)

// WithTimeout overrides the callback timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(l *Listener) {
		l.timeout = timeout
	}
}

// New creates an idle listener.
func New(logger *slog.Logger, opts ...Option) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Listener{
		resultCh: make(chan result, 1),
		timeout:  DefaultTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start binds the first available port in the inclusive range and
// begins serving the callback endpoints. Only "address in use" advances
// to the next port; any other bind error propagates immediately.
// Returns the callback URL to hand to the provider.
func (l *Listener) Start(portStart, portEnd int) (string, error) {
	if portStart > portEnd {
		return "", fmt.Errorf("invalid port range %d-%d", portStart, portEnd)
	}

	var ln net.Listener
	for port := portStart; port <= portEnd; port++ {
		var err error
		ln, err = net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			break
		}
		if errors.Is(err, syscall.EADDRINUSE) {
			l.logger.Debug("callback port in use, trying next", "port", port)
			continue
		}
		return "", fmt.Errorf("binding callback listener: %w", err)
	}
	if ln == nil {
		return "", fmt.Errorf("no free port in range %d-%d", portStart, portEnd)
	}

	l.ln = ln
	port := ln.Addr().(*net.TCPAddr).Port
	l.baseURL = fmt.Sprintf("http://localhost:%d", port)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", l.handleCallback)
	mux.HandleFunc("/error", l.handleError)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	l.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.deliver("", fmt.Errorf("callback server failed: %w", err))
		}
	}()

	return l.baseURL + "/callback", nil
}

// Await blocks until the callback delivers a result, the timeout
// elapses, or ctx is cancelled. The timer covers the whole window from
// when listening began.
func (l *Listener) Await(ctx context.Context) (string, error) {
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case res := <-l.resultCh:
		return res.token, res.err
	case <-timer.C:
		return "", ErrTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Stop gracefully shuts the server down. Safe to call multiple times
// and on a listener that never started.
func (l *Listener) Stop() error {
	if l.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down callback server: %w", err)
	}
	// Shutdown only closes listeners the Serve goroutine has registered;
	// if it hasn't been scheduled yet the socket would stay bound, so
	// close it directly. Serve normally closes it first, making this a
	// no-op whose error is safe to ignore.
	if l.ln != nil {
		l.ln.Close()
	}
	return nil
}

// BaseURL returns the listener's base URL once started.
func (l *Listener) BaseURL() string {
	return l.baseURL
}

// deliver pushes the single result. Later calls are dropped; the first
// callback wins.
func (l *Listener) deliver(token string, err error) {
	l.once.Do(func() {
		l.resultCh <- result{token: token, err: err}
	})
}

func (l *Listener) handleCallback(w http.ResponseWriter, r *http.Request) {
	setSecurityHeaders(w)

	token := r.URL.Query().Get("token")
	if token == "" {
		writePage(w, http.StatusBadRequest, "Authorization failed",
			"The provider redirect did not include a token. Close this tab and try again.")
		l.deliver("", errors.New("callback request is missing the token parameter"))
		return
	}

	writePage(w, http.StatusOK, "Authorization complete",
		"You can close this tab and return to your terminal.")
	l.deliver(token, nil)
}

func (l *Listener) handleError(w http.ResponseWriter, r *http.Request) {
	setSecurityHeaders(w)

	message := r.URL.Query().Get("message")
	if message == "" {
		message = "the provider reported an authorization failure"
	}

	writePage(w, http.StatusOK, "Authorization failed", message)
	l.deliver("", fmt.Errorf("provider reported an error: %s", message))
}

func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
}

func writePage(w http.ResponseWriter, status int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>paygit</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 4em;">
<h1>%s</h1>
<p>%s</p>
</body>
</html>
`, html.EscapeString(title), html.EscapeString(body))
}
