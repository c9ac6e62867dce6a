// Package authflow composes the credential store, session validator,
// and callback listener into a single "ensure I have a valid session"
// operation.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/paygit/paygit-cli/internal/listener"
)

// Permissions requested from the provider during authorization.
var Permissions = []string{"USER_PUBLIC_PROFILE", "PAY"}

// TokenStore is the credential persistence the orchestrator needs.
type TokenStore interface {
	LoadToken() (token string, found bool, err error)
	SaveToken(token string) error
	DeleteToken() (bool, error)
}

// TokenValidator checks tokens against the provider.
type TokenValidator interface {
	IsValid(ctx context.Context, token string) bool
	InvalidateCache()
}

// CallbackListener is the one-shot local listener for the provider
// redirect.
type CallbackListener interface {
	Start(portStart, portEnd int) (callbackURL string, err error)
	Await(ctx context.Context) (token string, err error)
	Stop() error
}

// Orchestrator drives the full authentication flow.
type Orchestrator struct {
	store     TokenStore
	validator TokenValidator

	// newListener builds a fresh listener per attempt; each listener is
	// single-shot.
	newListener func() CallbackListener

	// redirectionURL builds the browser authorization URL for a given
	// callback URL.
	redirectionURL func(callbackURL string) string

	openBrowser func(url string) error

	// envToken, when non-empty, is a token injected by a trusted host
	// environment and bypasses storage and validation entirely.
	envToken string

	portStart int
	portEnd   int

	out    io.Writer
	logger *slog.Logger
}

// Config wires an Orchestrator.
type Config struct {
	Store          TokenStore
	Validator      TokenValidator
	NewListener    func() CallbackListener
	RedirectionURL func(callbackURL string) string
	OpenBrowser    func(url string) error
	EnvToken       string
	PortStart      int
	PortEnd        int
	Out            io.Writer
	Logger         *slog.Logger
}

// New creates an Orchestrator from cfg, applying defaults for the
// browser opener, port range, output writer, and logger.
func New(cfg Config) *Orchestrator {
	if cfg.OpenBrowser == nil {
		cfg.OpenBrowser = OpenBrowser
	}
	if cfg.PortStart == 0 {
		cfg.PortStart = listener.DefaultPortStart
	}
	if cfg.PortEnd == 0 {
		cfg.PortEnd = listener.DefaultPortEnd
	}
	if cfg.Out == nil {
		cfg.Out = os.Stderr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		store:          cfg.Store,
		validator:      cfg.Validator,
		newListener:    cfg.NewListener,
		redirectionURL: cfg.RedirectionURL,
		openBrowser:    cfg.OpenBrowser,
		envToken:       cfg.EnvToken,
		portStart:      cfg.PortStart,
		portEnd:        cfg.PortEnd,
		out:            cfg.Out,
		logger:         cfg.Logger,
	}
}

// EnsureAuthenticated returns a usable session token. Resolution order:
// an environment-injected token (trusted as-is), a stored token that
// still validates, then the full interactive browser flow.
func (o *Orchestrator) EnsureAuthenticated(ctx context.Context) (string, error) {
	if o.envToken != "" {
		o.logger.Debug("using session token injected by environment")
		return o.envToken, nil
	}

	token, found, err := o.store.LoadToken()
	if err != nil {
		// A corrupted store is recovered by re-authenticating, but the
		// user should know it happened.
		o.logger.Warn("stored credentials unusable, re-authenticating", "error", err)
	}
	if found && o.validator.IsValid(ctx, token) {
		return token, nil
	}

	return o.Login(ctx)
}

// Login runs the interactive browser authorization flow and persists
// the captured token. The listener is ready before the browser opens so
// the redirect can never race the server.
func (o *Orchestrator) Login(ctx context.Context) (token string, err error) {
	l := o.newListener()

	callbackURL, err := l.Start(o.portStart, o.portEnd)
	if err != nil {
		return "", fmt.Errorf("starting callback listener: %w", err)
	}
	// Cleanup on every path, success or failure.
	defer func() {
		if stopErr := l.Stop(); stopErr != nil {
			o.logger.Warn("stopping callback listener", "error", stopErr)
		}
	}()

	authURL := o.redirectionURL(callbackURL)

	if err := o.openBrowser(authURL); err != nil {
		// Not fatal; the user can open the URL themselves.
		o.logger.Debug("could not open browser", "error", err)
		fmt.Fprintf(o.out, "Open this URL in your browser to authorize paygit:\n\n  %s\n\n", authURL)
	} else {
		fmt.Fprintf(o.out, "Your browser has been opened to authorize paygit.\nIf nothing happened, open this URL manually:\n\n  %s\n\n", authURL)
	}

	token, err = l.Await(ctx)
	if err != nil {
		return "", fmt.Errorf("waiting for authorization: %w", err)
	}

	// A token the provider just issued should validate. If it does not,
	// something is wrong upstream; retrying the flow will not help.
	if !o.validator.IsValid(ctx, token) {
		return "", errors.New("provider issued a token that failed validation")
	}

	if err := o.store.SaveToken(token); err != nil {
		return "", fmt.Errorf("persisting session token: %w", err)
	}
	o.validator.InvalidateCache()

	return token, nil
}

// Logout removes the stored token and clears the validation cache.
// Reports whether a token was actually removed.
func (o *Orchestrator) Logout() (bool, error) {
	deleted, err := o.store.DeleteToken()
	if err != nil {
		return false, err
	}
	o.validator.InvalidateCache()
	return deleted, nil
}

// CurrentToken returns the token that would be used right now without
// triggering the interactive flow: the environment token, or the stored
// one. found is false when neither exists.
func (o *Orchestrator) CurrentToken() (token string, found bool, err error) {
	if o.envToken != "" {
		return o.envToken, true, nil
	}
	return o.store.LoadToken()
}
