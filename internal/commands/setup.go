package commands

import (
	"context"
	"log/slog"

	"github.com/paygit/paygit-cli/internal/authflow"
	"github.com/paygit/paygit-cli/internal/config"
	"github.com/paygit/paygit-cli/internal/credentials"
	"github.com/paygit/paygit-cli/internal/dispatch"
	"github.com/paygit/paygit-cli/internal/listener"
	"github.com/paygit/paygit-cli/internal/logging"
	"github.com/paygit/paygit-cli/internal/output"
	"github.com/paygit/paygit-cli/internal/payment"
	"github.com/paygit/paygit-cli/internal/provider"
	"github.com/paygit/paygit-cli/internal/session"
	"github.com/paygit/paygit-cli/internal/vcs"
)

// app bundles the wired components behind every command.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *credentials.Store
	client    *provider.Client
	validator *session.Validator
	auth      *authflow.Orchestrator
}

// newApp loads configuration and wires the full component graph.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(cfg.Environment, GetVerbose())

	dir, err := cfg.Dir()
	if err != nil {
		return nil, err
	}

	var clientOpts []provider.Option
	if cfg.ProviderURL != "" {
		clientOpts = append(clientOpts, provider.WithBaseURL(cfg.ProviderURL))
	}
	if cfg.AuthURL != "" {
		clientOpts = append(clientOpts, provider.WithAuthURL(cfg.AuthURL))
	}
	client := provider.New(cfg.AppID, clientOpts...)

	store := credentials.NewStore(dir, logger)
	validator := session.NewValidator(client, nil, logger)

	auth := authflow.New(authflow.Config{
		Store:     store,
		Validator: validator,
		NewListener: func() authflow.CallbackListener {
			return listener.New(logger)
		},
		RedirectionURL: func(callbackURL string) string {
			return client.RedirectionURL(authflow.Permissions, callbackURL)
		},
		EnvToken: cfg.SessionToken,
		Logger:   logger,
	})

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		client:    client,
		validator: validator,
		auth:      auth,
	}, nil
}

// newDispatcher assembles the dispatcher for one forwarded git
// invocation, reading the gating mode fresh from settings so a mode
// switch takes effect on the next run.
func (a *app) newDispatcher() (*dispatch.Dispatcher, error) {
	dir, err := a.cfg.Dir()
	if err != nil {
		return nil, err
	}

	settings := config.LoadSettings(dir)
	mode, err := dispatch.ParseMode(settings.PaymentMode)
	if err != nil {
		a.logger.Warn("stored payment mode invalid, using default", "error", err)
		mode = dispatch.DefaultMode
	}

	executor := payment.New(a.client, a.cfg.Destination, a.cfg.Currency, payment.Options{
		CheckBalance: a.cfg.CheckBalance,
	}, a.logger)

	runner := vcs.New(a.cfg.GitBinary, a.logger)

	return dispatch.New(mode, a.auth, executor, runner, a.cfg.Amount, a.logger), nil
}

// runForwarded handles a non-built-in invocation: wire everything and
// hand the arguments to the dispatcher.
func runForwarded(ctx context.Context, args []string) int {
	a, err := newApp()
	if err != nil {
		output.PrintError(err)
		return 1
	}

	d, err := a.newDispatcher()
	if err != nil {
		output.PrintError(err)
		return 1
	}

	return d.Run(ctx, args)
}
