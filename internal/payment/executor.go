// Package payment executes priced actions against the wallet provider
// with retry, backoff, and error classification.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paygit/paygit-cli/internal/provider"
)

const (
	// DefaultMaxAttempts is how many times a charge is attempted before
	// giving up.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the first backoff delay; it doubles per
	// attempt up to DefaultMaxDelay.
	DefaultBaseDelay = time.Second
	DefaultMaxDelay  = 10 * time.Second

	// FundingURL is where users top up their wallet.
	FundingURL = "https://app.pocketcash.io/#/topUp"
)

// Remediation hints attached to terminal payment failures.
const (
	HintFunds   = "add funds to your wallet at " + FundingURL
	HintAuth    = "run 'paygit auth login' to refresh your session"
	HintNetwork = "check your network connection and try again"
)

// Payer is the slice of the provider adapter the executor needs.
type Payer interface {
	Pay(ctx context.Context, token string, req provider.PaymentRequest) (*provider.Receipt, error)
	SpendableBalance(ctx context.Context, token string) (*provider.Balance, error)
}

// Error wraps a payment failure with a user-actionable hint.
type Error struct {
	Err  error
	hint string
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Hint returns the remediation hint for this failure.
func (e *Error) Hint() string {
	return e.hint
}

// Options tunes the executor.
type Options struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	CheckBalance bool

	// Sleep suspends between attempts; injectable for tests. Defaults
	// to a context-aware timer wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Executor charges a fixed destination through the provider.
type Executor struct {
	payer       Payer
	destination string
	currency    string
	opts        Options
	logger      *slog.Logger
}

// New creates an Executor paying destination in the given currency.
func New(payer Payer, destination, currency string, opts Options, logger *slog.Logger) *Executor {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		payer:       payer,
		destination: destination,
		currency:    currency,
		opts:        opts,
		logger:      logger,
	}
}

// Execute charges amount with the given note. Preconditions are checked
// before any network traffic. Retryable failures back off
// exponentially; terminal failures (bad token, insufficient funds) stop
// immediately. The final error always carries a remediation hint.
func (e *Executor) Execute(ctx context.Context, amount float64, note, token string) (*provider.Receipt, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive, got %v", amount)
	}
	if token == "" {
		return nil, errors.New("payment requires a session token")
	}

	if e.opts.CheckBalance {
		e.preflightBalance(ctx, amount, token)
	}

	req := provider.PaymentRequest{
		Description:  note,
		Destination:  e.destination,
		CurrencyCode: e.currency,
		Amount:       amount,
	}

	delay := e.opts.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		receipt, err := e.payer.Pay(ctx, token, req)
		if err == nil {
			e.logger.Debug("payment settled",
				"transactionId", receipt.TransactionID, "attempt", attempt)
			return receipt, nil
		}

		lastErr = err
		kind := provider.Classify(err)
		if kind == provider.KindAuth || kind == provider.KindFunds {
			e.logger.Debug("terminal payment failure, not retrying", "kind", kind)
			break
		}

		if attempt < e.opts.MaxAttempts {
			e.logger.Debug("payment attempt failed, backing off",
				"attempt", attempt, "delay", delay, "error", err)
			if err := e.opts.Sleep(ctx, delay); err != nil {
				return nil, &Error{Err: err, hint: HintNetwork}
			}
			delay *= 2
			if delay > e.opts.MaxDelay {
				delay = e.opts.MaxDelay
			}
		}
	}

	return nil, wrapWithHint(lastErr)
}

// preflightBalance warns when the balance looks too low but never
// blocks the payment; the charge itself is authoritative.
func (e *Executor) preflightBalance(ctx context.Context, amount float64, token string) {
	balance, err := e.payer.SpendableBalance(ctx, token)
	if err != nil {
		e.logger.Warn("balance pre-flight check failed", "error", err)
		return
	}
	if balance.AmountInBaseCurrency < amount {
		e.logger.Warn("spendable balance below payment amount",
			"balance", balance.AmountInBaseCurrency, "amount", amount)
	}
}

func wrapWithHint(err error) *Error {
	switch provider.Classify(err) {
	case provider.KindFunds:
		return &Error{Err: err, hint: HintFunds}
	case provider.KindAuth:
		return &Error{Err: err, hint: HintAuth}
	default:
		return &Error{Err: err, hint: HintNetwork}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
