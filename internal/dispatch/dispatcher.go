// Package dispatch decides whether a requested operation is
// payment-gated and sequences authentication, payment, and tool
// execution accordingly.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/paygit/paygit-cli/internal/output"
	"github.com/paygit/paygit-cli/internal/payment"
	"github.com/paygit/paygit-cli/internal/provider"
)

// Authenticator supplies a valid session token.
type Authenticator interface {
	EnsureAuthenticated(ctx context.Context) (string, error)
}

// Payer charges the configured micropayment.
type Payer interface {
	Execute(ctx context.Context, amount float64, note, token string) (*provider.Receipt, error)
}

// Runner invokes the underlying tool.
type Runner interface {
	Run(args []string) (int, error)
	HeadCommit() (string, error)
}

// Dispatcher sequences one operation per process lifetime.
type Dispatcher struct {
	mode   Mode
	auth   Authenticator
	payer  Payer
	runner Runner
	amount float64
	logger *slog.Logger
}

// New creates a Dispatcher charging amount per gated operation.
func New(mode Mode, auth Authenticator, payer Payer, runner Runner, amount float64, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		mode:   mode,
		auth:   auth,
		payer:  payer,
		runner: runner,
		amount: amount,
		logger: logger,
	}
}

// Run executes args (args[0] is the operation) and returns the process
// exit code: 0 on success, 1 on authentication or gatekeeper-payment
// failure, otherwise the tool's own exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		return d.runTool(args)
	}

	op := args[0]
	if !d.mode.Gates(op) {
		return d.runTool(args)
	}

	token, err := d.auth.EnsureAuthenticated(ctx)
	if err != nil {
		output.PrintError(err)
		return 1
	}

	if publishAfter[op] {
		return d.runPublishAfter(ctx, op, args, token)
	}
	return d.runPublishBefore(ctx, op, args, token)
}

// runPublishBefore pays first: the payment is a gatekeeper and a
// failure aborts before the tool runs. Once the payment settled, the
// exit code reflects the tool alone.
func (d *Dispatcher) runPublishBefore(ctx context.Context, op string, args []string, token string) int {
	note := payment.FormatNote("paygit "+op, "")
	if _, err := d.payer.Execute(ctx, d.amount, note, token); err != nil {
		output.PrintError(err)
		return 1
	}
	return d.runTool(args)
}

// runPublishAfter runs the tool first and only pays when it succeeded,
// tagging the note with the content identifier the tool produced. A
// payment failure here is downgraded to a warning: the operation
// already succeeded and its result is not held hostage.
func (d *Dispatcher) runPublishAfter(ctx context.Context, op string, args []string, token string) int {
	code := d.runTool(args)
	if code != 0 {
		return code
	}

	id, err := d.runner.HeadCommit()
	if err != nil {
		d.logger.Warn("could not resolve content identifier for payment note", "error", err)
		id = ""
	}

	note := payment.FormatNote("paygit "+op, id)
	if _, err := d.payer.Execute(ctx, d.amount, note, token); err != nil {
		output.PrintWarning("payment failed: " + err.Error())
		d.logger.Warn("post-operation payment failed", "operation", op, "error", err)
	}
	return 0
}

func (d *Dispatcher) runTool(args []string) int {
	code, err := d.runner.Run(args)
	if err != nil {
		output.PrintError(err)
		return 1
	}
	return code
}
