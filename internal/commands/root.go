// Package commands implements the CLI commands using Cobra. Anything
// that is not a built-in subcommand is forwarded to git through the
// payment-gated dispatcher.
package commands

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paygit/paygit-cli/internal/output"
)

// Version information (set at build time via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Global flags
var verbose bool

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "paygit",
	Short: "Payment-gated wrapper around git",
	Long: `paygit wraps git and charges a micropayment for publishing operations.

Any git command works unchanged:

  paygit status
  paygit commit -m "message"
  paygit push origin main

Gated operations (push, commit by default) require an authenticated
wallet session. Built-in commands:

  auth         Log in, log out, or show session status
  config       Read or change paygit settings
  version      Show version information

Examples:
  # Authorize paygit with your wallet
  paygit auth login

  # Charge on every git command instead of just publishing ones
  paygit config payment-mode universal`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// builtins are the subcommands handled by cobra rather than forwarded
// to git.
var builtins = map[string]bool{
	"auth":       true,
	"config":     true,
	"version":    true,
	"completion": true,
	"help":       true,
}

// Execute runs the CLI. Arguments that do not name a built-in
// subcommand bypass cobra entirely so git sees its native flags
// untouched.
func Execute() {
	args := os.Args[1:]
	if len(args) > 0 && !builtins[args[0]] &&
		!strings.HasPrefix(args[0], "-") && !strings.HasPrefix(args[0], "__") {
		os.Exit(runForwarded(context.Background(), args))
	}

	if err := rootCmd.Execute(); err != nil {
		output.PrintError(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed output")
}

// GetVerbose returns the verbose flag value.
func GetVerbose() bool {
	return verbose
}
