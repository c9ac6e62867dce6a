// Package output handles terminal detection and user-facing messages.
// Diagnostics go through slog; everything a user is meant to read goes
// through here.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PrintError outputs a one-line error summary to stderr, followed by a
// contextual hint when one can be determined.
func PrintError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if hint := Hint(err); hint != "" {
		fmt.Fprintf(os.Stderr, "Hint:  %s\n", hint)
	}
}

// PrintWarning outputs a warning message to stderr.
func PrintWarning(msg string) {
	fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
}

// PrintInfo outputs an informational message to stderr, keeping stdout
// clean for the wrapped tool.
func PrintInfo(msg string) {
	fmt.Fprintf(os.Stderr, "%s\n", msg)
}

// PrintJSON outputs any value as indented JSON to stdout.
func PrintJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// hinter is implemented by errors that carry their own remediation
// hint (payment failures do).
type hinter interface {
	Hint() string
}

// Hint returns a remediation hint for err: the error's own hint when it
// carries one, otherwise a keyword-based guess for the known
// authentication and balance failure classes. Empty when nothing
// useful can be suggested.
func Hint(err error) string {
	if err == nil {
		return ""
	}

	var h hinter
	if errors.As(err, &h) {
		return h.Hint()
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient") || strings.Contains(msg, "balance"):
		return "add funds to your wallet, then retry"
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid token") ||
		strings.Contains(msg, "authentication") || strings.Contains(msg, "authorization"):
		return "run 'paygit auth login' to authenticate"
	case strings.Contains(msg, "timed out waiting for authorization"):
		return "run 'paygit auth login' and complete the flow in your browser"
	default:
		return ""
	}
}

// IsTTY returns true if stdout is connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsStderrTTY returns true if stderr is connected to a terminal.
func IsStderrTTY() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
