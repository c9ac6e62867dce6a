// Package vcs invokes the underlying version-control tool as a
// subprocess and propagates its exit code.
package vcs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Runner executes the wrapped tool with inherited stdio.
type Runner struct {
	binary string
	logger *slog.Logger
}

// New creates a Runner for the given binary name or path. Defaults to
// "git" when empty.
func New(binary string, logger *slog.Logger) *Runner {
	if binary == "" {
		binary = "git"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{binary: binary, logger: logger}
}

// Run executes the tool with args, wiring the user's terminal straight
// through. A non-zero exit from the tool is not an error here; the code
// is returned for the caller to propagate. A non-nil error means the
// tool could not be run at all.
func (r *Runner) Run(args []string) (int, error) {
	r.logger.Debug("invoking tool", "binary", r.binary, "args", strings.Join(args, " "))

	cmd := exec.Command(r.binary, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return 0, fmt.Errorf("failed to run %s: %w", r.binary, err)
}

// HeadCommit returns the abbreviated hash of the current HEAD commit,
// used to tag payment notes after a successful commit.
func (r *Runner) HeadCommit() (string, error) {
	out, err := exec.Command(r.binary, "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD commit: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
