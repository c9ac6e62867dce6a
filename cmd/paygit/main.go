// paygit is a payment-gated wrapper around git.
//
// Every invocation that is not a built-in subcommand is forwarded to
// git unchanged; publishing operations require an authenticated wallet
// session and charge a configurable micropayment.
//
// Usage:
//
//	paygit <any git command>        Forward to git (gated when configured)
//	paygit auth login|logout|status Manage the wallet session
//	paygit config payment-mode      Show or set the gating policy
//	paygit version                  Show version info
package main

import "github.com/paygit/paygit-cli/internal/commands"

func main() {
	commands.Execute()
}
