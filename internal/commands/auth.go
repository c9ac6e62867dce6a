package commands

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/paygit/paygit-cli/internal/output"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the wallet session",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize paygit with your wallet",
	Long: `Open the wallet provider in your browser and authorize paygit.

The captured session token is stored encrypted, scoped to this machine.
If a valid session already exists, nothing changes.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and wallet status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(authCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	// Fix what can be fixed before touching the store.
	if err := a.store.Repair(); err != nil {
		a.logger.Warn("credential store repair failed", "error", err)
	}

	var spin *spinner.Spinner
	if output.IsStderrTTY() {
		spin = spinner.New(spinner.CharSets[14], 120*time.Millisecond)
		spin.Suffix = " waiting for authorization..."
		spin.Start()
		defer spin.Stop()
	}

	token, err := a.auth.EnsureAuthenticated(cmd.Context())
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return err
	}

	if profile, ok := a.validator.Profile(cmd.Context(), token); ok {
		fmt.Printf("✓ Logged in as @%s\n", profile.Handle)
	} else {
		fmt.Println("✓ Logged in")
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	deleted, err := a.auth.Logout()
	if err != nil {
		return err
	}

	if deleted {
		fmt.Println("✓ Logged out")
	} else {
		fmt.Println("No session was stored")
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if problems := a.store.Validate(); len(problems) > 0 {
		for _, p := range problems {
			output.PrintWarning(p)
		}
	}

	token, found, err := a.auth.CurrentToken()
	if err != nil {
		output.PrintWarning("stored credentials unreadable: " + err.Error())
	}
	if !found || token == "" {
		fmt.Println("✗ Not logged in")
		fmt.Println()
		fmt.Println("Run 'paygit auth login' to authenticate")
		return nil
	}

	if !a.validator.IsValid(cmd.Context(), token) {
		fmt.Println("✗ Session expired or invalid")
		fmt.Println()
		fmt.Println("Run 'paygit auth login' to re-authenticate")
		return nil
	}

	fmt.Println("✓ Logged in")
	if profile, ok := a.validator.Profile(cmd.Context(), token); ok {
		fmt.Printf("  Account:  @%s", profile.Handle)
		if profile.DisplayName != "" {
			fmt.Printf(" (%s)", profile.DisplayName)
		}
		fmt.Println()
	}
	if balance, ok := a.validator.Balance(cmd.Context(), token); ok {
		fmt.Printf("  Balance:  %.2f %s\n", balance.AmountInLocalCurrency, balance.LocalCurrencyCode)
	}
	return nil
}
