package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paygit/paygit-cli/internal/config"
	"github.com/paygit/paygit-cli/internal/dispatch"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read or change paygit settings",
}

var paymentModeCmd = &cobra.Command{
	Use:   "payment-mode [minimal|universal]",
	Short: "Show or set which operations are charged",
	Long: `Show or set the payment-gating mode.

  minimal    charge only for publishing operations (push, commit)
  universal  charge for every git operation

The new mode takes effect on the next invocation; no re-authentication
is needed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPaymentMode,
}

func init() {
	configCmd.AddCommand(paymentModeCmd)
	rootCmd.AddCommand(configCmd)
}

func runPaymentMode(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	dir, err := a.cfg.Dir()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		settings := config.LoadSettings(dir)
		fmt.Println(settings.PaymentMode)
		return nil
	}

	mode, err := dispatch.ParseMode(args[0])
	if err != nil {
		return err
	}

	settings := config.LoadSettings(dir)
	settings.PaymentMode = string(mode)
	if err := config.SaveSettings(dir, settings); err != nil {
		return err
	}

	fmt.Printf("payment-mode set to %s\n", mode)
	return nil
}
