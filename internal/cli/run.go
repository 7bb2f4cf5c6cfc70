package cli

import (
	"github.com/spf13/cobra"

	appLog "calnotify/internal/log"
)

func newRunCmd() *cobra.Command {
	var (
		dryRun  bool
		account string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Notify every configured account once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			accounts, err := selectAccounts(cfg, account)
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				appLog.Warn("no accounts configured", "config_path", flagConfig)
				return nil
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rep := newRunner(cfg, dryRun, cmd.OutOrStdout()).Run(ctx, accounts)
			if rep.Failed() > 0 {
				return errAccountsFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print messages instead of posting them")
	cmd.Flags().StringVar(&account, "account", "", "Only run the named account")
	return cmd
}
