package cli

import (
	"github.com/spf13/cobra"

	"calnotify/internal/notifier"
)

func newPreviewCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the message one account would receive, without posting",
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
			acc := accounts[0]

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			p, err := newRunner(cfg, true, cmd.OutOrStdout()).Preview(ctx, acc)
			if err != nil {
				return err
			}
			return notifier.NewDryRunNotifier(cmd.OutOrStdout()).Notify(ctx, acc.Webhook, p)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Account to preview (required)")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}
