package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"calnotify/internal/config"
	appLog "calnotify/internal/log"
	"calnotify/internal/message"
	"calnotify/internal/notifier"
	"calnotify/internal/runner"
	"calnotify/internal/source"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

const defaultConfigPath = "/etc/calnotify/config.yaml"

var (
	flagConfig   string
	flagLogLevel string
)

// errAccountsFailed signals that the run finished but at least one account
// did not get its message.
var errAccountsFailed = errors.New("one or more accounts failed")

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calnotify",
		Short: "Post upcoming calendar events to chat webhooks",
		Long: `calnotify reads today's and upcoming events from CalDAV calendars
(or ICS subscriptions) and posts one summary message per account to a
Slack-compatible incoming webhook.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := appLog.ParseLevel(flagLogLevel)
			if err != nil {
				return err
			}
			appLog.SetLevel(lvl)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", defaultConfigPath, "Path to config file")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn or error")

	cmd.AddCommand(newRunCmd(), newServeCmd(), newPreviewCmd())
	return cmd
}

// Execute runs the CLI
func Execute() {
	err := NewRootCmd().Execute()
	appLog.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}

// loadConfig reads, normalizes and validates the config file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flagConfig)
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", flagConfig, err)
	}

	appLog.Info("effective config",
		"config_path", flagConfig,
		"accounts", len(cfg.Accounts),
		"timeout", cfg.Timeout.String(),
		"failure_log", cfg.FailureLog,
		"schedule", cfg.Schedule,
		"listen", cfg.Listen,
	)
	return cfg, nil
}

// newRunner wires the production collaborators. With dryRun set, messages
// are written to out instead of being posted.
func newRunner(cfg *config.Config, dryRun bool, out io.Writer) *runner.Runner {
	var n notifier.Notifier = notifier.NewWebhookNotifier(cfg.Timeout)
	if dryRun {
		n = notifier.NewDryRunNotifier(out)
	}
	return &runner.Runner{
		Connector:  source.Dialer{Timeout: cfg.Timeout},
		Notifier:   n,
		FailureLog: &runner.FileFailureLog{Path: cfg.FailureLog},
		Message: message.Options{
			Title:        cfg.Title,
			ThumbnailURL: cfg.ThumbnailURL,
		},
	}
}

// selectAccounts returns all accounts, or only the named one.
func selectAccounts(cfg *config.Config, name string) ([]config.Account, error) {
	if name == "" {
		return cfg.Accounts, nil
	}
	acc, ok := cfg.Account(name)
	if !ok {
		return nil, fmt.Errorf("unknown account %q", name)
	}
	return []config.Account{acc}, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
