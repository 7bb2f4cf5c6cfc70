package cli

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"calnotify/internal/config"
	appLog "calnotify/internal/log"
	"calnotify/internal/web"
)

func newServeCmd() *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run on the configured cron schedule and serve the status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			return serve(ctx, cfg, runNow)
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "Also run once immediately on startup")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, runNow bool) error {
	r := newRunner(cfg, false, nil)
	srv := web.NewServer(cfg, r)

	job := func() {
		srv.SetReport(r.Run(ctx, cfg.Accounts))
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	id, err := c.AddFunc(cfg.Schedule, job)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}
	// The startup run goes through the same chain, so it never overlaps a
	// scheduled one.
	startup := c.Entry(id).WrappedJob

	c.Start()
	appLog.Info("scheduler started", "schedule", cfg.Schedule, "accounts", len(cfg.Accounts))

	if runNow {
		go startup.Run()
	}

	var srvErr error
	if cfg.Listen != "" {
		srvErr = srv.Start(ctx)
	} else {
		<-ctx.Done()
	}

	// Wait for a running job to finish before exiting.
	<-c.Stop().Done()
	appLog.Info("calnotify exiting")
	return srvErr
}

// cronLogger routes cron's own logging through the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
