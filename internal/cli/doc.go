// Package cli implements the command-line interface for calnotify.
//
// The Cobra root command carries the persistent --config and --log-level
// flags. Subcommands run the notification pipeline once (run), on a cron
// schedule with a status server (serve), or render one account's message
// without posting it (preview).
package cli
