// Package runner drives the per-account pipeline: connect, select a
// calendar, query today-onward events, format, build and notify.
//
// Accounts run one after another in configuration order. Each run sits
// behind its own failure boundary so that one broken account never stops
// the others.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"calnotify/internal/config"
	"calnotify/internal/event"
	appLog "calnotify/internal/log"
	"calnotify/internal/message"
	"calnotify/internal/notifier"
	"calnotify/internal/source"
)

// Runner holds the collaborators of a run. Connector and Notifier are
// required; FailureLog and Now are optional.
type Runner struct {
	Connector  source.Connector
	Notifier   notifier.Notifier
	FailureLog FailureLog
	Message    message.Options
	Now        func() time.Time
}

// AccountResult is the outcome of one account's run.
type AccountResult struct {
	Account    string        `json:"account"`
	Calendar   string        `json:"calendar,omitempty"`
	Events     int           `json:"events"`
	Delivered  bool          `json:"delivered"`
	Error      string        `json:"error,omitempty"`
	DurationMs int64         `json:"duration_ms"`
	Err        error         `json:"-"`
	Duration   time.Duration `json:"-"`
}

// Report summarizes one run over all accounts.
type Report struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Accounts   []AccountResult `json:"accounts"`
}

// Failed returns the number of accounts whose run ended in an error.
func (r Report) Failed() int {
	n := 0
	for _, a := range r.Accounts {
		if a.Err != nil {
			n++
		}
	}
	return n
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run processes accounts sequentially. It stops early only when ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context, accounts []config.Account) Report {
	rep := Report{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
		Accounts:  make([]AccountResult, 0, len(accounts)),
	}

	appLog.Info("run started", "run_id", rep.RunID, "accounts", len(accounts))

	for _, acc := range accounts {
		if err := ctx.Err(); err != nil {
			appLog.Warn("run cancelled", "run_id", rep.RunID, "remaining_from", acc.Name)
			break
		}
		rep.Accounts = append(rep.Accounts, r.RunAccount(ctx, acc))
	}

	rep.FinishedAt = r.now()
	appLog.Info("run finished",
		"run_id", rep.RunID,
		"accounts", len(rep.Accounts),
		"failed", rep.Failed(),
		"elapsed", rep.FinishedAt.Sub(rep.StartedAt).String(),
	)
	return rep
}

// RunAccount runs the whole pipeline for one account. Every error, and any
// panic, is recorded in the failure log and returned in the result.
func (r *Runner) RunAccount(ctx context.Context, acc config.Account) (res AccountResult) {
	started := r.now()
	res.Account = acc.Name

	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("panic: %v", p)
		}
		res.Duration = r.now().Sub(started)
		res.DurationMs = res.Duration.Milliseconds()
		if res.Err == nil {
			appLog.Info("account notified", "account", acc.Name, "calendar", res.Calendar, "events", res.Events)
			return
		}
		res.Error = res.Err.Error()
		appLog.Error("account run failed", res.Err, "account", acc.Name)
		r.recordFailure(acc.Name, res.Err)
	}()

	payload, cal, n, err := r.build(ctx, acc)
	res.Calendar = cal
	res.Events = n
	if err != nil {
		res.Err = err
		return res
	}

	if err := r.Notifier.Notify(ctx, acc.Webhook, payload); err != nil {
		res.Err = fmt.Errorf("deliver: %w", err)
		return res
	}
	res.Delivered = true
	return res
}

// Preview builds the message an account would receive without sending it.
func (r *Runner) Preview(ctx context.Context, acc config.Account) (*message.Payload, error) {
	p, _, _, err := r.build(ctx, acc)
	return p, err
}

func (r *Runner) build(ctx context.Context, acc config.Account) (*message.Payload, string, int, error) {
	if r.Connector == nil {
		return nil, "", 0, errors.New("runner: no connector configured")
	}

	src, err := r.Connector.Connect(ctx, acc)
	if err != nil {
		return nil, "", 0, fmt.Errorf("connect: %w", err)
	}

	cals, err := src.Calendars(ctx)
	if err != nil {
		return nil, "", 0, fmt.Errorf("list calendars: %w", err)
	}
	cal, err := source.SelectCalendar(cals, acc.Calendar)
	if err != nil {
		return nil, "", 0, fmt.Errorf("select calendar: %w", err)
	}

	from := source.StartOfDay(r.now())
	raws, err := src.QueryEvents(ctx, cal, from, nil)
	if err != nil {
		return nil, cal.Label(), 0, fmt.Errorf("query events from %s: %w", source.FormatUTC(from), err)
	}

	b := message.NewBuilder(r.Message)
	for _, raw := range raws {
		b.Add(event.FormatEvent(raw, event.Options{From: from}))
	}

	return b.Payload(), cal.Label(), b.Len(), nil
}

func (r *Runner) recordFailure(account string, err error) {
	if r.FailureLog == nil {
		return
	}
	if lerr := r.FailureLog.Record(r.now(), account, err); lerr != nil {
		appLog.Error("failure log write failed", lerr, "account", account)
	}
}
