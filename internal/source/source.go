// Package source talks to calendar servers: it connects with an account's
// credentials, lists calendars and returns the raw records overlapping a
// time range.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"calnotify/internal/config"
	appLog "calnotify/internal/log"
	"calnotify/internal/model"
)

var (
	// ErrAuthentication means the server rejected the credentials.
	ErrAuthentication = errors.New("authentication failed")
	// ErrNetwork means the server could not be reached.
	ErrNetwork = errors.New("network error")
	// ErrNoCalendars means the account exposes no calendars at all.
	ErrNoCalendars = errors.New("no calendars found")
	// ErrCalendarNotFound means the configured calendar is not listed.
	ErrCalendarNotFound = errors.New("calendar not found")
)

// Source is an authenticated session with one calendar server.
type Source interface {
	// Calendars lists calendars in server order.
	Calendars(ctx context.Context) ([]model.Calendar, error)
	// QueryEvents returns events overlapping [start, end). A nil end
	// means unbounded.
	QueryEvents(ctx context.Context, cal model.Calendar, start time.Time, end *time.Time) ([]model.RawEvent, error)
}

// Connector opens a Source for an account.
type Connector interface {
	Connect(ctx context.Context, acc config.Account) (Source, error)
}

// Dialer is the production Connector. It picks CalDAV or an ICS feed
// depending on the account.
type Dialer struct {
	// Timeout bounds each HTTP request. Zero means config.DefaultTimeout.
	Timeout time.Duration
}

func (d Dialer) Connect(ctx context.Context, acc config.Account) (Source, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	hc := &authClient{
		client:   &http.Client{Timeout: timeout},
		username: acc.Username,
		password: acc.Password,
	}

	if acc.ICSURL != "" {
		return dialFeed(ctx, hc, acc)
	}
	return dialCalDAV(ctx, hc, acc)
}

// SelectCalendar picks the calendar named by want (display name,
// case-insensitive, or exact path). An empty want selects the first
// calendar the server listed.
func SelectCalendar(cals []model.Calendar, want string) (model.Calendar, error) {
	if len(cals) == 0 {
		return model.Calendar{}, ErrNoCalendars
	}

	if want == "" {
		if len(cals) > 1 {
			names := make([]string, 0, len(cals))
			for _, c := range cals {
				names = append(names, c.Label())
			}
			appLog.Warn("several calendars listed; using the first one",
				"selected", cals[0].Label(),
				"available", strings.Join(names, ", "),
			)
		}
		return cals[0], nil
	}

	for _, c := range cals {
		if strings.EqualFold(c.Name, want) || c.Path == want {
			return c, nil
		}
	}
	return model.Calendar{}, fmt.Errorf("%w: %q", ErrCalendarNotFound, want)
}

// StartOfDay returns midnight UTC of the day now falls on in UTC.
func StartOfDay(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatUTC renders t as an iCalendar UTC date-time, e.g. 20240115T000000Z.
func FormatUTC(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// authClient adds basic auth and turns transport failures and rejected
// credentials into ErrNetwork / ErrAuthentication. The last such failure
// is kept because callers like go-webdav may flatten wrapped errors.
type authClient struct {
	client   *http.Client
	username string
	password string

	failure error
}

func (a *authClient) Do(req *http.Request) (*http.Response, error) {
	if a.username != "" || a.password != "" {
		req.SetBasicAuth(a.username, a.password)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.failure = fmt.Errorf("%w: %s %s: %v", ErrNetwork, req.Method, redactURL(req.URL.String()), err)
		return nil, a.failure
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		a.failure = fmt.Errorf("%w: %s %s: %s", ErrAuthentication, req.Method, redactURL(req.URL.String()), resp.Status)
		return nil, a.failure
	}

	return resp, nil
}

// classify prefers the typed failure recorded by the HTTP layer.
func (a *authClient) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	f := a.failure
	a.failure = nil
	if f != nil && !errors.Is(err, ErrNetwork) && !errors.Is(err, ErrAuthentication) {
		err = f
	}
	return fmt.Errorf("%s: %w", op, err)
}

// redactURL hides sensitive parts of a URL for logging purposes.
//
//	https://example.com/path/to/private.ics?token=abcd
//	-> https://example.com/...(redacted)
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return "...(redacted)"
	}
	i += 3

	j := i
	for j < len(u) && u[j] != '/' && u[j] != '?' {
		j++
	}

	host := u[:j]
	// Drop userinfo if present.
	if at := strings.LastIndex(host[i:], "@"); at != -1 {
		host = u[:i] + host[i+at+1:]
	}
	return host + redactedSuffix
}
