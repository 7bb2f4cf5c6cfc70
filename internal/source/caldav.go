package source

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"calnotify/internal/config"
	appLog "calnotify/internal/log"
	"calnotify/internal/model"
)

// openEndHorizon stands in for an unbounded end of a time-range filter:
// go-webdav writes a zero End as a literal 0001-01-01 attribute.
const openEndHorizon = 100 * 365 * 24 * time.Hour

// calDAVSource is a discovered CalDAV session.
type calDAVSource struct {
	client  *caldav.Client
	http    *authClient
	homeSet string
	account string
}

// dialCalDAV authenticates by walking current-user-principal →
// calendar-home-set, which every request after it reuses.
func dialCalDAV(ctx context.Context, hc *authClient, acc config.Account) (*calDAVSource, error) {
	if acc.ServerURL == "" {
		return nil, errors.New("caldav: server URL is empty")
	}

	client, err := caldav.NewClient(hc, acc.ServerURL)
	if err != nil {
		return nil, hc.classify("caldav client", err)
	}

	appLog.Info("caldav connect", "account", acc.Name, "server", redactURL(acc.ServerURL))

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, hc.classify("find principal", err)
	}
	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, hc.classify("find calendar home set", err)
	}

	appLog.Debug("caldav discovered", "account", acc.Name, "principal", principal, "home_set", homeSet)

	return &calDAVSource{
		client:  client,
		http:    hc,
		homeSet: homeSet,
		account: acc.Name,
	}, nil
}

func (s *calDAVSource) Calendars(ctx context.Context) ([]model.Calendar, error) {
	cals, err := s.client.FindCalendars(ctx, s.homeSet)
	if err != nil {
		return nil, s.http.classify("find calendars", err)
	}

	out := make([]model.Calendar, 0, len(cals))
	for _, c := range cals {
		out = append(out, model.Calendar{Path: c.Path, Name: c.Name})
	}
	return out, nil
}

func (s *calDAVSource) QueryEvents(ctx context.Context, cal model.Calendar, start time.Time, end *time.Time) ([]model.RawEvent, error) {
	filter := caldav.CompFilter{Name: "VEVENT", Start: start.UTC(), End: start.UTC().Add(openEndHorizon)}
	if end != nil {
		filter.End = end.UTC()
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name:  "VCALENDAR",
			Comps: []caldav.CompFilter{filter},
		},
	}

	objs, err := s.client.QueryCalendar(ctx, cal.Path, query)
	if err != nil {
		return nil, s.http.classify("query events", err)
	}

	events := make([]model.RawEvent, 0, len(objs))
	for _, obj := range objs {
		if obj.Data == nil {
			continue
		}
		var buf bytes.Buffer
		if err := ical.NewEncoder(&buf).Encode(obj.Data); err != nil {
			appLog.Warn("caldav object skipped: cannot encode", "account", s.account, "path", obj.Path, "err", err)
			continue
		}
		events = append(events, model.TextEvent{Path: obj.Path, Text: buf.String()})
	}

	appLog.Info("caldav query completed",
		"account", s.account,
		"calendar", cal.Label(),
		"from", FormatUTC(start),
		"event_count", len(events),
	)
	return events, nil
}
