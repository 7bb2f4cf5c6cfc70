package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"calnotify/internal/config"
	"calnotify/internal/event"
	"calnotify/internal/ics"
	appLog "calnotify/internal/log"
	"calnotify/internal/model"
)

// feedSource serves a read-only ICS subscription. The feed is fetched once
// on connect; it holds exactly one calendar.
type feedSource struct {
	cal     *ical.Calendar
	url     string
	account string
}

func dialFeed(ctx context.Context, hc *authClient, acc config.Account) (*feedSource, error) {
	body, err := fetchFeed(ctx, hc, acc.ICSURL)
	if err != nil {
		return nil, err
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "account", acc.Name, "url", redactURL(acc.ICSURL))
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	return &feedSource{cal: cal, url: acc.ICSURL, account: acc.Name}, nil
}

func fetchFeed(ctx context.Context, hc *authClient, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	appLog.Info("ics fetch start", "url", redactURL(url))

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read feed: %v", ErrNetwork, err)
	}
	if len(body) == 0 {
		return nil, errors.New("fetch feed: empty body")
	}

	appLog.Info("ics fetch success", "url", redactURL(url), "bytes", len(body))
	return body, nil
}

func (s *feedSource) Calendars(context.Context) ([]model.Calendar, error) {
	name := s.account
	for _, p := range s.cal.CalendarProperties {
		if strings.EqualFold(p.IANAToken, "X-WR-CALNAME") && p.Value != "" {
			name = p.Value
			break
		}
	}
	return []model.Calendar{{Path: s.url, Name: name}}, nil
}

func (s *feedSource) QueryEvents(_ context.Context, _ model.Calendar, start time.Time, end *time.Time) ([]model.RawEvent, error) {
	var out []model.RawEvent

	for _, ve := range s.cal.Events() {
		ok, err := overlaps(ve, start, end)
		if err != nil {
			// Keep what cannot be judged; the formatter degrades per field.
			appLog.Debug("ics overlap check failed", "account", s.account, "err", err)
		} else if !ok {
			continue
		}

		single := ical.NewCalendar()
		single.AddVEvent(ve)
		out = append(out, model.TextEvent{Path: s.url, Text: single.Serialize()})
	}

	appLog.Info("ics query completed",
		"account", s.account,
		"from", FormatUTC(start),
		"event_count", len(out),
	)
	return out, nil
}

// overlaps applies the time-range semantics a CalDAV server would.
func overlaps(ve *ical.VEvent, from time.Time, to *time.Time) (bool, error) {
	startProp := toProperty(ve.GetProperty(ical.ComponentPropertyDtStart))
	if startProp == nil {
		return false, errors.New("missing DTSTART")
	}
	start, _, err := event.ParseDateTime(*startProp)
	if err != nil {
		return false, err
	}

	var dur time.Duration
	if endProp := toProperty(ve.GetProperty(ical.ComponentPropertyDtEnd)); endProp != nil {
		if end, _, err := event.ParseDateTime(*endProp); err == nil && end.After(start) {
			dur = end.Sub(start)
		}
	}

	var rule string
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		rule = p.Value
	}

	var exdates []time.Time
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, v := range strings.Split(p.Value, ",") {
			prop := ics.NewProperty(string(ical.ComponentPropertyExdate), p.ICalParameters, strings.TrimSpace(v))
			if t, _, err := event.ParseDateTime(prop); err == nil {
				exdates = append(exdates, t)
			}
		}
	}

	return event.Overlaps(rule, start, dur, exdates, from, to)
}

func toProperty(p *ical.IANAProperty) *ics.Property {
	if p == nil {
		return nil
	}
	prop := ics.NewProperty(p.IANAToken, p.ICalParameters, p.Value)
	return &prop
}
