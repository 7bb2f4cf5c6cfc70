package event

import (
	"errors"
	"strings"
	"time"

	"calnotify/internal/ics"
)

const (
	layoutUTC      = "20060102T150405Z"
	layoutLocal    = "20060102T150405"
	layoutDate     = "20060102"
	layoutDisplay  = "02.01.2006 15ч 04мин"
	layoutDispDate = "02.01.2006"
)

// DisplayDate renders an iCalendar date-time such as "20240115T093000Z"
// as "15.01.2024 09ч 30мин". The wall clock is shown as written; no
// timezone conversion happens. DATE values render as "15.01.2024".
// Values in no known layout fall back to positional extraction and never
// panic on short input.
func DisplayDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	for _, layout := range []string{layoutUTC, layoutLocal} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(layoutDisplay)
		}
	}
	if t, err := time.Parse(layoutDate, raw); err == nil {
		return t.Format(layoutDispDate)
	}

	year := substr(raw, 0, 4)
	month := substr(raw, 4, 2)
	day := substr(raw, 6, 2)
	hours := substr(raw, 9, 2)
	minutes := substr(raw, 11, 2)
	return day + "." + month + "." + year + " " + hours + "ч " + minutes + "мин"
}

func substr(s string, start, n int) string {
	if start >= len(s) {
		return ""
	}
	end := start + n
	if end > len(s) {
		end = len(s)
	}
	return s[start:end]
}

// ParseDateTime interprets a DTSTART/DTEND/EXDATE-style property. The
// boolean reports a DATE (all-day) value. Floating times and unknown
// TZIDs are read as UTC so the wall clock is preserved.
func ParseDateTime(p ics.Property) (time.Time, bool, error) {
	v := strings.TrimSpace(p.Value)
	if v == "" {
		return time.Time{}, false, errors.New("empty date-time")
	}

	loc := time.UTC
	if tzid := p.Param("TZID"); tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
		}
	}

	if strings.EqualFold(p.Param("VALUE"), "DATE") || !strings.Contains(v, "T") {
		t, err := time.ParseInLocation(layoutDate, v, loc)
		return t, true, err
	}
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse(layoutUTC, v)
		return t, false, err
	}
	t, err := time.ParseInLocation(layoutLocal, v, loc)
	return t, false, err
}

// formatRaw writes t back in the same shape as original.
func formatRaw(t time.Time, dateOnly bool, original string) string {
	switch {
	case dateOnly:
		return t.Format(layoutDate)
	case strings.HasSuffix(strings.TrimSpace(original), "Z"):
		return t.UTC().Format(layoutUTC)
	default:
		return t.Format(layoutLocal)
	}
}
