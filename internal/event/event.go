package event

import (
	"strings"
	"time"

	"calnotify/internal/ics"
	appLog "calnotify/internal/log"
	"calnotify/internal/model"
)

// Keys of the computed entries in Formatted.Fields.
const (
	FieldOrganizer = "organizer"
	FieldAttendee  = "attendee"
)

// defaultPartStat is the RFC 5545 default participation status.
const defaultPartStat = "NEEDS-ACTION"

// Options tunes formatting.
type Options struct {
	// From, when non-zero, makes recurring events show their next
	// occurrence at or after From instead of the master DTSTART.
	From time.Time
}

// Formatted is the display-ready view of one calendar record.
type Formatted struct {
	// Fields maps each distinct content-line key (parameters included)
	// to its value, plus FieldOrganizer and FieldAttendee.
	Fields map[string]string

	props   map[string]ics.Property
	exdates []ics.Property
	start   string
	end     string
}

// Get returns the value of the named event property, ignoring parameters.
// Missing properties yield "".
func (f *Formatted) Get(name string) string {
	return f.props[strings.ToUpper(name)].Value
}

func (f *Formatted) Summary() string   { return f.Get("SUMMARY") }
func (f *Formatted) URL() string       { return f.Get("URL") }
func (f *Formatted) Organizer() string { return f.Fields[FieldOrganizer] }
func (f *Formatted) Attendees() string { return f.Fields[FieldAttendee] }

// Start returns the raw date-time of the displayed start. For recurring
// events formatted with Options.From this is the next occurrence.
func (f *Formatted) Start() string { return f.start }

// End is the counterpart of Start.
func (f *Formatted) End() string { return f.end }

// FormatEvent formats a record delivered by a calendar source.
func FormatEvent(ev model.RawEvent, opts Options) *Formatted {
	return Format(ev.Data(), opts)
}

// Format turns the iCalendar text of one record into a Formatted event.
// It never fails: malformed lines simply contribute empty values.
//
// Typed accessors read the first VEVENT only, so VTIMEZONE and VALARM
// sub-components cannot shadow DTSTART or DESCRIPTION. A record without
// any VEVENT is read as a flat list of properties.
func Format(raw string, opts Options) *Formatted {
	f := &Formatted{
		Fields: make(map[string]string),
		props:  make(map[string]ics.Property),
	}

	var (
		all, inEvent []ics.Property
		stack        []string
		eventDepth   int
	)

	for _, p := range ics.Parse(raw) {
		f.Fields[p.Key()] = p.Value

		switch p.Name {
		case "BEGIN":
			stack = append(stack, strings.ToUpper(p.Value))
			if eventDepth == 0 && stack[len(stack)-1] == "VEVENT" {
				eventDepth = len(stack)
			}
			continue
		case "END":
			if len(stack) > 0 {
				if len(stack) == eventDepth {
					// Closed the first VEVENT; later ones are ignored.
					eventDepth = -1
				}
				stack = stack[:len(stack)-1]
			}
			continue
		}

		all = append(all, p)
		if eventDepth > 0 && len(stack) == eventDepth {
			inEvent = append(inEvent, p)
		}
	}

	scope := all
	if eventDepth != 0 {
		scope = inEvent
	}

	var organizer string
	var attendees []string
	for _, p := range scope {
		switch p.Name {
		case "ORGANIZER":
			organizer = mailtoLink(p)
		case "ATTENDEE":
			status := p.Param("PARTSTAT")
			if status == "" {
				status = defaultPartStat
			}
			attendees = append(attendees, "• "+mailtoLink(p)+", "+status)
		case "EXDATE":
			f.exdates = append(f.exdates, p)
		}
		f.props[p.Name] = p
	}

	f.Fields[FieldOrganizer] = organizer
	f.Fields[FieldAttendee] = strings.Join(attendees, "\n")

	f.start = f.Get("DTSTART")
	f.end = f.Get("DTEND")
	if !opts.From.IsZero() && f.Get("RRULE") != "" {
		f.applyNextOccurrence(opts.From)
	}

	return f
}

// mailtoLink renders an ORGANIZER/ATTENDEE property as <mailto:EMAIL|NAME>.
func mailtoLink(p ics.Property) string {
	const scheme = "mailto:"
	email := strings.TrimSpace(p.Value)
	if len(email) >= len(scheme) && strings.EqualFold(email[:len(scheme)], scheme) {
		email = email[len(scheme):]
	}
	name := strings.TrimSpace(p.Param("CN"))
	if name == "" {
		name = email
	}
	return "<mailto:" + email + "|" + name + ">"
}

func (f *Formatted) applyNextOccurrence(from time.Time) {
	startProp := f.props["DTSTART"]
	start, dateOnly, err := ParseDateTime(startProp)
	if err != nil {
		appLog.Debug("recurrence skipped: unparseable DTSTART", "value", startProp.Value)
		return
	}

	var dur time.Duration
	endProp, hasEnd := f.props["DTEND"]
	if hasEnd {
		if end, _, err := ParseDateTime(endProp); err == nil && end.After(start) {
			dur = end.Sub(start)
		}
	}

	var exdates []time.Time
	for _, ex := range f.exdates {
		for _, v := range strings.Split(ex.Value, ",") {
			p := ex
			p.Value = strings.TrimSpace(v)
			if t, _, err := ParseDateTime(p); err == nil {
				exdates = append(exdates, t)
			}
		}
	}

	rule := f.Get("RRULE")
	next, err := NextOccurrence(rule, start, dur, exdates, from)
	if err != nil {
		appLog.Debug("recurrence skipped: bad RRULE", "rrule", rule, "err", err)
		return
	}
	if next.IsZero() || next.Equal(start) {
		return
	}

	f.start = formatRaw(next, dateOnly, startProp.Value)
	if dur > 0 {
		f.end = formatRaw(next.Add(dur), dateOnly, endProp.Value)
	}
}
