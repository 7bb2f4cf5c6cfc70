package event

import (
	"strings"
	"testing"
	"time"

	"calnotify/internal/model"
)

const sampleEvent = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//Yandex LLC//Yandex Calendar//EN\r\n" +
	"BEGIN:VTIMEZONE\r\n" +
	"TZID:Europe/Moscow\r\n" +
	"BEGIN:STANDARD\r\n" +
	"DTSTART:19700101T000000\r\n" +
	"TZOFFSETFROM:+0300\r\n" +
	"TZOFFSETTO:+0300\r\n" +
	"END:STANDARD\r\n" +
	"END:VTIMEZONE\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART;TZID=Europe/Moscow:20240115T093000\r\n" +
	"DTEND;TZID=Europe/Moscow:20240115T103000\r\n" +
	"SUMMARY:Planning\r\n" +
	"URL:https://calendar.example.com/event/42\r\n" +
	"ORGANIZER;CN=Ivan Petrov:mailto:ivan@example.com\r\n" +
	"ATTENDEE;PARTSTAT=ACCEPTED;CN=Anna:mailto:anna@example.com\r\n" +
	"ATTENDEE;PARTSTAT=DECLINED;CN=\"Boris, Jr.\":mailto:boris@example.com\r\n" +
	"BEGIN:VALARM\r\n" +
	"ACTION:DISPLAY\r\n" +
	"DESCRIPTION:Reminder\r\n" +
	"SUMMARY:alarm summary\r\n" +
	"END:VALARM\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestFormat_SampleEvent(t *testing.T) {
	f := Format(sampleEvent, Options{})

	if got := f.Summary(); got != "Planning" {
		t.Errorf("Summary() = %q, want Planning (VALARM must not shadow it)", got)
	}
	if got := f.URL(); got != "https://calendar.example.com/event/42" {
		t.Errorf("URL() = %q", got)
	}
	if got := f.Start(); got != "20240115T093000" {
		t.Errorf("Start() = %q, want event DTSTART not VTIMEZONE's", got)
	}
	if got := f.End(); got != "20240115T103000" {
		t.Errorf("End() = %q", got)
	}
	if got := f.Organizer(); got != "<mailto:ivan@example.com|Ivan Petrov>" {
		t.Errorf("Organizer() = %q", got)
	}
	if got := f.Fields[FieldOrganizer]; got != f.Organizer() {
		t.Errorf("Fields[organizer] = %q, want %q", got, f.Organizer())
	}

	// Raw keys keep their parameters.
	if got := f.Fields["DTSTART;TZID=Europe/Moscow"]; got != "20240115T093000" {
		t.Errorf("Fields[DTSTART;TZID=Europe/Moscow] = %q", got)
	}
}

func TestFormat_AttendeesInOrder(t *testing.T) {
	f := Format(sampleEvent, Options{})

	want := "• <mailto:anna@example.com|Anna>, ACCEPTED\n" +
		"• <mailto:boris@example.com|Boris, Jr.>, DECLINED"
	if got := f.Attendees(); got != want {
		t.Errorf("Attendees() =\n%q\nwant\n%q", got, want)
	}
	if n := strings.Count(f.Fields[FieldAttendee], "• "); n != 2 {
		t.Errorf("bullet count = %d, want 2", n)
	}
}

func TestFormat_Resilience(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"line without colon", "BEGIN:VEVENT\nTHIS LINE HAS NO COLON\nSUMMARY:ok\nEND:VEVENT"},
		{"organizer without mailto or CN", "ORGANIZER:\nATTENDEE\n"},
		{"unbalanced END", "END:VEVENT\nEND:VCALENDAR\nSUMMARY:x"},
		{"garbage dates", "DTSTART:2024\nDTEND:x\nRRULE:FREQ=NOPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Format panicked: %v", r)
				}
			}()
			f := Format(tt.raw, Options{From: time.Now()})
			if f.Fields == nil {
				t.Fatal("Fields is nil")
			}
		})
	}
}

func TestFormat_LineWithoutColonYieldsEmptyValue(t *testing.T) {
	f := Format("BEGIN:VEVENT\nBROKEN\nSUMMARY:ok\nEND:VEVENT", Options{})
	v, ok := f.Fields["BROKEN"]
	if !ok {
		t.Fatal("expected an entry for the colon-less line")
	}
	if v != "" {
		t.Errorf("Fields[BROKEN] = %q, want empty", v)
	}
	if f.Summary() != "ok" {
		t.Errorf("Summary() = %q, want ok", f.Summary())
	}
}

func TestFormat_DefaultsAndFallbacks(t *testing.T) {
	raw := "ORGANIZER:MAILTO:boss@example.com\nATTENDEE:mailto:x@example.com\n"
	f := Format(raw, Options{})

	if got := f.Organizer(); got != "<mailto:boss@example.com|boss@example.com>" {
		t.Errorf("Organizer() = %q", got)
	}
	if got := f.Attendees(); got != "• <mailto:x@example.com|x@example.com>, NEEDS-ACTION" {
		t.Errorf("Attendees() = %q", got)
	}
}

func TestFormat_NoAttendees(t *testing.T) {
	f := Format("BEGIN:VEVENT\nSUMMARY:solo\nEND:VEVENT", Options{})
	if f.Attendees() != "" {
		t.Errorf("Attendees() = %q, want empty", f.Attendees())
	}
	if _, ok := f.Fields[FieldAttendee]; !ok {
		t.Error("attendee entry should always be present")
	}
}

func TestFormat_RecurringShowsNextOccurrence(t *testing.T) {
	raw := "BEGIN:VEVENT\n" +
		"DTSTART:20240101T100000Z\n" +
		"DTEND:20240101T110000Z\n" +
		"RRULE:FREQ=WEEKLY\n" +
		"SUMMARY:Weekly\n" +
		"END:VEVENT\n"
	from := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	f := Format(raw, Options{From: from})
	if got := f.Start(); got != "20240115T100000Z" {
		t.Errorf("Start() = %q, want 20240115T100000Z", got)
	}
	if got := f.End(); got != "20240115T110000Z" {
		t.Errorf("End() = %q, want 20240115T110000Z", got)
	}
	// The raw mapping is untouched.
	if got := f.Fields["DTSTART"]; got != "20240101T100000Z" {
		t.Errorf("Fields[DTSTART] = %q", got)
	}

	plain := Format(raw, Options{})
	if got := plain.Start(); got != "20240101T100000Z" {
		t.Errorf("without From, Start() = %q, want master DTSTART", got)
	}
}

func TestFormat_RecurringHonoursExdate(t *testing.T) {
	raw := "BEGIN:VEVENT\n" +
		"DTSTART;TZID=Europe/Moscow:20240101T100000\n" +
		"DTEND;TZID=Europe/Moscow:20240101T110000\n" +
		"RRULE:FREQ=WEEKLY\n" +
		"EXDATE;TZID=Europe/Moscow:20240115T100000\n" +
		"END:VEVENT\n"
	from := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	f := Format(raw, Options{From: from})
	if got := f.Start(); got != "20240122T100000" {
		t.Errorf("Start() = %q, want 20240122T100000", got)
	}
}

func TestFormatEvent_UsesRawData(t *testing.T) {
	f := FormatEvent(model.TextEvent{Text: "SUMMARY:from source"}, Options{})
	if f.Summary() != "from source" {
		t.Errorf("Summary() = %q", f.Summary())
	}
}
