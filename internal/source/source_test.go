package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"calnotify/internal/config"
	"calnotify/internal/model"
)

func TestSelectCalendar(t *testing.T) {
	cals := []model.Calendar{
		{Path: "/cal/user/events-1/", Name: "Мои события"},
		{Path: "/cal/user/work/", Name: "Work"},
	}

	tests := []struct {
		name     string
		cals     []model.Calendar
		want     string
		wantPath string
		wantErr  error
	}{
		{name: "first when unset", cals: cals, wantPath: "/cal/user/events-1/"},
		{name: "by name any case", cals: cals, want: "work", wantPath: "/cal/user/work/"},
		{name: "by path", cals: cals, want: "/cal/user/work/", wantPath: "/cal/user/work/"},
		{name: "unknown", cals: cals, want: "Holidays", wantErr: ErrCalendarNotFound},
		{name: "none listed", cals: nil, wantErr: ErrNoCalendars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectCalendar(tt.cals, tt.want)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SelectCalendar() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SelectCalendar() unexpected error: %v", err)
			}
			if got.Path != tt.wantPath {
				t.Errorf("SelectCalendar() = %q, want %q", got.Path, tt.wantPath)
			}
		})
	}
}

func TestStartOfDay(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"utc afternoon", time.Date(2024, 1, 15, 15, 4, 5, 0, time.UTC), "20240115T000000Z"},
		{"east of utc just after midnight", time.Date(2024, 1, 15, 1, 0, 0, 0, msk), "20240114T000000Z"},
		{"exact midnight", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "20240115T000000Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatUTC(StartOfDay(tt.now)); got != tt.want {
				t.Errorf("StartOfDay() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://caldav.yandex.ru", "https://caldav.yandex.ru/...(redacted)"},
		{"https://example.com/private.ics?token=abc", "https://example.com/...(redacted)"},
		{"https://user:pw@example.com/x", "https://example.com/...(redacted)"},
		{"not a url", "...(redacted)"},
	}
	for _, tt := range tests {
		if got := redactURL(tt.in); got != tt.want {
			t.Errorf("redactURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAuthClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != "alice" || p != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"good credentials", "secret", nil},
		{"bad credentials", "wrong", ErrAuthentication},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := &authClient{client: srv.Client(), username: "alice", password: tt.password}
			req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
			resp, err := hc.Do(req)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Do() error = %v", err)
				}
				resp.Body.Close()
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Do() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDialer_CalDAVErrors(t *testing.T) {
	unauthorized := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer unauthorized.Close()

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name    string
		server  string
		wantErr error
	}{
		{"rejected credentials", unauthorized.URL, ErrAuthentication},
		{"unreachable server", closedURL, ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := config.Account{Name: "team", ServerURL: tt.server, Username: "u", Password: "p"}
			_, err := Dialer{Timeout: 2 * time.Second}.Connect(context.Background(), acc)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Connect() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

const feedBody = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//feed//EN\r\n" +
	"X-WR-CALNAME:Team feed\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:past@test\r\n" +
	"DTSTART:20200101T100000Z\r\n" +
	"DTEND:20200101T110000Z\r\n" +
	"SUMMARY:Long gone\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:future@test\r\n" +
	"DTSTART:20240120T100000Z\r\n" +
	"DTEND:20240120T110000Z\r\n" +
	"SUMMARY:Upcoming\r\n" +
	"ORGANIZER;CN=Boss:mailto:boss@example.com\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:weekly@test\r\n" +
	"DTSTART:20231002T090000Z\r\n" +
	"DTEND:20231002T093000Z\r\n" +
	"RRULE:FREQ=WEEKLY\r\n" +
	"SUMMARY:Standup\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:finished@test\r\n" +
	"DTSTART:20231002T090000Z\r\n" +
	"DTEND:20231002T093000Z\r\n" +
	"RRULE:FREQ=DAILY;COUNT=3\r\n" +
	"SUMMARY:Workshop\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestFeedSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	acc := config.Account{Name: "feed", ICSURL: srv.URL + "/team.ics", Webhook: "https://h"}
	src, err := Dialer{Timeout: 2 * time.Second}.Connect(context.Background(), acc)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	cals, err := src.Calendars(context.Background())
	if err != nil {
		t.Fatalf("Calendars() error = %v", err)
	}
	if len(cals) != 1 || cals[0].Name != "Team feed" {
		t.Fatalf("Calendars() = %+v, want one calendar named Team feed", cals)
	}

	from := StartOfDay(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	events, err := src.QueryEvents(context.Background(), cals[0], from, nil)
	if err != nil {
		t.Fatalf("QueryEvents() error = %v", err)
	}

	var summaries []string
	for _, ev := range events {
		for _, line := range strings.Split(ev.Data(), "\n") {
			if strings.HasPrefix(line, "SUMMARY:") {
				summaries = append(summaries, strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:")))
			}
		}
	}

	want := []string{"Upcoming", "Standup"}
	if strings.Join(summaries, ",") != strings.Join(want, ",") {
		t.Errorf("overlapping events = %v, want %v", summaries, want)
	}
}

func TestFeedSource_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	acc := config.Account{Name: "feed", ICSURL: srv.URL}
	if _, err := (Dialer{}).Connect(context.Background(), acc); err == nil {
		t.Error("Connect() should fail on 404")
	}
}
