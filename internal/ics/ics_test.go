package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workcal/internal/model"
)

func icsBody(events ...string) []byte {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//workcal test//EN",
	}
	lines = append(lines, events...)
	lines = append(lines, "END:VCALENDAR", "")
	return []byte(strings.Join(lines, "\r\n"))
}

const standupEvent = `BEGIN:VEVENT
UID:standup@example.com
DTSTART:20260831T090000Z
DTEND:20260831T091500Z
SUMMARY:Standup
COLOR:8
ORGANIZER:mailto:boss@example.com
ATTENDEE;PARTSTAT=ACCEPTED:mailto:me@example.com
ATTENDEE;PARTSTAT=DECLINED:mailto:other@example.com
END:VEVENT`

const allDayEvent = `BEGIN:VEVENT
UID:holiday@example.com
DTSTART;VALUE=DATE:20260831
DTEND;VALUE=DATE:20260901
SUMMARY:Holiday
END:VEVENT`

const dailyStandupRule = `BEGIN:VEVENT
UID:daily@example.com
DTSTART:20260825T100000Z
DTEND:20260825T103000Z
SUMMARY:Focus block
COLOR:7
RRULE:FREQ=DAILY
END:VEVENT`

func eventLines(raw string) []string {
	return strings.Split(raw, "\n")
}

func testSource() Source {
	return Source{ID: "work", URL: "https://calendar.example.com/private-token/basic.ics"}
}

func TestParseReadsColorAndAttendance(t *testing.T) {
	events, err := Parse(testSource(), icsBody(eventLines(standupEvent)...))
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "standup@example.com", ev.UID)
	assert.Equal(t, "Standup", ev.Summary)
	assert.Equal(t, "8", ev.Color)
	assert.Equal(t, "boss@example.com", ev.Organizer)
	require.Len(t, ev.Attendees, 2)
	assert.Equal(t, Attendee{Email: "me@example.com", PartStat: "ACCEPTED"}, ev.Attendees[0])
	assert.False(t, ev.AllDay)
	assert.Equal(t, time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC), ev.Start.UTC())
}

func TestParseDetectsAllDay(t *testing.T) {
	events, err := Parse(testSource(), icsBody(eventLines(allDayEvent)...))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].AllDay)
}

func TestParseEmptyBodyFails(t *testing.T) {
	_, err := Parse(testSource(), nil)
	require.Error(t, err)
}

func TestExpandDayPlainEventInsideWindow(t *testing.T) {
	events, err := Parse(testSource(), icsBody(eventLines(standupEvent)...))
	require.NoError(t, err)

	dayStart := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	occs := expandDay(events, dayStart, dayStart.AddDate(0, 0, 1), time.UTC)
	require.Len(t, occs, 1)
	assert.Equal(t, time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC), occs[0].start)
	assert.Equal(t, time.Date(2026, 8, 31, 9, 15, 0, 0, time.UTC), occs[0].end)

	// A different day yields nothing.
	otherDay := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, expandDay(events, otherDay, otherDay.AddDate(0, 0, 1), time.UTC))
}

func TestExpandDayRecurringEvent(t *testing.T) {
	events, err := Parse(testSource(), icsBody(eventLines(dailyStandupRule)...))
	require.NoError(t, err)

	dayStart := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	occs := expandDay(events, dayStart, dayStart.AddDate(0, 0, 1), time.UTC)
	require.Len(t, occs, 1)
	assert.Equal(t, time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC), occs[0].start)
	// Occurrences keep the base event's duration.
	assert.Equal(t, time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC), occs[0].end)
	assert.Equal(t, "7", occs[0].event.Color)
}

func TestListEventsForDateFiltersAndSorts(t *testing.T) {
	body := icsBody(append(append(eventLines(dailyStandupRule), eventLines(standupEvent)...), eventLines(allDayEvent)...)...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.Write(body)
	}))
	defer srv.Close()

	fetcher := NewFetcher(t.TempDir())
	lister := NewLister(fetcher, []Source{{ID: "work", URL: srv.URL}}, "me@example.com", time.UTC)

	date := model.CivilDate{Year: 2026, Month: time.August, Day: 31}
	raws, err := lister.ListEventsForDate(context.Background(), date)
	require.NoError(t, err)

	// The all-day event is excluded; the remaining two come sorted by start.
	require.Len(t, raws, 2)
	assert.Equal(t, "Standup", raws[0].Title)
	assert.Equal(t, model.StatusAccepted, raws[0].MyStatus)
	assert.Equal(t, "Focus block", raws[1].Title)
	assert.Equal(t, model.StatusOwner, raws[1].MyStatus)
	assert.Equal(t, "8", raws[0].Color)
}

func TestListEventsForDateAllSourcesFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	fetcher := NewFetcher(t.TempDir())
	lister := NewLister(fetcher, []Source{{ID: "work", URL: srv.URL}}, "", time.UTC)

	_, err := lister.ListEventsForDate(context.Background(), model.CivilDate{Year: 2026, Month: time.August, Day: 31})
	require.Error(t, err)
}

func TestMyStatusDerivation(t *testing.T) {
	fetcher := NewFetcher(t.TempDir())
	lister := NewLister(fetcher, nil, "ME@example.com", time.UTC)

	cases := []struct {
		name string
		ev   ParsedEvent
		want model.AttendStatus
	}{
		{"no attendees", ParsedEvent{}, model.StatusOwner},
		{"self organized", ParsedEvent{Organizer: "me@example.com", Attendees: []Attendee{{Email: "x@example.com"}}}, model.StatusOwner},
		{"accepted", ParsedEvent{Organizer: "boss@example.com", Attendees: []Attendee{{Email: "me@example.com", PartStat: "ACCEPTED"}}}, model.StatusAccepted},
		{"declined", ParsedEvent{Organizer: "boss@example.com", Attendees: []Attendee{{Email: "me@example.com", PartStat: "DECLINED"}}}, model.StatusDeclined},
		{"tentative", ParsedEvent{Organizer: "boss@example.com", Attendees: []Attendee{{Email: "me@example.com", PartStat: "TENTATIVE"}}}, model.StatusTentative},
		{"no partstat", ParsedEvent{Organizer: "boss@example.com", Attendees: []Attendee{{Email: "me@example.com"}}}, model.StatusNeedsAction},
		{"not invited", ParsedEvent{Organizer: "boss@example.com", Attendees: []Attendee{{Email: "x@example.com", PartStat: "ACCEPTED"}}}, model.StatusNeedsAction},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, lister.myStatus(tc.ev), tc.name)
	}
}

func TestFetchOneUsesConditionalCache(t *testing.T) {
	body := icsBody(eventLines(standupEvent)...)
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write(body)
	}))
	defer srv.Close()

	fetcher := NewFetcher(t.TempDir())
	src := Source{ID: "work", URL: srv.URL}

	first, err := fetcher.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, body, first.Body)

	second, err := fetcher.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, body, second.Body)
	assert.Equal(t, 2, requests)
}

func TestRedactURLHidesPath(t *testing.T) {
	assert.Equal(t, "https://calendar.example.com/...(redacted)",
		redactURL("https://calendar.example.com/private-token/basic.ics"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
