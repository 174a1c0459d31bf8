package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"workcal/internal/log"
)

// Attendee is one ATTENDEE entry of a VEVENT.
type Attendee struct {
	Email string
	// PartStat is the raw PARTSTAT parameter value (e.g. "ACCEPTED").
	PartStat string
}

// ParsedEvent is the normalized form of a VEVENT as produced by the
// parser. Recurrence expansion operates on this type.
type ParsedEvent struct {
	Source Source

	UID     string
	Summary string

	Start  time.Time
	End    time.Time
	AllDay bool

	// Color is the RFC 7986 COLOR property, used verbatim as the
	// pipeline's opaque color identifier. Empty when absent.
	Color string

	Organizer string
	Attendees []Attendee

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID in the event's own timezone
	IsOverride bool
}

// Parse parses one ICS payload into ParsedEvents. Individual VEVENTs
// that fail to parse are logged and skipped so one broken event cannot
// take down the whole feed.
func Parse(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		log.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			log.Error("ics vevent parse failed", perr, "id", src.ID)
			continue
		}
		events = append(events, ev)
	}

	log.Debug("ics parse completed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent
	out.Source = src

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentProperty("COLOR")); p != nil {
		out.Color = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentProperty("ORGANIZER")); p != nil {
		out.Organizer = stripMailto(p.Value)
	}

	for _, p := range ve.GetProperties(ical.ComponentProperty("ATTENDEE")) {
		att := Attendee{Email: stripMailto(p.Value)}
		if params := p.ICalParameters; params != nil {
			if ps, ok := params["PARTSTAT"]; ok && len(ps) > 0 {
				att.PartStat = strings.ToUpper(strings.TrimSpace(ps[0]))
			}
		}
		out.Attendees = append(out.Attendees, att)
	}

	// The library's helpers handle VTIMEZONE/TZID resolution.
	start, _ := ve.GetStartAt()
	end, _ := ve.GetEndAt()
	out.Start = start
	out.End = end

	// All-day: VALUE=DATE, or a DTSTART value without a time part.
	if dtStart := ve.GetProperty(ical.ComponentPropertyDtStart); dtStart != nil {
		if params := dtStart.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				out.AllDay = true
			}
		}
		if !strings.Contains(dtStart.Value, "T") {
			out.AllDay = true
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for part := range strings.SplitSeq(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := parseICSTime(p.Value); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

func stripMailto(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		v = v[7:]
	}
	return strings.ToLower(v)
}

// parseICSTime parses the basic ICS date/date-time forms used by EXDATE
// and RECURRENCE-ID.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}
	return time.ParseInLocation("20060102", v, time.Local)
}
