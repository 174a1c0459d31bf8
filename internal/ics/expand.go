package ics

import (
	"time"

	"github.com/teambition/rrule-go"

	"workcal/internal/log"
)

// occurrence is one concrete instance of an event after recurrence
// expansion, with times normalized into the pipeline's timezone.
type occurrence struct {
	event ParsedEvent
	start time.Time
	end   time.Time
}

// Recurring feeds are bounded to the day window, but a broken RRULE
// could still explode; cap per-event instances defensively.
const maxOccurrencesPerEvent = 100

// expandDay expands the parsed events of one source into the concrete
// occurrences that start within [dayStart, dayEnd), in the display
// location. It handles plain events, RRULE recurrence, EXDATE exceptions
// and RECURRENCE-ID overrides.
func expandDay(events []ParsedEvent, dayStart, dayEnd time.Time, loc *time.Location) []occurrence {
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		} else {
			baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
		}
	}

	var out []occurrence
	for uid, bases := range baseByUID {
		for _, ev := range bases {
			if ev.RawRRule == "" {
				out = append(out, expandSingle(ev, overridesByUID[uid], dayStart, dayEnd, loc)...)
				continue
			}
			out = append(out, expandRecurring(ev, overridesByUID[uid], dayStart, dayEnd, loc)...)
		}
	}
	return out
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent, dayStart, dayEnd time.Time, loc *time.Location) []occurrence {
	start, end, src, _ := applyOverride(ev, overrides, ev.Start)
	startLocal := start.In(loc)
	if startLocal.Before(dayStart) || !startLocal.Before(dayEnd) {
		return nil
	}
	return []occurrence{{event: src, start: startLocal, end: end.In(loc)}}
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, dayStart, dayEnd time.Time, loc *time.Location) []occurrence {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		log.Error("ics rrule parse failed", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Between is inclusive on both ends; trim the end by a nanosecond so
	// an occurrence starting exactly at the next midnight stays out.
	rangeStart := dayStart.In(ev.Start.Location())
	rangeEnd := dayEnd.Add(-time.Nanosecond).In(ev.Start.Location())
	occTimes := set.Between(rangeStart, rangeEnd, true)
	if len(occTimes) > maxOccurrencesPerEvent {
		log.Warn("ics recurrence capped", "uid", ev.UID, "cap", maxOccurrencesPerEvent)
		occTimes = occTimes[:maxOccurrencesPerEvent]
	}

	dur := ev.End.Sub(ev.Start)
	var out []occurrence
	for _, occStart := range occTimes {
		start, end, src, overridden := applyOverride(ev, overrides, occStart)
		if !overridden {
			end = occStart.Add(dur)
		}
		out = append(out, occurrence{event: src, start: start.In(loc), end: end.In(loc)})
	}
	return out
}

// applyOverride swaps in the override matching baseStart's RECURRENCE-ID,
// if any. Returns the effective start, end and source event.
func applyOverride(ev ParsedEvent, overrides []ParsedEvent, baseStart time.Time) (time.Time, time.Time, ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.In(baseStart.Location()).Equal(baseStart) {
			return ov.Start, ov.End, ov, true
		}
	}
	return baseStart, ev.End, ev, false
}
