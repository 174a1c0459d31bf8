// Package classify turns raw source events into categorized calendar
// events using the color-to-category registry.
package classify

import (
	"workcal/internal/category"
	"workcal/internal/log"
	"workcal/internal/model"
)

// Event classifies a single raw event. Classification never fails: an
// event without a color gets the literal default color, and an unmapped
// color yields an uncategorized event. Raw logging must never be blocked
// by a missing mapping.
func Event(raw model.RawEvent, reg *category.Registry) model.CalendarEvent {
	colorID := raw.Color
	if colorID == "" {
		colorID = model.DefaultColorID
	}
	return model.CalendarEvent{
		Title:    raw.Title,
		ColorID:  colorID,
		Category: reg.Lookup(colorID),
		Start:    raw.Start,
		End:      raw.End,
	}
}

// Events classifies a batch. Ineligible events (all-day, declined) are
// dropped here as a backstop in case the source did not filter them.
func Events(raws []model.RawEvent, reg *category.Registry) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, len(raws))
	for _, raw := range raws {
		if !raw.Eligible() {
			log.Debug("skipping ineligible event", "title", raw.Title, "all_day", raw.AllDay, "status", raw.MyStatus)
			continue
		}
		out = append(out, Event(raw, reg))
	}
	return out
}
