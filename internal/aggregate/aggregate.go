// Package aggregate reduces a day's classified events into per-category
// elapsed hours.
package aggregate

import (
	"workcal/internal/log"
	"workcal/internal/model"
)

// Totals folds the event list into per-category hours. Uncategorized
// events are excluded outright, not counted as zero; they still exist in
// the raw log, just not in the totals. A category's entry is created on
// its first occurrence even when that occurrence contributes zero hours.
// Accumulation is plain addition, so the result does not depend on event
// order.
func Totals(events []model.CalendarEvent) *model.DurationTotals {
	totals := model.NewDurationTotals()
	for _, ev := range events {
		if !ev.Categorized() {
			log.Debug("excluding uncategorized event from totals", "title", ev.Title, "color", ev.ColorID)
			continue
		}
		totals.Add(ev.Category, ev.Hours())
	}
	return totals
}
