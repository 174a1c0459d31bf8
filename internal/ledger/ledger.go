// Package ledger appends classified events to the append-only raw log
// table, one row per event.
//
// Layout: date | category | title | start HH:mm | end HH:mm | duration.
// The duration column holds a formula over the row's own start/end cells,
// so a later hand-edit of either time stays consistent without
// reprocessing; worked hours are always recomputed at read time.
//
// Append position is read-last-row-then-write. Two invocations racing on
// the same store can collide; at most one concurrent invocation is a
// precondition the scheduler must enforce. Appends are not deduplicating:
// running the same day twice logs the day's rows twice.
package ledger

import (
	"context"

	"workcal/internal/log"
	"workcal/internal/model"
	"workcal/internal/sheet"
)

// Column indices of the raw log table (1-based).
const (
	colDate = iota + 1
	colCategory
	colTitle
	colStart
	colEnd
	colDuration
)

// Append writes one row per event after the current last populated row.
// A missing table is fatal for the run; raw logging is mandatory. Events
// without a category are logged too, with a blank category cell.
func Append(ctx context.Context, store sheet.Store, table string, events []model.CalendarEvent) error {
	if len(events) == 0 {
		return nil
	}

	last, err := store.LastRow(ctx, table)
	if err != nil {
		return err
	}
	startRow := last + 1

	rows := make([][]string, len(events))
	for i, ev := range events {
		rowIdx := startRow + i
		rows[i] = []string{
			model.CivilDateOf(ev.Start).String(),
			ev.Category,
			ev.Title,
			model.ToHHmm(ev.Start),
			model.ToHHmm(ev.End),
			sheet.DurationFormula(rowIdx, colStart, colEnd),
		}
	}

	if err := store.AppendRange(ctx, table, startRow, rows); err != nil {
		return err
	}

	log.Info("ledger append completed", "table", table, "rows", len(rows), "start_row", startRow)
	return nil
}
