// Package summary reads and writes the per-day totals table.
//
// Layout convention: row 1 is the header ("Date" followed by one column
// per category); data rows start at row 2, date in column 1. The header
// lives in row 1 and nowhere else.
package summary

import (
	"context"
	"strconv"

	"workcal/internal/errs"
	"workcal/internal/log"
	"workcal/internal/model"
	"workcal/internal/sheet"
)

const headerRow = 1

// Summary is one day's totals reshaped as category -> hours, with the
// header's column order preserved for deterministic rendering. Categories
// whose cell was blank appear in Categories but not in Hours.
type Summary struct {
	Date       model.CivilDate
	Categories []string
	Hours      map[string]float64
}

// Empty returns a summary with no categories, used when no row exists
// for the target date and the run continues without one.
func Empty(date model.CivilDate) *Summary {
	return &Summary{Date: date, Hours: map[string]float64{}}
}

// Get returns the hours recorded for category, and whether a value was
// present.
func (s *Summary) Get(category string) (float64, bool) {
	h, ok := s.Hours[category]
	return h, ok
}

// Lookup finds the summary row matching the target calendar date and
// reshapes it against the header. The scan compares dates structurally,
// never by timestamp. No matching row is an explicit CodeNotFound error;
// the caller decides whether that is recoverable. A non-date-like cell in
// the date column fails loudly rather than being skipped.
func Lookup(ctx context.Context, store sheet.Store, table string, date model.CivilDate) (*Summary, error) {
	values, err := store.AllValues(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(values) <= headerRow {
		return nil, errs.New(errs.CodeNotFound, "no summary row for %s in %q", date, table)
	}

	header := values[headerRow-1]

	targetIdx := -1
	for i := headerRow; i < len(values); i++ {
		cell := values[i][0]
		if cell == "" {
			continue
		}
		rowDate, err := model.CivilDateOfCell(cell)
		if err != nil {
			return nil, errs.Wrap(errs.CodeInvalid, err, "summary table %q row %d", table, i+1)
		}
		if rowDate == date {
			targetIdx = i
			break
		}
	}
	if targetIdx == -1 {
		return nil, errs.New(errs.CodeNotFound, "no summary row for %s in %q", date, table)
	}

	row := values[targetIdx]
	out := &Summary{Date: date, Hours: make(map[string]float64)}
	for col := 1; col < len(header); col++ {
		cat := header[col]
		if cat == "" {
			continue
		}
		out.Categories = append(out.Categories, cat)
		if col >= len(row) || row[col] == "" {
			continue
		}
		hours, err := strconv.ParseFloat(row[col], 64)
		if err != nil {
			return nil, errs.New(errs.CodeInvalid,
				"summary table %q cell %s is not numeric: %q", table, sheet.CellRef(targetIdx+1, col+1), row[col])
		}
		out.Hours[cat] = hours
	}
	return out, nil
}

// WriteTotals appends one row for the given date: date in column 1,
// each header category's accumulated hours in its column, blank where the
// category never occurred. On an empty table the header is written first
// from the totals' categories. Categories missing from an existing header
// get new header columns so no total is dropped silently.
func WriteTotals(ctx context.Context, store sheet.Store, table string, date model.CivilDate, totals *model.DurationTotals) error {
	lastRow, err := store.LastRow(ctx, table)
	if err != nil {
		return err
	}

	var header []string
	if lastRow == 0 {
		header = append([]string{"Date"}, totals.Categories()...)
		if err := store.AppendRange(ctx, table, headerRow, [][]string{header}); err != nil {
			return err
		}
		lastRow = headerRow
	} else {
		rows, err := store.AllValues(ctx, table)
		if err != nil {
			return err
		}
		header = rows[headerRow-1]

		known := make(map[string]bool, len(header))
		for _, h := range header[1:] {
			known[h] = true
		}
		var missing []string
		for _, cat := range totals.Categories() {
			if !known[cat] {
				missing = append(missing, cat)
			}
		}
		if len(missing) > 0 {
			log.Info("extending summary header", "table", table, "categories", missing)
			if err := store.WriteRange(ctx, table, headerRow, len(header)+1, [][]string{missing}); err != nil {
				return err
			}
			header = append(header, missing...)
		}
	}

	row := make([]string, len(header))
	row[0] = date.String()
	for col := 1; col < len(header); col++ {
		if hours, ok := totals.Get(header[col]); ok {
			row[col] = strconv.FormatFloat(hours, 'g', -1, 64)
		}
	}

	if err := store.AppendRange(ctx, table, lastRow+1, [][]string{row}); err != nil {
		return err
	}
	log.Info("summary row written", "table", table, "date", date.String(), "categories", totals.Len())
	return nil
}
