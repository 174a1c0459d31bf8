// Package category loads and exposes the color-to-category mapping.
// The mapping lives in a two-column table (Color, Category) with a
// one-row header; users fill the Category column for the colors they
// care about and leave the rest blank.
package category

import (
	"context"
	"strings"

	"workcal/internal/errs"
	"workcal/internal/log"
	"workcal/internal/model"
	"workcal/internal/sheet"
)

// headerRows is the number of header rows before mapping data starts.
const headerRows = 1

// Registry is the immutable color-to-category mapping for one run. It is
// rebuilt from the store on every invocation; never cache it across runs.
type Registry struct {
	byColor map[string]string
}

// Load reads the mapping table. Rows with an empty category cell are
// skipped entirely: blank means "not tracked", not "tracked as empty".
// A missing table is a configuration error, the run cannot proceed.
func Load(ctx context.Context, store sheet.Store, table string) (*Registry, error) {
	ok, err := store.HasTable(ctx, table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.New(errs.CodeConfiguration, "category table %q not found", table)
	}

	lastRow, err := store.LastRow(ctx, table)
	if err != nil {
		return nil, err
	}

	reg := &Registry{byColor: make(map[string]string)}
	if lastRow <= headerRows {
		log.Warn("category table has no mappings", "table", table)
		return reg, nil
	}

	values, err := store.ReadRange(ctx, table, headerRows+1, 1, lastRow-headerRows, 2)
	if err != nil {
		return nil, err
	}

	for _, row := range values {
		colorID := strings.TrimSpace(row[0])
		cat := strings.TrimSpace(row[1])
		if colorID == "" || cat == "" {
			continue
		}
		reg.byColor[colorID] = cat
	}

	log.Debug("category registry loaded", "table", table, "mappings", len(reg.byColor))
	return reg, nil
}

// Lookup returns the category mapped to colorID, empty when no mapping
// exists. An absent mapping is an expected result, not an error.
func (r *Registry) Lookup(colorID string) string {
	return r.byColor[colorID]
}

// Len returns the number of registered mappings.
func (r *Registry) Len() int { return len(r.byColor) }

// paletteColorIDs are the color identifiers the calendar source assigns,
// plus the fallback for events without an explicit color.
var paletteColorIDs = []string{
	"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11",
	model.DefaultColorID,
}

// Seed creates the mapping table with its header and one blank row per
// known color, leaving the Category column for the user to fill in.
// Existing content is left untouched.
func Seed(ctx context.Context, store sheet.Store, table string) error {
	ok, err := store.HasTable(ctx, table)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := store.EnsureTable(ctx, table); err != nil {
		return err
	}

	rows := [][]string{{"Color", "Category"}}
	for _, id := range paletteColorIDs {
		rows = append(rows, []string{id, ""})
	}
	return store.WriteRange(ctx, table, 1, 1, rows)
}
