package summary

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workcal/internal/errs"
	"workcal/internal/model"
	"workcal/internal/sheet"
)

const table = "summary"

func openStore(t *testing.T) sheet.Store {
	t.Helper()
	store, err := sheet.OpenSQLite(filepath.Join(t.TempDir(), "sheets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedSummary(t *testing.T, store sheet.Store, rows [][]string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.EnsureTable(ctx, table))
	require.NoError(t, store.WriteRange(ctx, table, 1, 1, rows))
}

func date(y int, m time.Month, d int) model.CivilDate {
	return model.CivilDate{Year: y, Month: m, Day: d}
}

func TestLookupFindsMatchingDateRow(t *testing.T) {
	store := openStore(t)
	seedSummary(t, store, [][]string{
		{"Date", "Meetings", "Deep Work"},
		{"2026-08-30", "1.5", "4"},
		{"2026-08-31", "0.25", "2"},
	})

	s, err := Lookup(context.Background(), store, table, date(2026, time.August, 31))
	require.NoError(t, err)
	assert.Equal(t, []string{"Meetings", "Deep Work"}, s.Categories)

	h, ok := s.Get("Meetings")
	require.True(t, ok)
	assert.InDelta(t, 0.25, h, 1e-12)

	h, ok = s.Get("Deep Work")
	require.True(t, ok)
	assert.InDelta(t, 2.0, h, 1e-12)
}

func TestLookupDropsDateColumn(t *testing.T) {
	store := openStore(t)
	seedSummary(t, store, [][]string{
		{"Date", "Meetings"},
		{"2026-08-31", "1"},
	})

	s, err := Lookup(context.Background(), store, table, date(2026, time.August, 31))
	require.NoError(t, err)
	assert.NotContains(t, s.Categories, "Date")
	_, ok := s.Get("Date")
	assert.False(t, ok)
}

func TestLookupNoMatchIsExplicitNotFound(t *testing.T) {
	store := openStore(t)
	seedSummary(t, store, [][]string{
		{"Date", "Meetings"},
		{"2026-08-30", "1.5"},
	})

	_, err := Lookup(context.Background(), store, table, date(2026, time.August, 31))
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err), "must be NotFound, never a value from an adjacent row")
}

func TestLookupHeaderOnlyTableIsNotFound(t *testing.T) {
	store := openStore(t)
	seedSummary(t, store, [][]string{{"Date", "Meetings"}})

	_, err := Lookup(context.Background(), store, table, date(2026, time.August, 31))
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestLookupMissingTableIsStorageError(t *testing.T) {
	store := openStore(t)

	_, err := Lookup(context.Background(), store, table, date(2026, time.August, 31))
	require.Error(t, err)
	assert.Equal(t, errs.CodeStorage, errs.CodeOf(err))
}

func TestLookupFailsLoudlyOnNonDateCell(t *testing.T) {
	store := openStore(t)
	seedSummary(t, store, [][]string{
		{"Date", "Meetings"},
		{"yesterday-ish", "1.5"},
	})

	_, err := Lookup(context.Background(), store, table, date(2026, time.August, 31))
	require.Error(t, err)
	assert.Equal(t, errs.CodeInvalid, errs.CodeOf(err))
}

func TestLookupBlankCellMeansAbsentValue(t *testing.T) {
	store := openStore(t)
	seedSummary(t, store, [][]string{
		{"Date", "Meetings", "Deep Work"},
		{"2026-08-31", "", "2"},
	})

	s, err := Lookup(context.Background(), store, table, date(2026, time.August, 31))
	require.NoError(t, err)
	assert.Equal(t, []string{"Meetings", "Deep Work"}, s.Categories)
	_, ok := s.Get("Meetings")
	assert.False(t, ok)
}

func TestWriteTotalsOnEmptyTableCreatesHeader(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureTable(ctx, table))

	totals := model.NewDurationTotals()
	totals.Add("Meetings", 0.25)
	totals.Add("Deep Work", 2)

	d := date(2026, time.August, 31)
	require.NoError(t, WriteTotals(ctx, store, table, d, totals))

	values, err := store.AllValues(ctx, table)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, []string{"Date", "Meetings", "Deep Work"}, values[0])
	assert.Equal(t, []string{"2026-08-31", "0.25", "2"}, values[1])

	s, err := Lookup(ctx, store, table, d)
	require.NoError(t, err)
	h, ok := s.Get("Deep Work")
	require.True(t, ok)
	assert.InDelta(t, 2.0, h, 1e-12)
}

func TestWriteTotalsAppendsAgainstExistingHeader(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	seedSummary(t, store, [][]string{
		{"Date", "Meetings", "Deep Work"},
		{"2026-08-30", "1.5", "4"},
	})

	totals := model.NewDurationTotals()
	totals.Add("Deep Work", 3)

	require.NoError(t, WriteTotals(ctx, store, table, date(2026, time.August, 31), totals))

	values, err := store.AllValues(ctx, table)
	require.NoError(t, err)
	require.Len(t, values, 3)
	// Meetings never occurred: blank cell, not zero.
	assert.Equal(t, []string{"2026-08-31", "", "3"}, values[2])
}

func TestWriteTotalsExtendsHeaderForNewCategories(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	seedSummary(t, store, [][]string{
		{"Date", "Meetings"},
		{"2026-08-30", "1.5"},
	})

	totals := model.NewDurationTotals()
	totals.Add("Meetings", 1)
	totals.Add("Errands", 0.5)

	require.NoError(t, WriteTotals(ctx, store, table, date(2026, time.August, 31), totals))

	values, err := store.AllValues(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Meetings", "Errands"}, values[0])
	assert.Equal(t, []string{"2026-08-31", "1", "0.5"}, values[2])
}

func TestWriteTotalsMissingTableIsStorageError(t *testing.T) {
	store := openStore(t)

	err := WriteTotals(context.Background(), store, table, date(2026, time.August, 31), model.NewDurationTotals())
	require.Error(t, err)
	assert.Equal(t, errs.CodeStorage, errs.CodeOf(err))
}
