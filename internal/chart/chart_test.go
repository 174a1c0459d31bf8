package chart

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workcal/internal/errs"
	"workcal/internal/sheet"
)

func seededStore(t *testing.T, rows [][]string) sheet.Store {
	t.Helper()
	store, err := sheet.OpenSQLite(filepath.Join(t.TempDir(), "sheets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.EnsureTable(ctx, "summary"))
	if rows != nil {
		require.NoError(t, store.WriteRange(ctx, "summary", 1, 1, rows))
	}
	return store
}

func TestRecentTakesLastNRows(t *testing.T) {
	store := seededStore(t, [][]string{
		{"Date", "Meetings", "Deep Work"},
		{"2026-08-27", "1", "3"},
		{"2026-08-28", "2", "4"},
		{"2026-08-29", "0.5", "5"},
		{"2026-08-30", "1.5", "2"},
		{"2026-08-31", "0.25", "6"},
	})

	data, err := Recent(context.Background(), store, "summary", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Meetings", "Deep Work"}, data.Categories)
	require.Len(t, data.Days, 3)
	assert.Equal(t, "2026-08-29", data.Days[0].Date)
	assert.Equal(t, "2026-08-31", data.Days[2].Date)
	assert.InDelta(t, 6.0, data.MaxHours, 1e-12)
}

func TestRecentBlankCellsCountAsZero(t *testing.T) {
	store := seededStore(t, [][]string{
		{"Date", "Meetings", "Deep Work"},
		{"2026-08-31", "", "2"},
	})

	data, err := Recent(context.Background(), store, "summary", 5)
	require.NoError(t, err)
	require.Len(t, data.Days, 1)
	assert.Equal(t, []float64{0, 2}, data.Days[0].Hours)
}

func TestRecentEmptyTableIsNotFound(t *testing.T) {
	store := seededStore(t, [][]string{{"Date", "Meetings"}})

	_, err := Recent(context.Background(), store, "summary", 5)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestRenderHTMLMarksReady(t *testing.T) {
	data := &Data{
		Categories: []string{"Meetings", "Deep Work"},
		Days: []Day{
			{Date: "2026-08-30", Hours: []float64{1.5, 4}},
			{Date: "2026-08-31", Hours: []float64{0.25, 2}},
		},
		MaxHours: 4,
	}

	var sb strings.Builder
	require.NoError(t, RenderHTML(&sb, data))
	html := sb.String()

	assert.Contains(t, html, `data-ready="true"`)
	assert.Contains(t, html, "2026-08-31")
	assert.Contains(t, html, "Deep Work")
	// Tallest bar uses the full usable height.
	assert.Contains(t, html, "height: 200px")
}

func TestRenderHTMLEscapesCategoryNames(t *testing.T) {
	data := &Data{
		Categories: []string{`<script>alert(1)</script>`},
		Days:       []Day{{Date: "2026-08-31", Hours: []float64{1}}},
		MaxHours:   1,
	}

	var sb strings.Builder
	require.NoError(t, RenderHTML(&sb, data))
	assert.NotContains(t, sb.String(), "<script>alert")
}
