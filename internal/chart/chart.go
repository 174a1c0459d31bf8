// Package chart renders recent daily summaries as an HTML bar chart and
// captures it to PNG with headless Chromium, for upload alongside the
// text notification.
package chart

import (
	"context"
	"html/template"
	"io"
	"strconv"

	"workcal/internal/errs"
	"workcal/internal/sheet"
)

// Data is the chart's input: one group of bars per day, one bar per
// category.
type Data struct {
	Categories []string
	Days       []Day
	MaxHours   float64

	Width  int
	Height int
}

// Day is one summary row: the date label and hours aligned to
// Data.Categories (zero where the category had no value).
type Day struct {
	Date  string
	Hours []float64
}

// Recent loads the last n summary rows from the summary table into chart
// data. Blank cells count as zero hours for chart purposes.
func Recent(ctx context.Context, store sheet.Store, table string, n int) (*Data, error) {
	values, err := store.AllValues(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, errs.New(errs.CodeNotFound, "summary table %q has no data rows", table)
	}

	header := values[0]
	data := &Data{}
	for _, cat := range header[1:] {
		if cat != "" {
			data.Categories = append(data.Categories, cat)
		}
	}

	rows := values[1:]
	if len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	for _, row := range rows {
		day := Day{Date: row[0], Hours: make([]float64, len(data.Categories))}
		for i := range data.Categories {
			col := i + 1
			if col >= len(row) || row[col] == "" {
				continue
			}
			hours, err := strconv.ParseFloat(row[col], 64)
			if err != nil {
				return nil, errs.New(errs.CodeInvalid, "summary table %q has non-numeric cell %q", table, row[col])
			}
			day.Hours[i] = hours
			if hours > data.MaxHours {
				data.MaxHours = hours
			}
		}
		data.Days = append(data.Days, day)
	}
	if data.MaxHours == 0 {
		data.MaxHours = 1
	}
	return data, nil
}

// palette cycles per category; mirrors the calendar color family.
var palette = []string{
	"#7986CB", "#33B679", "#8E24AA", "#E67C73", "#F6BF26",
	"#F4511E", "#039BE5", "#616161", "#3F51B5", "#0B8043", "#D50000",
}

var chartTmpl = template.Must(template.New("chart").Funcs(template.FuncMap{
	"color": func(i int) string { return palette[i%len(palette)] },
	"barHeight": func(hours, maxHours float64) int {
		const usable = 200
		return int(hours / maxHours * usable)
	},
	"hhmm": func(hours float64) string {
		minutes := int(hours*60 + 0.5)
		return strconv.Itoa(minutes/60) + "h" + strconv.Itoa(minutes%60) + "m"
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { margin: 0; font-family: sans-serif; background: #fff; }
  .chart { display: flex; align-items: flex-end; gap: 24px; padding: 24px; height: 240px; }
  .day { display: flex; flex-direction: column; align-items: center; }
  .bars { display: flex; align-items: flex-end; gap: 3px; height: 200px; }
  .bar { width: 18px; }
  .date { font-size: 12px; margin-top: 6px; }
  .legend { display: flex; gap: 16px; padding: 0 24px 16px; font-size: 12px; }
  .swatch { display: inline-block; width: 10px; height: 10px; margin-right: 4px; }
</style>
</head>
<body>
<div class="chart" data-ready="true">
{{- $max := .MaxHours }}
{{- range .Days }}
  <div class="day">
    <div class="bars">
    {{- range $i, $h := .Hours }}
      <div class="bar" title="{{ hhmm $h }}" style="height: {{ barHeight $h $max }}px; background: {{ color $i }};"></div>
    {{- end }}
    </div>
    <div class="date">{{ .Date }}</div>
  </div>
{{- end }}
</div>
<div class="legend">
{{- range $i, $c := .Categories }}
  <span><span class="swatch" style="background: {{ color $i }};"></span>{{ $c }}</span>
{{- end }}
</div>
</body>
</html>
`))

// RenderHTML writes the chart page. The root element carries
// data-ready="true", which the capture step waits on before taking the
// screenshot.
func RenderHTML(w io.Writer, data *Data) error {
	return errs.Wrap(errs.CodeInvalid, chartTmpl.Execute(w, data), "render chart template")
}
