package chart

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"workcal/internal/errs"
	"workcal/internal/sheet"
)

// Capture defaults; the chart page is small and static.
const (
	defaultWidth   = 720
	defaultHeight  = 480
	captureTimeout = 30 * time.Second
)

// CapturePNG renders the chart data to a temporary HTML file, opens it
// in headless Chromium, waits for the data-ready marker and returns the
// screenshot bytes.
func CapturePNG(parentCtx context.Context, data *Data) ([]byte, error) {
	if data.Width <= 0 {
		data.Width = defaultWidth
	}
	if data.Height <= 0 {
		data.Height = defaultHeight
	}

	dir, err := os.MkdirTemp("", "workcal-chart-*")
	if err != nil {
		return nil, errs.Wrap(errs.CodeUnknown, err, "create chart temp dir")
	}
	defer os.RemoveAll(dir)

	htmlPath := filepath.Join(dir, "chart.html")
	f, err := os.Create(htmlPath)
	if err != nil {
		return nil, errs.Wrap(errs.CodeUnknown, err, "create chart page")
	}
	if err := RenderHTML(f, data); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, captureTimeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(data.Width), int64(data.Height)),
		chromedp.Navigate("file://" + htmlPath),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// Small extra delay for final paints.
		chromedp.Sleep(200 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, errs.Wrap(errs.CodeUnknown, err, "chart capture")
	}
	return png, nil
}

// Generate loads the last rows of the summary table and captures them as
// a PNG chart.
func Generate(ctx context.Context, store sheet.Store, table string, rows, width, height int) ([]byte, error) {
	data, err := Recent(ctx, store, table, rows)
	if err != nil {
		return nil, err
	}
	data.Width = width
	data.Height = height
	return CapturePNG(ctx, data)
}
