// Package pipeline wires the daily run: list the day's events, classify
// them, append the raw log, accumulate and persist totals, then notify.
//
// Failure policy: configuration and storage errors abort the run before
// or during the write path. Anything after the ledger append never rolls
// persisted rows back; in particular, a failed notification must not be
// retried by re-running the whole day, because the append is not
// idempotent and would duplicate the rows.
package pipeline

import (
	"context"

	"workcal/internal/aggregate"
	"workcal/internal/category"
	"workcal/internal/chart"
	"workcal/internal/classify"
	"workcal/internal/config"
	"workcal/internal/errs"
	"workcal/internal/ledger"
	"workcal/internal/log"
	"workcal/internal/model"
	"workcal/internal/notify"
	"workcal/internal/sheet"
	"workcal/internal/summary"
)

// EventSource yields one day's raw events, already filtered to timed
// events the user owns or accepted.
type EventSource interface {
	ListEventsForDate(ctx context.Context, date model.CivilDate) ([]model.RawEvent, error)
}

// Messenger delivers the notification and the optional chart image.
type Messenger interface {
	PostMessage(ctx context.Context, msg *notify.Message) error
	UploadFile(ctx context.Context, title, filename string, content []byte) error
}

// Pipeline runs the daily categorization flow. One instance per process;
// at most one run at a time (the scheduler enforces this, the ledger
// append assumes it).
type Pipeline struct {
	cfg    *config.Config
	store  sheet.Store
	source EventSource
	slack  Messenger
}

// New assembles a pipeline from its collaborators.
func New(cfg *config.Config, store sheet.Store, source EventSource, slack Messenger) *Pipeline {
	return &Pipeline{cfg: cfg, store: store, source: source, slack: slack}
}

// Run executes the pipeline for one calendar day.
func (p *Pipeline) Run(ctx context.Context, date model.CivilDate) error {
	raws, err := p.source.ListEventsForDate(ctx, date)
	if err != nil {
		return err
	}
	if len(raws) == 0 {
		log.Info("no events for date, nothing to do", "date", date.String())
		return nil
	}

	reg, err := category.Load(ctx, p.store, p.cfg.Tables.Config)
	if err != nil {
		return err
	}

	events := classify.Events(raws, reg)
	if len(events) == 0 {
		log.Info("no eligible events after classification", "date", date.String())
		return nil
	}

	if err := ledger.Append(ctx, p.store, p.cfg.Tables.RawLog, events); err != nil {
		return err
	}

	totals := aggregate.Totals(events)
	if err := summary.WriteTotals(ctx, p.store, p.cfg.Tables.Summary, date, totals); err != nil {
		return err
	}

	daySummary, err := summary.Lookup(ctx, p.store, p.cfg.Tables.Summary, date)
	if err != nil {
		// A missing or unreadable summary must not cost the
		// notification; the raw rows are already persisted.
		if errs.IsNotFound(err) {
			log.Warn("no summary row for date, notifying without totals", "date", date.String())
		} else {
			log.Error("summary lookup failed, notifying without totals", err, "date", date.String())
		}
		daySummary = summary.Empty(date)
	}

	msg := notify.Compose(events, daySummary)
	if err := p.slack.PostMessage(ctx, msg); err != nil {
		return errs.Wrap(errs.CodeTransport, err,
			"notification failed after ledger append; do not re-run the day, rows are already logged")
	}

	p.postChart(ctx)

	log.Info("daily run completed",
		"date", date.String(),
		"events", len(events),
		"categories", totals.Len(),
	)
	return nil
}

// postChart renders and uploads the summary chart. Best effort: chart
// problems are reported and swallowed, the run already succeeded.
func (p *Pipeline) postChart(ctx context.Context) {
	if !p.cfg.Chart.Enabled {
		return
	}
	png, err := chart.Generate(ctx, p.store, p.cfg.Tables.Summary,
		p.cfg.Chart.Rows, p.cfg.Chart.Width, p.cfg.Chart.Height)
	if err != nil {
		log.Error("chart generation failed", err)
		return
	}
	if err := p.slack.UploadFile(ctx, "Summary", "summary.png", png); err != nil {
		log.Error("chart upload failed", err)
	}
}

// Seed prepares a fresh store: the category mapping table with its
// palette rows, and empty raw log and summary tables.
func Seed(ctx context.Context, store sheet.Store, tables config.TablesConfig) error {
	if err := category.Seed(ctx, store, tables.Config); err != nil {
		return err
	}
	if err := store.EnsureTable(ctx, tables.RawLog); err != nil {
		return err
	}
	return store.EnsureTable(ctx, tables.Summary)
}
