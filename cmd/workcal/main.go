package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"workcal/internal/config"
	"workcal/internal/errs"
	"workcal/internal/ics"
	appLog "workcal/internal/log"
	"workcal/internal/model"
	"workcal/internal/notify"
	"workcal/internal/pipeline"
	"workcal/internal/sheet"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	once       bool
	date       string
	initTables bool
}

func main() {
	appLog.Init(appLog.FromEnv())
	appLog.Info("workcal starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("invalid timezone", err, "timezone", conf.Timezone)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"timezone", conf.Timezone,
		"schedule", conf.Schedule,
		"database_path", conf.DatabasePath,
		"ics_count", len(conf.ICS),
		"chart_enabled", conf.Chart.Enabled,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags, loc); err != nil {
		appLog.Error("workcal failed", err, "code", errs.CodeOf(err).String())
		os.Exit(1)
	}

	appLog.Info("workcal exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig, loc *time.Location) error {
	if err := os.MkdirAll(filepath.Dir(conf.DatabasePath), 0o755); err != nil {
		return errs.Wrap(errs.CodeStorage, err, "create database directory")
	}
	store, err := sheet.OpenSQLite(conf.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if flags.initTables {
		return pipeline.Seed(ctx, store, conf.Tables)
	}

	sources := make([]ics.Source, 0, len(conf.ICS))
	for i, c := range conf.ICS {
		id := c.ID
		if id == "" && c.Name != "" {
			id = c.Name
		}
		if id == "" {
			id = fmt.Sprintf("ics-%d", i)
		}
		sources = append(sources, ics.Source{ID: id, URL: c.URL})
	}
	cacheDir := filepath.Join(filepath.Dir(conf.DatabasePath), "ics-cache")
	lister := ics.NewLister(ics.NewFetcher(cacheDir), sources, conf.UserEmail, loc)
	slack := notify.NewClient(conf.Slack)
	pipe := pipeline.New(conf, store, lister, slack)

	if flags.once || flags.date != "" {
		date := model.CivilDateOf(time.Now().In(loc))
		if flags.date != "" {
			date, err = model.ParseCivilDate(flags.date)
			if err != nil {
				return err
			}
		}
		return pipe.Run(ctx, date)
	}

	return runScheduled(ctx, conf, pipe, loc)
}

// runScheduled blocks until the context is canceled, firing one
// pipeline run per schedule tick for "today" in the configured zone.
// Runs are serialized; a tick that fires while a run is still in
// flight is skipped rather than stacked.
func runScheduled(ctx context.Context, conf *config.Config, pipe *pipeline.Pipeline, loc *time.Location) error {
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(conf.Schedule, func() {
		date := model.CivilDateOf(time.Now().In(loc))
		appLog.Info("scheduled run starting", "date", date.String())
		if err := pipe.Run(ctx, date); err != nil {
			appLog.Error("scheduled run failed", err, "date", date.String())
		}
	})
	if err != nil {
		return errs.Wrap(errs.CodeConfiguration, err, "invalid schedule %q", conf.Schedule)
	}

	c.Start()
	appLog.Info("scheduler started", "schedule", conf.Schedule, "timezone", conf.Timezone)

	<-ctx.Done()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		appLog.Warn("scheduler stop timed out, exiting anyway")
	}
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.BoolVar(&cfg.once, "once", false, "Run one daily cycle for today and exit")
	flag.StringVar(&cfg.date, "date", "", "Run one cycle for the given day (YYYY-MM-DD) and exit")
	flag.BoolVar(&cfg.initTables, "init", false, "Create the config, raw log and summary tables and exit")

	flag.Parse()

	return cfg
}
