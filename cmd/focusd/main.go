package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/focusd/internal/config"
	"github.com/sandeepkv93/focusd/internal/dedup"
	"github.com/sandeepkv93/focusd/internal/leveling"
	"github.com/sandeepkv93/focusd/internal/notify"
	"github.com/sandeepkv93/focusd/internal/reminder"
	"github.com/sandeepkv93/focusd/internal/scheduler"
	"github.com/sandeepkv93/focusd/internal/storage"
	"github.com/sandeepkv93/focusd/internal/tasklist"
	"github.com/sandeepkv93/focusd/internal/update"
)

func main() {
	configPath := flag.String("config", "focusd.yaml", "path to the YAML config file")
	headless := flag.Bool("headless", false, "run without the terminal UI and log reminders")
	flag.Parse()

	if err := run(*configPath, *headless); err != nil {
		fmt.Fprintf(os.Stderr, "focusd failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, headless bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = config.FromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := openLogger(cfg.LogPath, headless)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := storage.OpenSQLite(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer repo.Close()
	repo.SetLogger(logger)

	engine := scheduler.NewEngine(cfg.SchedulerBuffer)
	engine.Start()
	defer engine.Stop()

	var notifier notify.DesktopNotifier = notify.NoopDesktopNotifier{}
	if cfg.DesktopNotifications {
		notifier = notify.ExecDesktopNotifier{}
	}
	port := notify.NewLocalPort(engine, notify.WithNotifier(notifier), notify.WithLogger(logger))

	levels := leveling.NewService(repo, nil)
	sink := reminder.NewChannelSink(16, logger)
	ctrl := reminder.NewController(repo, port,
		dedup.NewStore(repo, dedup.WithWindow(cfg.DedupWindow), dedup.WithLogger(logger)),
		reminder.WithSink(sink),
		reminder.WithLeveler(levels),
		reminder.WithLogger(logger),
	)
	defer ctrl.Close()
	rec := reminder.NewReconciler(ctrl, cfg.ReconcileInterval, logger)

	view := tasklist.New()
	unbind := view.Bind(repo, storage.TaskListFilter{OwnerID: cfg.OwnerID})
	defer unbind()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return port.Run(ctx) })
	g.Go(func() error { return ignoreCanceled(ctrl.Run(ctx)) })
	g.Go(func() error { return ignoreCanceled(rec.Run(ctx, cfg.OwnerID)) })
	g.Go(func() error {
		if err := repo.WatchFile(ctx, cfg.DatabasePath, cfg.WatchDebounce); err != nil {
			// The UI still refreshes on local writes.
			logger.WarnContext(ctx, "database watch stopped", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		if headless {
			return runHeadless(ctx, headlessDeps{
				ctrl:   ctrl,
				view:   view,
				events: sink.C(),
				logger: logger,
				tick:   cfg.UITick,
			})
		}
		program := tea.NewProgram(update.NewModel(update.Deps{
			Context: ctx,
			Engine:  ctrl,
			Levels:  levels,
			View:    view,
			Events:  sink.C(),
			OwnerID: cfg.OwnerID,
			Tick:    cfg.UITick,
		}), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	})

	logger.Info("focusd started", "owner_id", cfg.OwnerID, "database", cfg.DatabasePath, "headless", headless)
	err = g.Wait()
	logger.Info("focusd stopped", "error", err)
	return err
}

// openLogger writes JSON logs to path. The terminal belongs to the UI, so
// stderr is used only in headless mode without a log file.
func openLogger(path string, headless bool) (*slog.Logger, func(), error) {
	var w io.Writer = io.Discard
	closer := func() {}
	switch {
	case path != "":
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log %s: %w", path, err)
		}
		w = f
		closer = func() { _ = f.Close() }
	case headless:
		w = os.Stderr
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})), closer, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
