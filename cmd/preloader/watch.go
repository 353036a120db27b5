package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/preloadkit/preloader/internal/config"
)

func newWatchCommand(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the script when the config changes and on an interval",
		Long: `Regenerate the script when the config changes and on an interval.

watch generates once at startup, then again whenever the config file is
saved and, with --interval, on every tick. Each run replaces the previous
script, so preloader.overwrite is implied. Runs never overlap.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			return a.watch(cmd.Context(), cfg, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "also regenerate this often (0 = only on config change)")
	return cmd
}

func (a *app) watch(ctx context.Context, cfg *config.Config, interval time.Duration) error {
	reloads := make(chan *config.Config, 1)
	go func() {
		err := config.Watch(ctx, a.configPath, func(updated *config.Config) {
			// Keep only the newest config if a run is still in progress.
			select {
			case <-reloads:
			default:
			}
			reloads <- updated
		})
		if err != nil {
			slog.Error("preloader: config watcher stopped", "err", err)
		}
	}()

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	slog.Info("preloader: watching", "config", a.configPath, "interval", interval)
	a.runOnce(ctx, cfg)
	for {
		select {
		case <-ctx.Done():
			slog.Info("preloader: watch stopped")
			return nil
		case updated := <-reloads:
			slog.Info("preloader: config reloaded", "output", updated.Preloader.Output)
			cfg = updated
			a.runOnce(ctx, cfg)
		case <-tick:
			a.runOnce(ctx, cfg)
		}
	}
}

// runOnce generates with overwrite forced on and logs failures instead of
// returning them, so one bad run does not stop the watch loop.
func (a *app) runOnce(ctx context.Context, cfg *config.Config) {
	c := *cfg
	c.Preloader.Overwrite = true
	if _, err := a.generate(ctx, &c); err != nil {
		slog.Error("preloader: generate failed", "err", err)
	}
}
