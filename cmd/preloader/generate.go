package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/preloadkit/preloader/internal/config"
	"github.com/preloadkit/preloader/internal/notify"
	"github.com/preloadkit/preloader/internal/preloader"
)

func newGenerateCommand(a *app) *cobra.Command {
	var (
		dryRun    bool
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build the preload list and write the preload script",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if overwrite {
				cfg.Preloader.Overwrite = true
			}
			if dryRun {
				return a.dryRun(cmd.Context(), cfg)
			}
			_, err = a.generate(cmd.Context(), cfg)
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print a diff against the current script instead of writing")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing script (overrides preloader.overwrite)")
	return cmd
}

// generate runs one build and notifies webhooks when a script was written.
func (a *app) generate(ctx context.Context, cfg *config.Config) (preloader.Result, error) {
	gen, opts, err := a.generator(cfg)
	if err != nil {
		return preloader.Result{}, err
	}
	res, err := gen.Generate(ctx, opts)
	if err != nil {
		return res, err
	}
	if !res.Ran {
		slog.Info("preloader: did not run", "mode", cfg.Preloader.Condition.Mode)
		return res, nil
	}

	fmt.Fprintf(a.stdout, "wrote %s (%d files, %d excluded, %d appended)\n",
		res.Output, len(res.List), res.Excluded, res.Appended)

	ev := notify.NewEvent(res.Output, len(res.List), res.Excluded, res.Appended, opts.MemoryLimitMB, time.Now())
	notify.New(cfg.Notify).Send(ctx, ev)
	return res, nil
}

func (a *app) dryRun(ctx context.Context, cfg *config.Config) error {
	gen, opts, err := a.generator(cfg)
	if err != nil {
		return err
	}
	patch, res, err := gen.Diff(ctx, opts)
	if err != nil {
		return err
	}
	if patch == "" {
		fmt.Fprintf(a.stdout, "%s is up to date (%d files)\n", res.Output, len(res.List))
		return nil
	}
	fmt.Fprint(a.stdout, patch)
	return nil
}
