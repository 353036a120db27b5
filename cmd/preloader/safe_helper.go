package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/preloadkit/preloader/internal/preloader"
)

func newSafeHelperCommand(a *app) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "safe-helper <path>",
		Short: "Write a helper that reports errors raised while preloading",
		Long: `Write a helper that reports errors raised while preloading.

Point opcache.preload at the helper instead of the generated script. It
registers a shutdown function that prints the last error, then loads the
script configured as preloader.output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			opts := preloader.OptionsFromConfig(cfg.Preloader)
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if err := preloader.WriteSafeHelper(path, opts.Output, overwrite); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "wrote %s (loads %s)\n", path, opts.Output)
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing helper")
	return cmd
}
