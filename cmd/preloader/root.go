package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/preloadkit/preloader/internal/config"
	"github.com/preloadkit/preloader/internal/preloader"
	"github.com/preloadkit/preloader/internal/status"
)

// app carries the global flags and the seams tests replace.
type app struct {
	configPath string
	logFormat  string
	verbose    bool

	stdout      io.Writer
	stderr      io.Writer
	newProvider func(config.Source) (status.Provider, error)
}

func newApp() *app {
	return &app{
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		newProvider: status.New,
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "preloader",
		Short: "Generate an opcache preload script from cache statistics",
		Long: `Generate an opcache preload script from cache statistics.

preloader reads opcache_get_status() output (from a JSON dump, an HTTP
endpoint or a Prometheus exporter), ranks cached scripts by hits and last
use, keeps as many as fit in the configured memory limit, and writes a
preload.php that loads them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setupLogging()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "preloader.yaml", "path to config file")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "log output format: text | json")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newGenerateCommand(a),
		newListCommand(a),
		newStatsCommand(a),
		newWatchCommand(a),
		newSafeHelperCommand(a),
	)
	return root
}

func (a *app) setupLogging() error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	switch a.logFormat {
	case "json":
		handler = slog.NewJSONHandler(a.stderr, &slog.HandlerOptions{Level: level})
	case "text":
		l := log.NewWithOptions(a.stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			Level:           log.InfoLevel,
		})
		if a.verbose {
			l.SetLevel(log.DebugLevel)
		}
		handler = l
	default:
		return fmt.Errorf("unknown --log-format %q (want text or json)", a.logFormat)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("preloader: config loaded",
		"path", a.configPath,
		"status_type", cfg.Status.Type,
		"output", cfg.Preloader.Output,
	)
	return cfg, nil
}

// generator builds the Generator and Options for cfg.
func (a *app) generator(cfg *config.Config) (*preloader.Generator, preloader.Options, error) {
	p, err := a.newProvider(cfg.Status)
	if err != nil {
		return nil, preloader.Options{}, err
	}
	return preloader.New(p), preloader.OptionsFromConfig(cfg.Preloader), nil
}
