package preloader

import (
	"github.com/preloadkit/preloader/internal/condition"
	"github.com/preloadkit/preloader/internal/config"
	"github.com/preloadkit/preloader/internal/pathspec"
	"github.com/preloadkit/preloader/internal/status"
)

// Options configure one build. The zero value compiles every cached script
// with no memory limit and no output path.
type Options struct {
	Output         string
	Overwrite      bool
	Mechanism      string
	Autoloader     string
	MemoryLimitMB  float64
	IgnoreNotFound bool

	// SelfExclude drops the output script and InternalPaths from the list.
	SelfExclude   bool
	InternalPaths pathspec.Source

	Exclude pathspec.Source
	Append  pathspec.Source

	// Gate decides from the fetched status whether Generate writes. nil
	// always runs.
	Gate Gate
}

// Gate is a run condition that may look at the status read for the build.
type Gate func(st *status.Status) bool

// GateOf ignores the status and evaluates c.
func GateOf(c condition.Condition) Gate {
	return func(*status.Status) bool { return c() }
}

// GateFromConfig builds the configured condition, feeding it the hit count
// of the status read for the build.
func GateFromConfig(cfg config.ConditionConfig) Gate {
	return func(st *status.Status) bool {
		return condition.FromConfig(cfg, func() int64 { return st.Statistics.Hits })()
	}
}

// OptionsFromConfig maps the preloader section of the config file to
// Options. Relative paths resolve against cfg.BaseDir.
func OptionsFromConfig(cfg config.PreloaderConfig) Options {
	opts := Options{
		Overwrite:      cfg.Overwrite,
		Mechanism:      cfg.Mechanism,
		MemoryLimitMB:  cfg.MemoryLimitMB,
		IgnoreNotFound: cfg.IgnoreNotFound,
		SelfExclude:    cfg.SelfExclude,
		Gate:           GateFromConfig(cfg.Condition),
	}
	if cfg.Output != "" {
		opts.Output = pathspec.Normalize(cfg.Output, cfg.BaseDir)
	}
	if cfg.Autoloader != "" {
		opts.Autoloader = pathspec.Normalize(cfg.Autoloader, cfg.BaseDir)
	}
	if len(cfg.InternalPaths) > 0 {
		opts.InternalPaths = pathspec.Specs{Patterns: cfg.InternalPaths, Base: cfg.BaseDir}
	}
	if len(cfg.Exclude) > 0 {
		opts.Exclude = pathspec.Specs{Patterns: cfg.Exclude, Base: cfg.BaseDir}
	}
	if len(cfg.Append) > 0 {
		opts.Append = pathspec.Specs{Patterns: cfg.Append, Base: cfg.BaseDir}
	}
	return opts
}

func (o Options) memoryLimitBytes() int64 {
	return config.PreloaderConfig{MemoryLimitMB: o.MemoryLimitMB}.MemoryLimitBytes()
}
