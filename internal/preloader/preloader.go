package preloader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/preloadkit/preloader/internal/config"
	"github.com/preloadkit/preloader/internal/diff"
	"github.com/preloadkit/preloader/internal/lister"
	"github.com/preloadkit/preloader/internal/pathspec"
	"github.com/preloadkit/preloader/internal/script"
	"github.com/preloadkit/preloader/internal/status"
)

// Result describes one build.
type Result struct {
	// Ran is false when the gate skipped the build. Nothing was written and
	// the remaining fields besides Status are empty.
	Ran bool

	Output string
	List   []string

	// Excluded and Appended count the paths the specs resolved to.
	Excluded int
	Appended int

	Status *status.Status
}

// Generator builds preload scripts from a status Provider.
type Generator struct {
	provider  status.Provider
	now       func() time.Time
	writeFile func(path string, data []byte) error
}

// New returns a Generator reading status from p.
func New(p status.Provider) *Generator {
	return &Generator{
		provider:  p,
		now:       time.Now,
		writeFile: writeFileAtomic,
	}
}

// Generate checks preconditions, builds the list and writes the script to
// opts.Output. A Result with Ran false and a nil error means the gate
// skipped this run.
func (g *Generator) Generate(ctx context.Context, opts Options) (Result, error) {
	if err := checkPaths(opts); err != nil {
		return Result{}, err
	}
	st, err := g.fetch(ctx)
	if err != nil {
		return Result{}, err
	}
	if opts.Gate != nil && !opts.Gate(st) {
		slog.Info("preloader: condition not met, skipping", "output", opts.Output)
		return Result{Status: st}, nil
	}
	if !opts.Overwrite {
		if _, err := os.Stat(opts.Output); err == nil {
			return Result{}, precondition(ErrOutputExists, opts.Output)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Result{}, &WriteError{Path: opts.Output, Err: err}
		}
	}

	res, err := g.build(st, opts)
	if err != nil {
		return Result{}, err
	}
	data := g.render(res, opts)
	if err := g.writeFile(opts.Output, data); err != nil {
		return Result{}, &WriteError{Path: opts.Output, Err: err}
	}

	slog.Info("preloader: script written",
		"output", res.Output,
		"files", len(res.List),
		"excluded", res.Excluded,
		"appended", res.Appended,
	)
	return res, nil
}

// Render runs every check Generate does except the gate and the overwrite
// check, and returns the script instead of writing it.
func (g *Generator) Render(ctx context.Context, opts Options) ([]byte, Result, error) {
	if err := checkPaths(opts); err != nil {
		return nil, Result{}, err
	}
	st, err := g.fetch(ctx)
	if err != nil {
		return nil, Result{}, err
	}
	res, err := g.build(st, opts)
	if err != nil {
		return nil, Result{}, err
	}
	return g.render(res, opts), res, nil
}

// List returns the preload list without rendering or writing anything.
func (g *Generator) List(ctx context.Context, opts Options) ([]string, error) {
	st, err := g.fetch(ctx)
	if err != nil {
		return nil, err
	}
	res, err := g.build(st, opts)
	if err != nil {
		return nil, err
	}
	return res.List, nil
}

// Diff renders the script and returns a unified diff against the file at
// opts.Output, or a whole-file patch when it does not exist yet. An empty
// patch means the script would not change.
func (g *Generator) Diff(ctx context.Context, opts Options) (string, Result, error) {
	data, res, err := g.Render(ctx, opts)
	if err != nil {
		return "", Result{}, err
	}

	current, err := os.ReadFile(opts.Output)
	var patch string
	switch {
	case errors.Is(err, fs.ErrNotExist):
		patch, _, err = diff.Added(opts.Output, data, diff.Options{})
	case err != nil:
		return "", Result{}, fmt.Errorf("preloader: read current script: %w", err)
	default:
		patch, _, err = diff.Unified(opts.Output, opts.Output+" (new)",
			current, data, diff.Options{})
	}
	if err != nil {
		return "", Result{}, err
	}
	return patch, res, nil
}

// checkPaths validates the options that need no status read.
func checkPaths(opts Options) error {
	if opts.Output == "" {
		return precondition(ErrNoOutput, "")
	}
	if opts.Mechanism == config.MechanismRequire && opts.Autoloader == "" {
		return precondition(ErrNoAutoloader, "")
	}
	if opts.Autoloader != "" {
		if _, err := os.Stat(opts.Autoloader); err != nil {
			return precondition(ErrAutoloaderMissing, opts.Autoloader)
		}
	}
	return nil
}

// fetch reads the status once and checks the cache can feed a list.
func (g *Generator) fetch(ctx context.Context) (*status.Status, error) {
	st, err := status.Memo(g.provider).Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("preloader: fetch status: %w", err)
	}
	if !st.IsEnabled() {
		return nil, precondition(ErrCacheDisabled, "")
	}
	if st.CachedEntryCount() == 0 {
		return nil, precondition(ErrNoCachedScripts, "")
	}
	return st, nil
}

func (g *Generator) build(st *status.Status, opts Options) (Result, error) {
	excluded, err := pathspec.Collect(opts.Exclude)
	if err != nil {
		return Result{}, fmt.Errorf("preloader: resolve exclude: %w", err)
	}
	appended, err := pathspec.Collect(opts.Append)
	if err != nil {
		return Result{}, fmt.Errorf("preloader: resolve append: %w", err)
	}
	var internal []string
	if opts.SelfExclude {
		if internal, err = pathspec.Collect(selfSource(opts), opts.InternalPaths); err != nil {
			return Result{}, fmt.Errorf("preloader: resolve internal paths: %w", err)
		}
		if len(internal) == 0 {
			slog.Warn("preloader: self-exclusion is on but matches no files")
		}
	}

	list := lister.Build(lister.Input{
		Snapshot:      st.Snapshot(),
		Excluded:      excluded,
		Appended:      appended,
		MemoryLimit:   opts.memoryLimitBytes(),
		SelfExclude:   opts.SelfExclude,
		InternalPaths: internal,
	})

	slog.Debug("preloader: list built",
		"scripts", len(st.Snapshot()),
		"files", len(list),
		"excluded", len(excluded),
		"appended", len(appended),
	)
	return Result{
		Ran:      true,
		Output:   opts.Output,
		List:     list,
		Excluded: len(excluded),
		Appended: len(appended),
		Status:   st,
	}, nil
}

func (g *Generator) render(res Result, opts Options) []byte {
	return script.Render(script.Data{
		Output:         opts.Output,
		GeneratedAt:    g.now(),
		Autoloader:     opts.Autoloader,
		List:           res.List,
		Mechanism:      opts.Mechanism,
		IgnoreNotFound: opts.IgnoreNotFound,
		Status:         res.Status,
		MemoryLimitMB:  opts.MemoryLimitMB,
		Overwrite:      opts.Overwrite,
		Excluded:       res.Excluded,
		Appended:       res.Appended,
	})
}

// selfSource yields the script this build writes, which must never preload
// itself.
func selfSource(opts Options) pathspec.Source {
	if opts.Output == "" {
		return nil
	}
	return pathspec.Literal{opts.Output}
}
