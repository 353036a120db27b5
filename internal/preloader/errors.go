package preloader

import (
	"errors"
	"fmt"
)

// Precondition failures. Each is returned wrapped in a *PreconditionError.
var (
	ErrNoOutput          = errors.New("no output path configured")
	ErrNoAutoloader      = errors.New("the require mechanism needs an autoloader")
	ErrAutoloaderMissing = errors.New("autoloader file does not exist")
	ErrCacheDisabled     = errors.New("opcache is disabled")
	ErrNoCachedScripts   = errors.New("opcache reports 0 cached scripts")
	ErrOutputExists      = errors.New("output file exists and overwrite is off")
)

// PreconditionError reports a build that was refused before anything was
// written. The caller can fix it by changing configuration or environment.
type PreconditionError struct {
	Err  error
	Path string
}

func (e *PreconditionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("preloader: %v: %s", e.Err, e.Path)
	}
	return "preloader: " + e.Err.Error()
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// WriteError reports a build whose script was rendered but could not be
// written to Path.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("preloader: write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func precondition(err error, path string) error {
	return &PreconditionError{Err: err, Path: path}
}
