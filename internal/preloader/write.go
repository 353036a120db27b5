package preloader

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/preloadkit/preloader/internal/script"
)

// writeFileAtomic writes data to a temp file next to path and renames it
// into place, so PHP never reads a half-written script.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// WriteSafeHelper writes the shutdown-hook helper to path. The helper loads
// target, the generated script.
func WriteSafeHelper(path, target string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return precondition(ErrOutputExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return &WriteError{Path: path, Err: err}
		}
	}
	if err := writeFileAtomic(path, script.RenderSafe(target)); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
