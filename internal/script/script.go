// Package script renders the preload.php file from a preload list.
//
// Rendering is plain @token substitution over an embedded template, done in
// one pass so a token-like sequence inside a substituted path is left alone.
package script

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/preloadkit/preloader/internal/config"
	"github.com/preloadkit/preloader/internal/status"
)

// GeneratedAtLayout formats the generation timestamp.
const GeneratedAtLayout = "2006-01-02 15:04:05 MST"

//go:embed preload.php.tmpl
var preloadTemplate string

//go:embed safe_preloader.php.tmpl
var safeTemplate string

// Data is everything the preload script shows.
type Data struct {
	// Output is the absolute path of the script being written.
	Output      string
	GeneratedAt time.Time

	// Autoloader is the absolute Composer autoload path, or empty for none.
	Autoloader string

	List           []string
	Mechanism      string
	IgnoreNotFound bool

	Status        *status.Status
	MemoryLimitMB float64
	Overwrite     bool
	Excluded      int
	Appended      int
}

// Render returns the preload script for d.
func Render(d Data) []byte {
	st := d.Status
	if st == nil {
		st = &status.Status{}
	}

	r := strings.NewReplacer(
		"@output", d.Output,
		"@generated_at", d.GeneratedAt.Format(GeneratedAtLayout),
		"@autoload", autoloadLine(d.Autoloader),
		"@list", FormatList(d.List),
		"@mechanism", mechanism(d.Mechanism),
		"@not_found", notFound(d.IgnoreNotFound),
		"@opcache_memory_used", megabytes(st.Memory.Used),
		"@opcache_memory_free", megabytes(st.Memory.Free),
		"@opcache_memory_wasted", megabytes(st.Memory.Wasted),
		"@opcache_files", strconv.FormatInt(st.Statistics.CachedScripts, 10),
		"@opcache_hit_rate", strconv.FormatFloat(st.Statistics.HitRate, 'f', 2, 64),
		"@opcache_misses", strconv.FormatInt(st.Statistics.Misses, 10),
		"@preloader_memory_limit", MemoryLimit(d.MemoryLimitMB),
		"@preloader_overwrite", strconv.FormatBool(d.Overwrite),
		"@preloader_excluded", strconv.Itoa(d.Excluded),
		"@preloader_appended", strconv.Itoa(d.Appended),
	)
	return []byte(r.Replace(preloadTemplate))
}

// RenderSafe returns the shutdown-hook helper that loads target.
func RenderSafe(target string) []byte {
	return []byte(strings.ReplaceAll(safeTemplate, "@target", quote(target)))
}

// FormatList renders paths as the body of a PHP array literal: one
// single-quoted entry per line, indented four spaces, comma separated.
func FormatList(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = quote(p)
	}
	return "\n    " + strings.Join(quoted, ",\n    ") + "\n"
}

// MemoryLimit renders a limit in megabytes, or "(disabled)" for zero.
func MemoryLimit(mb float64) string {
	if mb == 0 {
		return "(disabled)"
	}
	return strconv.FormatFloat(mb, 'f', -1, 64) + " MB"
}

func megabytes(b int64) string {
	return fmt.Sprintf("%.1f", float64(b)/(1024*1024))
}

func autoloadLine(path string) string {
	if path == "" {
		return ""
	}
	return "require_once " + quote(path) + ";\n"
}

func mechanism(m string) string {
	if m == config.MechanismRequire {
		return "require_once $file"
	}
	return "opcache_compile_file($file)"
}

func notFound(ignore bool) string {
	if ignore {
		return "continue;"
	}
	return `throw new \Exception("Preloader couldn't load {$file}: it does not exist or is unreadable.");`
}

// quote renders s as a PHP single-quoted string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
