package script

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/preloadkit/preloader/internal/config"
	"github.com/preloadkit/preloader/internal/status"
)

func sampleData() Data {
	return Data{
		Output:      "/srv/app/preload.php",
		GeneratedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Autoloader:  "/srv/app/vendor/autoload.php",
		List:        []string{"bar", "quz", "foo", "qux", "baz"},
		Mechanism:   config.MechanismCompile,
		Status: &status.Status{
			Enabled: true,
			Memory:  status.MemoryUsage{Used: 3 * 1024 * 1024, Free: 1572864, Wasted: 0},
			Statistics: status.Statistics{
				CachedScripts: 1000,
				Hits:          1001,
				Misses:        42,
				HitRate:       95.5,
			},
		},
		MemoryLimitMB: 32,
		Excluded:      1,
		Appended:      2,
	}
}

func TestRender_List(t *testing.T) {
	out := string(Render(sampleData()))

	files := "$files = [\n" +
		"    'bar',\n" +
		"    'quz',\n" +
		"    'foo',\n" +
		"    'qux',\n" +
		"    'baz'\n" +
		"];"
	if !strings.Contains(out, files) {
		t.Errorf("rendered script missing list block:\n%s", out)
	}
}

func TestRender_Stats(t *testing.T) {
	out := string(Render(sampleData()))

	for _, want := range []string{
		"opcache.preload=/srv/app/preload.php",
		"Generated at: 2026-03-04 05:06:07 UTC",
		"Used Memory: 3.0 MB",
		"Free Memory: 1.5 MB",
		"Wasted Memory: 0.0 MB",
		"Cached files: 1000",
		"Hit rate: 95.50%",
		"Misses: 42",
		"Memory limit: 32 MB",
		"Overwrite: false",
		"Files excluded: 1",
		"Files appended: 2",
		"require_once '/srv/app/vendor/autoload.php';",
		"opcache_compile_file($file);",
		`throw new \Exception(`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered script missing %q", want)
		}
	}
	if regexp.MustCompile(`@[a-z_]+`).MatchString(out) {
		t.Errorf("rendered script has unreplaced tokens:\n%s", out)
	}
}

func TestRender_RequireMechanismAndIgnoreNotFound(t *testing.T) {
	d := sampleData()
	d.Mechanism = config.MechanismRequire
	d.IgnoreNotFound = true
	d.Overwrite = true
	d.MemoryLimitMB = 0
	out := string(Render(d))

	for _, want := range []string{"require_once $file;", "continue;", "Memory limit: (disabled)", "Overwrite: true"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered script missing %q", want)
		}
	}
	if strings.Contains(out, "opcache_compile_file") {
		t.Error("require mechanism should not compile files")
	}
}

func TestRender_NoAutoloaderNoStatus(t *testing.T) {
	d := sampleData()
	d.Autoloader = ""
	d.Status = nil
	d.List = nil
	out := string(Render(d))

	if strings.Contains(out, "vendor/autoload.php") {
		t.Error("autoload line rendered without an autoloader")
	}
	if !strings.Contains(out, "$files = [];") {
		t.Errorf("empty list should render as an empty array:\n%s", out)
	}
}

func TestRender_TokensInsidePathsAreNotExpanded(t *testing.T) {
	d := sampleData()
	d.List = []string{"/srv/@list/x.php"}
	out := string(Render(d))
	if !strings.Contains(out, "'/srv/@list/x.php'") {
		t.Errorf("path with token-like text was rewritten:\n%s", out)
	}
}

func TestFormatList_Quotes(t *testing.T) {
	got := FormatList([]string{`C:\app\a.php`, "/srv/o'neil.php"})
	want := "\n    'C:\\\\app\\\\a.php',\n    '/srv/o\\'neil.php'\n"
	if got != want {
		t.Errorf("FormatList() = %q, want %q", got, want)
	}
}

func TestMemoryLimit(t *testing.T) {
	tests := map[float64]string{
		0:    "(disabled)",
		32:   "32 MB",
		10:   "10 MB",
		12.5: "12.5 MB",
	}
	for in, want := range tests {
		if got := MemoryLimit(in); got != want {
			t.Errorf("MemoryLimit(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderSafe(t *testing.T) {
	out := string(RenderSafe("/srv/app/preload.php"))
	for _, want := range []string{"register_shutdown_function", "error_get_last()", "require_once '/srv/app/preload.php';"} {
		if !strings.Contains(out, want) {
			t.Errorf("safe helper missing %q", want)
		}
	}
}
