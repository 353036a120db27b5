package status

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/preloadkit/preloader/internal/config"
	"github.com/preloadkit/preloader/internal/lister"
)

// opcacheJSON is a trimmed opcache_get_status(true) dump. Keys are
// deliberately not sorted so order preservation is observable.
const opcacheJSON = `{
  "opcache_enabled": true,
  "cache_full": false,
  "memory_usage": {
    "used_memory": 10485760,
    "free_memory": 5242880,
    "wasted_memory": 1048576,
    "current_wasted_percentage": 0.5
  },
  "opcache_statistics": {
    "num_cached_scripts": 4,
    "hits": 1001,
    "misses": 7,
    "opcache_hit_rate": 99.3
  },
  "scripts": {
    "/srv/app/vendor/z.php": {"full_path": "/srv/app/vendor/z.php", "hits": 3, "memory_consumption": 300, "last_used_timestamp": 1400000003},
    "$PRELOAD$": {"full_path": "$PRELOAD$", "hits": 0, "memory_consumption": 0, "last_used_timestamp": 0},
    "/srv/app/src/a.php": {"full_path": "/srv/app/src/a.php", "hits": 9, "memory_consumption": 900, "last_used_timestamp": 1400000009},
    "/srv/app/src/m.php": {"full_path": "/srv/app/src/m.php", "hits": 1, "memory_consumption": 100, "last_used_timestamp": 1400000001}
  }
}`

func wantScripts() lister.Snapshot {
	return lister.Snapshot{
		{Path: "/srv/app/vendor/z.php", Hits: 3, MemoryConsumption: 300, LastUsedTimestamp: 1400000003},
		{Path: lister.Sentinel},
		{Path: "/srv/app/src/a.php", Hits: 9, MemoryConsumption: 900, LastUsedTimestamp: 1400000009},
		{Path: "/srv/app/src/m.php", Hits: 1, MemoryConsumption: 100, LastUsedTimestamp: 1400000001},
	}
}

func assertStatus(t *testing.T, st *Status) {
	t.Helper()
	if !st.IsEnabled() {
		t.Error("IsEnabled() = false, want true")
	}
	if got := st.CachedEntryCount(); got != 4 {
		t.Errorf("CachedEntryCount() = %d, want 4", got)
	}
	if st.Memory.Used != 10485760 || st.Memory.Free != 5242880 || st.Memory.Wasted != 1048576 {
		t.Errorf("Memory = %+v", st.Memory)
	}
	if st.Statistics.Hits != 1001 || st.Statistics.Misses != 7 || st.Statistics.HitRate != 99.3 {
		t.Errorf("Statistics = %+v", st.Statistics)
	}
	if !reflect.DeepEqual(st.Snapshot(), wantScripts()) {
		t.Errorf("Scripts = %+v\nwant %+v", st.Snapshot(), wantScripts())
	}
}

func TestDecodeStatus_PreservesScriptOrder(t *testing.T) {
	st, err := decodeStatus([]byte(opcacheJSON))
	if err != nil {
		t.Fatalf("decodeStatus() error = %v", err)
	}
	assertStatus(t, st)
}

func TestDecodeStatus_EdgeShapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		enabled bool
		scripts int
	}{
		{"opcache not loaded", "false", false, 0},
		{"null", " null\n", false, 0},
		{"empty scripts array", `{"opcache_enabled": true, "scripts": []}`, true, 0},
		{"scripts absent", `{"opcache_enabled": true}`, true, 0},
		{"scripts null", `{"opcache_enabled": true, "scripts": null}`, true, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st, err := decodeStatus([]byte(tc.body))
			if err != nil {
				t.Fatalf("decodeStatus() error = %v", err)
			}
			if st.Enabled != tc.enabled {
				t.Errorf("Enabled = %v, want %v", st.Enabled, tc.enabled)
			}
			if len(st.Scripts) != tc.scripts {
				t.Errorf("len(Scripts) = %d, want %d", len(st.Scripts), tc.scripts)
			}
		})
	}
}

func TestDecodeStatus_Malformed(t *testing.T) {
	for _, body := range []string{
		"{",
		`{"scripts": ["a.php"]}`,
		`{"scripts": 3}`,
		`{"scripts": {"a.php": {"hits": "many"}}}`,
	} {
		if _, err := decodeStatus([]byte(body)); err == nil {
			t.Errorf("decodeStatus(%q) expected error", body)
		}
	}
}

func TestFileProvider_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opcache.json")
	if err := os.WriteFile(path, []byte(opcacheJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := New(config.Source{Type: "file", Path: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	st, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	assertStatus(t, st)
}

func TestFileProvider_Missing(t *testing.T) {
	p := &fileProvider{path: filepath.Join(t.TempDir(), "absent.json")}
	if _, err := p.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestHTTPProvider_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(opcacheJSON))
	}))
	defer srv.Close()

	p := &httpProvider{src: config.Source{Type: "http", Endpoint: srv.URL}, client: srv.Client()}
	st, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	assertStatus(t, st)
}

func TestHTTPProvider_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := &httpProvider{src: config.Source{Endpoint: srv.URL}, client: srv.Client()}
	if _, err := p.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestHTTPProvider_ConnectFailure(t *testing.T) {
	p := &httpProvider{src: config.Source{Endpoint: "http://127.0.0.1:1"}, client: &http.Client{}}
	if _, err := p.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
}

func TestAuthRoundTripper(t *testing.T) {
	t.Setenv("STATUS_KEY", "k-123")
	t.Setenv("STATUS_TOKEN", "t-456")
	t.Setenv("STATUS_PASSWORD", "p-789")

	tests := []struct {
		name   string
		auth   config.AuthConfig
		header string
		want   string
	}{
		{"apikey", config.AuthConfig{Mode: "apikey", Header: "X-Api-Key", KeyEnv: "STATUS_KEY"}, "X-Api-Key", "k-123"},
		{"bearer", config.AuthConfig{Mode: "bearer", TokenEnv: "STATUS_TOKEN"}, "Authorization", "Bearer t-456"},
		{"basic", config.AuthConfig{Mode: "basic", Username: "ops", PasswordEnv: "STATUS_PASSWORD"}, "Authorization", "Basic b3BzOnAtNzg5"},
		{"none", config.AuthConfig{Mode: "none"}, "Authorization", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get(tc.header)
				_, _ = w.Write([]byte(opcacheJSON))
			}))
			defer srv.Close()

			p, err := New(config.Source{Type: "http", Endpoint: srv.URL, Auth: tc.auth})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if _, err := p.Fetch(context.Background()); err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("%s header = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}

func TestNew_Unsupported(t *testing.T) {
	if _, err := New(config.Source{Type: "apcu"}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestNew_MTLSMissingCert(t *testing.T) {
	_, err := New(config.Source{
		Type:     "http",
		Endpoint: "https://localhost",
		Auth:     config.AuthConfig{Mode: "mtls", CertFile: "/nonexistent.crt", KeyFile: "/nonexistent.key"},
	})
	if err == nil {
		t.Fatal("expected error for missing client certificate")
	}
}

type countingProvider struct {
	calls int
	st    *Status
}

func (c *countingProvider) Fetch(context.Context) (*Status, error) {
	c.calls++
	return c.st, nil
}

func TestMemo_FetchesOnce(t *testing.T) {
	inner := &countingProvider{st: &Status{Enabled: true}}
	m := Memo(inner)

	for i := 0; i < 3; i++ {
		st, err := m.Fetch(context.Background())
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if st != inner.st {
			t.Fatal("Memo returned a different status")
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner Fetch calls = %d, want 1", inner.calls)
	}
}

func TestMemo_DoesNotCacheErrors(t *testing.T) {
	boom := errors.New("boom")
	m := Memo(Static{Err: boom})
	if _, err := m.Fetch(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Fetch() error = %v, want %v", err, boom)
	}
}
