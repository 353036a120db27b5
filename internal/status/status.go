package status

import (
	"context"
	"fmt"
	"sync"

	"github.com/preloadkit/preloader/internal/config"
	"github.com/preloadkit/preloader/internal/lister"
)

// Status is one read of the opcache state.
type Status struct {
	Enabled    bool
	Memory     MemoryUsage
	Statistics Statistics

	// Scripts holds per-script usage in runtime order. It may include the
	// lister.Sentinel placeholder; the list engine drops it.
	Scripts lister.Snapshot
}

// MemoryUsage is the shared memory breakdown in bytes.
type MemoryUsage struct {
	Used   int64
	Free   int64
	Wasted int64
}

// Statistics are the aggregate cache counters.
type Statistics struct {
	CachedScripts int64
	Hits          int64
	Misses        int64

	// HitRate is a percentage in the range 0–100.
	HitRate float64
}

// IsEnabled reports whether opcache is enabled.
func (s *Status) IsEnabled() bool { return s.Enabled }

// CachedEntryCount returns the number of scripts opcache reports as cached.
func (s *Status) CachedEntryCount() int64 { return s.Statistics.CachedScripts }

// Snapshot returns the per-script records.
func (s *Status) Snapshot() lister.Snapshot { return s.Scripts }

// Provider is implemented by every status source.
type Provider interface {
	Fetch(ctx context.Context) (*Status, error)
}

// New returns the Provider for the given source configuration.
func New(src config.Source) (Provider, error) {
	switch src.Type {
	case "file":
		return &fileProvider{path: src.Path}, nil
	case "http", "prometheus":
		client, err := buildHTTPClient(src)
		if err != nil {
			return nil, fmt.Errorf("status: build http client: %w", err)
		}
		if src.Type == "http" {
			return &httpProvider{src: src, client: client}, nil
		}
		return &promProvider{src: src, client: client}, nil
	default:
		return nil, fmt.Errorf("status: unsupported type %q", src.Type)
	}
}

// Static is a Provider that always returns the same Status.
type Static struct {
	Status *Status
	Err    error
}

// Fetch returns s.Status, or s.Err when set.
func (s Static) Fetch(context.Context) (*Status, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Status, nil
}

// Memo wraps p so the first successful Fetch is reused by later calls.
// A build uses one Memo so every step sees the same snapshot.
func Memo(p Provider) Provider {
	return &memoProvider{next: p}
}

type memoProvider struct {
	mu     sync.Mutex
	next   Provider
	status *Status
}

func (m *memoProvider) Fetch(ctx context.Context) (*Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != nil {
		return m.status, nil
	}
	st, err := m.next.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	m.status = st
	return st, nil
}
