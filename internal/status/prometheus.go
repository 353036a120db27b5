package status

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/preloadkit/preloader/internal/config"
	"github.com/preloadkit/preloader/internal/lister"
)

// Opcache exporter metric names we read.
const (
	promEnabled = "opcache_enabled"

	promMemoryUsed   = "opcache_memory_used_bytes"
	promMemoryFree   = "opcache_memory_free_bytes"
	promMemoryWasted = "opcache_memory_wasted_bytes"

	promCachedScripts = "opcache_statistics_cached_scripts"
	promHits          = "opcache_statistics_hits_total"
	promMisses        = "opcache_statistics_misses_total"
	promHitRate       = "opcache_statistics_hit_rate"

	// Per-script series, one sample per cached file labelled with its path.
	promScriptHits     = "opcache_script_hits_total"
	promScriptMemory   = "opcache_script_memory_consumption_bytes"
	promScriptLastUsed = "opcache_script_last_used_timestamp_seconds"

	promPathLabel = "path"
)

type promProvider struct {
	src    config.Source
	client *http.Client
}

// Fetch scrapes an opcache exporter and rebuilds the status from its
// aggregate gauges and per-script series. Script order follows the order of
// the hits series in the exposition.
func (p *promProvider) Fetch(ctx context.Context) (*Status, error) {
	body, err := get(ctx, p.client, p.src.Endpoint, string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	if err != nil {
		slog.Warn("status: prometheus fetch failed", "endpoint", p.src.Endpoint, "err", err)
		return nil, fmt.Errorf("status: prometheus %q: %w", p.src.Endpoint, err)
	}
	mfs, err := parseMetrics(bytes.NewReader(body))
	if err != nil {
		slog.Warn("status: prometheus parse failed", "endpoint", p.src.Endpoint, "err", err)
		return nil, fmt.Errorf("status: prometheus %q: %w", p.src.Endpoint, err)
	}
	return statusFromFamilies(mfs), nil
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
// Any parse error fails the whole scrape, since the parser stops at the bad
// line and drops every family after it.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

func statusFromFamilies(mfs map[string]*dto.MetricFamily) *Status {
	st := &Status{
		Enabled: sumFamily(mfs[promEnabled]) > 0,
		Memory: MemoryUsage{
			Used:   int64(sumFamily(mfs[promMemoryUsed])),
			Free:   int64(sumFamily(mfs[promMemoryFree])),
			Wasted: int64(sumFamily(mfs[promMemoryWasted])),
		},
		Statistics: Statistics{
			CachedScripts: int64(sumFamily(mfs[promCachedScripts])),
			Hits:          int64(sumFamily(mfs[promHits])),
			Misses:        int64(sumFamily(mfs[promMisses])),
			HitRate:       sumFamily(mfs[promHitRate]),
		},
	}

	memory := byPath(mfs[promScriptMemory])
	lastUsed := byPath(mfs[promScriptLastUsed])
	seen := make(map[string]struct{})
	for _, m := range mfs[promScriptHits].GetMetric() {
		path := labelValue(m, promPathLabel)
		if path == "" {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		st.Scripts = append(st.Scripts, lister.Record{
			Path:              path,
			Hits:              int64(metricValue(m)),
			MemoryConsumption: int64(memory[path]),
			LastUsedTimestamp: int64(lastUsed[path]),
		})
	}
	return st
}

// byPath indexes a per-script family by its path label.
func byPath(mf *dto.MetricFamily) map[string]float64 {
	out := make(map[string]float64, len(mf.GetMetric()))
	for _, m := range mf.GetMetric() {
		if path := labelValue(m, promPathLabel); path != "" {
			out[path] = metricValue(m)
		}
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// sumFamily adds up all counter, gauge, or untyped values in a MetricFamily.
// Returns 0 if mf is nil (metric not present in the scrape).
func sumFamily(mf *dto.MetricFamily) float64 {
	var total float64
	for _, m := range mf.GetMetric() {
		total += metricValue(m)
	}
	return total
}

func metricValue(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	}
	return 0
}
