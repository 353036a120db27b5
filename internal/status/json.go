package status

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/preloadkit/preloader/internal/lister"
)

// statusJSON mirrors the subset of opcache_get_status(true) this tool reads.
type statusJSON struct {
	Enabled bool `json:"opcache_enabled"`
	Memory  struct {
		Used   int64 `json:"used_memory"`
		Free   int64 `json:"free_memory"`
		Wasted int64 `json:"wasted_memory"`
	} `json:"memory_usage"`
	Statistics struct {
		CachedScripts int64   `json:"num_cached_scripts"`
		Hits          int64   `json:"hits"`
		Misses        int64   `json:"misses"`
		HitRate       float64 `json:"opcache_hit_rate"`
	} `json:"opcache_statistics"`
	Scripts scriptsJSON `json:"scripts"`
}

type scriptJSON struct {
	Hits              int64 `json:"hits"`
	MemoryConsumption int64 `json:"memory_consumption"`
	LastUsedTimestamp int64 `json:"last_used_timestamp"`
}

// scriptsJSON decodes the "scripts" object keeping its key order, which a
// plain map would lose.
type scriptsJSON lister.Snapshot

func (s *scriptsJSON) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch tok {
	case nil:
		*s = nil
		return nil
	case json.Delim('['):
		// PHP's json_encode turns an empty array into [].
		if dec.More() {
			return fmt.Errorf("scripts: expected an object, got a non-empty array")
		}
		*s = nil
		return nil
	case json.Delim('{'):
	default:
		return fmt.Errorf("scripts: unexpected token %v", tok)
	}

	var out lister.Snapshot
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		path, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("scripts: unexpected key %v", keyTok)
		}
		var sj scriptJSON
		if err := dec.Decode(&sj); err != nil {
			return fmt.Errorf("scripts[%q]: %w", path, err)
		}
		out = append(out, lister.Record{
			Path:              path,
			Hits:              sj.Hits,
			MemoryConsumption: sj.MemoryConsumption,
			LastUsedTimestamp: sj.LastUsedTimestamp,
		})
	}
	*s = scriptsJSON(out)
	return nil
}

// decodeStatus parses an opcache_get_status(true) JSON document.
// A bare false, which PHP returns when opcache is not loaded, decodes to a
// disabled Status.
func decodeStatus(data []byte) (*Status, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("false")) || bytes.Equal(trimmed, []byte("null")) {
		return &Status{}, nil
	}

	var raw statusJSON
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return &Status{
		Enabled: raw.Enabled,
		Memory: MemoryUsage{
			Used:   raw.Memory.Used,
			Free:   raw.Memory.Free,
			Wasted: raw.Memory.Wasted,
		},
		Statistics: Statistics{
			CachedScripts: raw.Statistics.CachedScripts,
			Hits:          raw.Statistics.Hits,
			Misses:        raw.Statistics.Misses,
			HitRate:       raw.Statistics.HitRate,
		},
		Scripts: lister.Snapshot(raw.Scripts),
	}, nil
}
