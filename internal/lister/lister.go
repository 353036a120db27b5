package lister

import "sort"

// Sentinel is the placeholder key opcache reports for its own preload state.
// It is not a file and never appears in a preload list.
const Sentinel = "$PRELOAD$"

// Record is the usage reported by opcache for one cached script.
type Record struct {
	// Path is the absolute script path as reported by the runtime.
	Path string

	// Hits is how many times the cached compiled form was reused.
	Hits int64

	// MemoryConsumption is the number of bytes the script occupies in the cache.
	MemoryConsumption int64

	// LastUsedTimestamp is the last access time in Unix seconds.
	LastUsedTimestamp int64
}

// Snapshot is one read of the cache's per-script statistics, in the order the
// runtime reported them. Ranking ties fall back to this order.
type Snapshot []Record

// Input holds everything Build needs for one list.
type Input struct {
	Snapshot Snapshot

	// Excluded paths are removed from the snapshot by exact string match.
	Excluded []string

	// Appended paths are added after truncation, in order, and never count
	// against MemoryLimit.
	Appended []string

	// MemoryLimit is the cumulative memory ceiling in bytes. 0 disables it.
	MemoryLimit int64

	// SelfExclude removes InternalPaths from the snapshot as well.
	SelfExclude bool

	// InternalPaths are the tool's own files, used when SelfExclude is set.
	InternalPaths []string
}

// Build returns the ordered, de-duplicated preload list for in.
func Build(in Input) []string {
	candidates := exclude(WithoutSentinel(in.Snapshot), excludedSet(in))
	ranked := Truncate(Rank(candidates), in.MemoryLimit)

	out := make([]string, 0, len(ranked)+len(in.Appended))
	for _, r := range ranked {
		out = append(out, r.Path)
	}
	out = append(out, in.Appended...)
	return dedupe(out)
}

// Rank returns a copy of s sorted by hits, then last-used timestamp, both
// descending. Entries equal on both keys keep their snapshot order.
func Rank(s Snapshot) Snapshot {
	ranked := make(Snapshot, len(s))
	copy(ranked, s)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Hits != b.Hits {
			return a.Hits > b.Hits
		}
		return a.LastUsedTimestamp > b.LastUsedTimestamp
	})
	return ranked
}

// Truncate returns the longest prefix of ranked whose cumulative memory
// consumption does not exceed limit. The entry that overflows the limit is
// dropped together with everything after it; the scan never skips ahead to
// find smaller entries that would still fit.
func Truncate(ranked Snapshot, limit int64) Snapshot {
	if limit == 0 {
		return ranked
	}
	if limit < 0 {
		return Snapshot{}
	}

	var cumulative int64
	for i, r := range ranked {
		cumulative += r.MemoryConsumption
		if cumulative > limit {
			return ranked[:i]
		}
	}
	return ranked
}

// MemoryOf sums the memory consumption of every record in s.
func MemoryOf(s Snapshot) int64 {
	var total int64
	for _, r := range s {
		total += r.MemoryConsumption
	}
	return total
}

// WithoutSentinel returns a copy of s without the Sentinel placeholder.
func WithoutSentinel(s Snapshot) Snapshot {
	out := make(Snapshot, 0, len(s))
	for _, r := range s {
		if r.Path == Sentinel {
			continue
		}
		out = append(out, r)
	}
	return out
}

func excludedSet(in Input) map[string]struct{} {
	set := make(map[string]struct{}, len(in.Excluded)+len(in.InternalPaths))
	for _, p := range in.Excluded {
		set[p] = struct{}{}
	}
	if in.SelfExclude {
		for _, p := range in.InternalPaths {
			set[p] = struct{}{}
		}
	}
	return set
}

func exclude(s Snapshot, excluded map[string]struct{}) Snapshot {
	if len(excluded) == 0 {
		return s
	}
	out := make(Snapshot, 0, len(s))
	for _, r := range s {
		if _, skip := excluded[r.Path]; skip {
			continue
		}
		out = append(out, r)
	}
	return out
}

// dedupe removes repeated paths in place, keeping the first occurrence.
func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
