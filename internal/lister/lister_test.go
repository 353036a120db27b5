package lister

import (
	"fmt"
	"reflect"
	"testing"
)

// fixture mirrors a small opcache scripts table: two hit ties, one broken by
// timestamp (bar/quz) and one left to snapshot order (qux/baz).
func fixture() Snapshot {
	return Snapshot{
		{Path: "foo", Hits: 10, MemoryConsumption: 1, LastUsedTimestamp: 1400000000},
		{Path: "bar", Hits: 20, MemoryConsumption: 3, LastUsedTimestamp: 1400000002},
		{Path: "quz", Hits: 20, MemoryConsumption: 5, LastUsedTimestamp: 1400000001},
		{Path: "qux", Hits: 5, MemoryConsumption: 5, LastUsedTimestamp: 1400000010},
		{Path: "baz", Hits: 5, MemoryConsumption: 6, LastUsedTimestamp: 1400000010},
	}
}

func assertList(t *testing.T, got, want []string) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("list = %v, want %v", got, want)
	}
}

func TestBuild_Examples(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want []string
	}{
		{
			name: "no limit ranks everything",
			in:   Input{Snapshot: fixture()},
			want: []string{"bar", "quz", "foo", "qux", "baz"},
		},
		{
			name: "limit stops at first overflow",
			in:   Input{Snapshot: fixture(), MemoryLimit: 10},
			want: []string{"bar", "quz", "foo"},
		},
		{
			name: "exclude without limit",
			in:   Input{Snapshot: fixture(), Excluded: []string{"quz"}},
			want: []string{"bar", "foo", "qux", "baz"},
		},
		{
			name: "exclude frees budget for later entries",
			in:   Input{Snapshot: fixture(), Excluded: []string{"quz"}, MemoryLimit: 10},
			want: []string{"bar", "foo", "qux"},
		},
		{
			name: "appended entries ignore the limit",
			in:   Input{Snapshot: fixture(), Appended: []string{"extra1", "extra2"}, MemoryLimit: 10},
			want: []string{"bar", "quz", "foo", "extra1", "extra2"},
		},
		{
			name: "exclude and append",
			in:   Input{Snapshot: fixture(), Excluded: []string{"quz"}, Appended: []string{"test_a"}, MemoryLimit: 10},
			want: []string{"bar", "foo", "qux", "test_a"},
		},
		{
			name: "empty input",
			in:   Input{},
			want: []string{},
		},
		{
			name: "only appended",
			in:   Input{Appended: []string{"a", "b", "a"}},
			want: []string{"a", "b"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertList(t, Build(tc.in), tc.want)
		})
	}
}

func TestBuild_FiltersSentinel(t *testing.T) {
	snap := append(Snapshot{{Path: Sentinel, Hits: 1 << 40, MemoryConsumption: 0, LastUsedTimestamp: 1 << 40}}, fixture()...)

	inputs := []Input{
		{Snapshot: snap},
		{Snapshot: snap, MemoryLimit: 10},
		{Snapshot: snap, Excluded: []string{"foo"}},
		{Snapshot: snap, Appended: []string{"extra"}},
		{Snapshot: snap, SelfExclude: true, InternalPaths: []string{"bar"}},
	}
	for i, in := range inputs {
		for _, p := range Build(in) {
			if p == Sentinel {
				t.Errorf("input %d: result contains sentinel %q", i, Sentinel)
			}
		}
	}
}

func TestBuild_SelfExclude(t *testing.T) {
	internal := []string{"/opt/preloader/a.php", "/opt/preloader/b.php"}
	snap := append(fixture(),
		Record{Path: internal[0], Hits: 100, MemoryConsumption: 1},
		Record{Path: internal[1], Hits: 100, MemoryConsumption: 1},
	)

	got := Build(Input{Snapshot: snap, SelfExclude: true, InternalPaths: internal})
	assertList(t, got, []string{"bar", "quz", "foo", "qux", "baz"})

	got = Build(Input{Snapshot: snap, SelfExclude: false, InternalPaths: internal})
	assertList(t, got, []string{internal[0], internal[1], "bar", "quz", "foo", "qux", "baz"})
}

func TestBuild_ExcludeMissingPathIsNoop(t *testing.T) {
	base := Build(Input{Snapshot: fixture(), MemoryLimit: 10})
	with := Build(Input{Snapshot: fixture(), MemoryLimit: 10, Excluded: []string{"not-cached"}})
	assertList(t, with, base)
}

func TestBuild_DedupeKeepsRankedPosition(t *testing.T) {
	got := Build(Input{Snapshot: fixture(), Appended: []string{"foo", "new", "bar"}})
	assertList(t, got, []string{"bar", "quz", "foo", "qux", "baz", "new"})
}

func TestBuild_AppendedAlwaysPresent(t *testing.T) {
	for _, limit := range []int64{-1, 0, 1, 3, 10, 1000} {
		got := Build(Input{Snapshot: fixture(), MemoryLimit: limit, Appended: []string{"huge.php"}})
		if len(got) == 0 || got[len(got)-1] != "huge.php" {
			t.Errorf("limit %d: appended path missing from %v", limit, got)
		}
	}
}

func TestBuild_NegativeLimitKeepsNoRankedEntries(t *testing.T) {
	assertList(t, Build(Input{Snapshot: fixture(), MemoryLimit: -5}), []string{})
	assertList(t, Build(Input{Snapshot: fixture(), MemoryLimit: -5, Appended: []string{"x"}}), []string{"x"})
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	snap := fixture()
	appended := []string{"foo", "extra"}
	Build(Input{Snapshot: snap, Appended: appended, MemoryLimit: 10})

	if !reflect.DeepEqual(snap, fixture()) {
		t.Errorf("snapshot mutated: %v", snap)
	}
	if !reflect.DeepEqual(appended, []string{"foo", "extra"}) {
		t.Errorf("appended mutated: %v", appended)
	}
}

func TestRank_StableAndDescending(t *testing.T) {
	var snap Snapshot
	for i := 0; i < 50; i++ {
		snap = append(snap, Record{
			Path:              fmt.Sprintf("f%02d", i),
			Hits:              int64(i % 4),
			LastUsedTimestamp: int64(i % 3),
		})
	}

	first := Rank(snap)
	second := Rank(first)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("ranking is not idempotent")
	}

	pos := make(map[string]int, len(snap))
	for i, r := range snap {
		pos[r.Path] = i
	}
	for i := 1; i < len(first); i++ {
		a, b := first[i-1], first[i]
		switch {
		case a.Hits > b.Hits:
		case a.Hits == b.Hits && a.LastUsedTimestamp > b.LastUsedTimestamp:
		case a.Hits == b.Hits && a.LastUsedTimestamp == b.LastUsedTimestamp:
			if pos[a.Path] > pos[b.Path] {
				t.Errorf("tie %s/%s lost snapshot order", a.Path, b.Path)
			}
		default:
			t.Errorf("out of order at %d: %+v before %+v", i, a, b)
		}
	}
}

func TestTruncate_ZeroIsIdentity(t *testing.T) {
	ranked := Rank(fixture())
	if got := Truncate(ranked, 0); !reflect.DeepEqual(got, ranked) {
		t.Errorf("Truncate(0) = %v, want %v", got, ranked)
	}
}

func TestTruncate_Monotonic(t *testing.T) {
	ranked := Rank(fixture())
	prev := 0
	for limit := int64(1); limit <= MemoryOf(ranked)+1; limit++ {
		n := len(Truncate(ranked, limit))
		if n < prev {
			t.Fatalf("limit %d kept %d entries, fewer than %d at a smaller limit", limit, n, prev)
		}
		prev = n
	}
	if prev != len(ranked) {
		t.Errorf("limit above total memory kept %d entries, want %d", prev, len(ranked))
	}
}

func TestTruncate_ExactFitIsKept(t *testing.T) {
	ranked := Rank(fixture())
	// bar(3) + quz(5) + foo(1) = 9
	got := Truncate(ranked, 9)
	if len(got) != 3 {
		t.Errorf("Truncate(9) kept %d entries, want 3", len(got))
	}
}

func TestMemoryOf(t *testing.T) {
	if got := MemoryOf(fixture()); got != 20 {
		t.Errorf("MemoryOf = %d, want 20", got)
	}
}
