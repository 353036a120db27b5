// Package condition decides whether a generate run should write a script.
//
// A Condition is evaluated once per run. A false result is not an error: the
// run reports that it did not happen and leaves any existing script alone.
package condition

import (
	"math/rand/v2"

	"github.com/preloadkit/preloader/internal/config"
)

// Condition reports whether a run should proceed.
type Condition func() bool

// Always runs every time.
func Always() Condition { return func() bool { return true } }

// Never skips every run.
func Never() Condition { return func() bool { return false } }

// When runs when ok is true.
func When(ok bool) Condition { return func() bool { return ok } }

// OneIn runs roughly once every chances invocations: a number is drawn from
// [1, chances] and the run happens when it lands on the middle value,
// ceil(chances/2). draw returns a value in [0, n); nil uses math/rand/v2.
// chances <= 1 always runs.
func OneIn(chances int, draw func(n int) int) Condition {
	if draw == nil {
		draw = rand.IntN
	}
	return func() bool {
		if chances <= 1 {
			return true
		}
		return draw(chances)+1 == (chances+1)/2
	}
}

// WhenHits runs while the cache has served fewer than threshold hits, so the
// list keeps being regenerated until the cache has warmed up.
func WhenHits(threshold int64, hits func() int64) Condition {
	return func() bool {
		return threshold > hits()
	}
}

// FromConfig builds the configured Condition. hits supplies the current
// cache hit count for mode "hits".
func FromConfig(cfg config.ConditionConfig, hits func() int64) Condition {
	switch cfg.Mode {
	case "never":
		return Never()
	case "one_in":
		return OneIn(cfg.Chances, nil)
	case "hits":
		return WhenHits(cfg.Hits, hits)
	default:
		return Always()
	}
}
