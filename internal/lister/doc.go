// Package lister builds the ordered preload list from an opcache snapshot.
//
// lister.go provides the pure Build(Input) function. Its steps run in a fixed
// order and each one depends on the previous:
//
//  1. drop the "$PRELOAD$" placeholder the runtime reports for itself
//  2. remove excluded paths (and the tool's own files when SelfExclude is set)
//  3. rank by hits, then last-used timestamp, both descending (stable)
//  4. keep the longest ranked prefix whose cumulative memory fits the limit
//  5. append the caller's extra paths, exempt from the limit
//  6. de-duplicate, keeping the first occurrence
//
// Build never mutates its input and never fails. A zero MemoryLimit disables
// truncation; a negative one lets no ranked entry through.
package lister
