// Package preloader runs one end-to-end build: it checks preconditions,
// reads the opcache status once, expands the exclude/append specs, builds
// the list, renders the script and writes it atomically.
//
// Options are plain values. A Generator holds no per-build state, so the
// same Generator can serve any number of builds with different Options.
package preloader
