// Package status reads the opcache status the list engine ranks.
//
// A Provider returns one immutable *Status per Fetch: the enabled flag,
// aggregate memory and hit statistics, and the per-script usage records in
// the order the runtime reported them.
//
// Implemented providers: a JSON dump of opcache_get_status(true) on disk
// (file.go), the same JSON served over HTTP (http.go), and a Prometheus text
// exposition from an opcache exporter (prometheus.go). Factory:
// New(config.Source) returns the correct Provider. Static wraps an in-memory
// Status and Memo caches the first successful Fetch for the length of a build.
//
// Authentication (mTLS, API key, bearer token, basic) is handled by the shared
// authRoundTripper in base.go. CheckCert reports on the TLS certificate of an
// HTTPS status endpoint.
package status
