package status

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/preloadkit/preloader/internal/config"
)

type httpProvider struct {
	src    config.Source
	client *http.Client
}

// Fetch GETs the opcache_get_status(true) JSON from the configured endpoint,
// typically a small status script served by the same PHP-FPM pool whose
// cache is being measured.
func (p *httpProvider) Fetch(ctx context.Context) (*Status, error) {
	body, err := get(ctx, p.client, p.src.Endpoint, "application/json")
	if err != nil {
		slog.Warn("status: http fetch failed", "endpoint", p.src.Endpoint, "err", err)
		return nil, fmt.Errorf("status: http %q: %w", p.src.Endpoint, err)
	}
	st, err := decodeStatus(body)
	if err != nil {
		return nil, fmt.Errorf("status: http %q: %w", p.src.Endpoint, err)
	}
	slog.Debug("status: fetched", "endpoint", p.src.Endpoint, "scripts", len(st.Scripts))
	return st, nil
}
