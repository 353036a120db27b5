package status

import (
	"context"
	"fmt"
	"os"
)

type fileProvider struct {
	path string
}

// Fetch reads a JSON dump of opcache_get_status(true), for example one
// written by `php -r 'echo json_encode(opcache_get_status(true));'` inside
// the serving process.
func (p *fileProvider) Fetch(ctx context.Context) (*Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("status: file: read %q: %w", p.path, err)
	}
	st, err := decodeStatus(data)
	if err != nil {
		return nil, fmt.Errorf("status: file %q: %w", p.path, err)
	}
	return st, nil
}
