package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/preloadkit/preloader/internal/config"
	"github.com/preloadkit/preloader/internal/script"
)

const defaultTimeout = 10 * time.Second

// Event summarizes one written script.
type Event struct {
	Output      string    `json:"output"`
	Files       int       `json:"files"`
	Excluded    int       `json:"excluded"`
	Appended    int       `json:"appended"`
	MemoryLimit string    `json:"memory_limit"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Notifier delivers Events to the configured webhooks.
type Notifier struct {
	webhooks []config.WebhookConfig
	client   *http.Client
}

// New returns a Notifier for cfg. A Notifier without webhooks is valid and
// Send becomes a no-op.
func New(cfg config.NotifyConfig) *Notifier {
	return &Notifier{
		webhooks: cfg.Webhooks,
		client:   &http.Client{Timeout: defaultTimeout},
	}
}

// NewEvent builds the Event for a script at output listing files paths.
func NewEvent(output string, files, excluded, appended int, memoryLimitMB float64, at time.Time) Event {
	return Event{
		Output:      output,
		Files:       files,
		Excluded:    excluded,
		Appended:    appended,
		MemoryLimit: script.MemoryLimit(memoryLimitMB),
		GeneratedAt: at,
	}
}

// Send delivers ev to every webhook whose URL resolves. It returns the
// number of successful deliveries.
func (n *Notifier) Send(ctx context.Context, ev Event) int {
	delivered := 0
	for _, wh := range n.webhooks {
		url := wh.URL()
		if url == "" {
			slog.Debug("notify: webhook url not set, skipping", "type", wh.Type, "url_env", wh.URLEnv)
			continue
		}

		body, err := payload(wh.Type, ev)
		if err != nil {
			slog.Warn("notify: skipping webhook", "type", wh.Type, "err", err)
			continue
		}
		if err := n.post(ctx, url, body); err != nil {
			slog.Error("notify: webhook delivery failed", "type", wh.Type, "err", err)
			continue
		}
		slog.Debug("notify: webhook delivered", "type", wh.Type, "output", ev.Output)
		delivered++
	}
	return delivered
}

func payload(kind string, ev Event) ([]byte, error) {
	switch kind {
	case "slack":
		return json.Marshal(map[string]string{"text": "*preloader* " + summary(ev)})
	case "teams":
		return json.Marshal(map[string]any{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"themeColor": "00D4FF",
			"summary":    "Preload script written",
			"title":      "Preload script written: " + ev.Output,
			"text":       summary(ev),
		})
	case "http":
		return json.Marshal(map[string]any{"event": ev})
	default:
		return nil, fmt.Errorf("unknown webhook type %q", kind)
	}
}

func summary(ev Event) string {
	return fmt.Sprintf("wrote %s: %d files (%d excluded, %d appended, memory limit %s)",
		ev.Output, ev.Files, ev.Excluded, ev.Appended, ev.MemoryLimit)
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
