package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/zsprackett/cursor-usage/internal/config"
	"github.com/zsprackett/cursor-usage/internal/usage"
)

// Notifier posts to a webhook and/or ntfy when usage crosses the configured
// threshold. It fires once per upward crossing.
type Notifier struct {
	cfg    config.NotificationsConfig
	client *http.Client
	logger *slog.Logger

	mu    sync.Mutex
	above bool
}

// New returns a Notifier with the given config.
func New(cfg config.NotificationsConfig, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

// Observe inspects a published snapshot. Failed and pending snapshots do not
// change the crossing state.
func (n *Notifier) Observe(s usage.Snapshot) {
	if !n.cfg.Enabled || s.Failed() || s.Pending() {
		return
	}
	n.mu.Lock()
	wasAbove := n.above
	n.above = s.Percentage >= n.cfg.Threshold
	crossed := n.above && !wasAbove
	n.mu.Unlock()
	if !crossed {
		return
	}

	n.logger.Info("notify: usage threshold crossed", "percentage", s.Percentage, "threshold", n.cfg.Threshold)
	if n.cfg.Webhook != "" {
		n.sendWebhook(s)
	}
	if n.cfg.NtfyURL != "" {
		n.sendNtfy(s)
	}
}

type webhookPayload struct {
	Used       int     `json:"used"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Threshold  float64 `json:"threshold"`
	Email      string  `json:"email,omitempty"`
	Timestamp  string  `json:"timestamp"`
}

func (n *Notifier) sendWebhook(s usage.Snapshot) {
	n.post("webhook", n.cfg.Webhook, webhookPayload{
		Used:       s.Used,
		Total:      s.Total,
		Percentage: s.Percentage,
		Threshold:  n.cfg.Threshold,
		Email:      s.Email,
		Timestamp:  s.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

type ntfyPayload struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Priority int      `json:"priority"`
	Tags     []string `json:"tags"`
}

func (n *Notifier) sendNtfy(s usage.Snapshot) {
	n.post("ntfy", n.cfg.NtfyURL, ntfyPayload{
		Title: fmt.Sprintf("Cursor GPT-4 usage at %.1f%%", s.Percentage),
		Message: fmt.Sprintf("%s of %s requests used, %s remaining",
			humanize.Comma(int64(s.Used)), humanize.Comma(int64(s.Total)), humanize.Comma(int64(s.Remaining()))),
		Priority: 4,
		Tags:     []string{"warning"},
	})
}

func (n *Notifier) post(kind, url string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		n.logger.Warn("notify: marshal failed", "kind", kind, "err", err)
		return
	}
	resp, err := n.client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		n.logger.Warn("notify: "+kind+" POST failed", "url", url, "err", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Warn("notify: "+kind+" rejected", "url", url, "status", resp.StatusCode)
	}
}
