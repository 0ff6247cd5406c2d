// Package webhook posts a summary of each purge run to an HTTP endpoint,
// e.g. a chat-ops relay or an incident timeline.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/aciclean/internal/version"
	"github.com/HerbHall/aciclean/pkg/models"
)

// EventRunFinished is the only event sent today.
const EventRunFinished = "purge.run_finished"

// Config holds the notifier settings.
type Config struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Notifier delivers run summaries. A Notifier with an empty URL drops
// everything.
type Notifier struct {
	logger *zap.Logger
	cfg    Config
	client *http.Client
}

// New creates a Notifier.
func New(cfg Config, logger *zap.Logger) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		logger: logger,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Payload is the JSON body posted to the webhook URL.
type Payload struct {
	Event     string           `json:"event"`
	Source    string           `json:"source"`
	Timestamp string           `json:"timestamp"`
	Status    models.RunStatus `json:"status"`
	RunID     string           `json:"run_id,omitempty"`
	EPG       models.DN        `json:"epg,omitempty"`
	Deleted   int              `json:"deleted"`
	Failed    int              `json:"failed"`
	Error     string           `json:"error,omitempty"`
}

// NewPayload summarises a run. r may be nil when login failed.
func NewPayload(r *models.PurgeReport, runErr error, now time.Time) Payload {
	p := Payload{
		Event:     EventRunFinished,
		Source:    "aciclean",
		Timestamp: now.UTC().Format(time.RFC3339),
		Status:    models.ClassifyRun(r, runErr),
	}
	if r != nil {
		p.RunID = r.RunID
		p.EPG = r.EPGDN
		p.Deleted = len(r.Succeeded)
		p.Failed = len(r.Failed)
	}
	if runErr != nil {
		p.Error = runErr.Error()
	}
	return p
}

// NotifyRun posts the run summary. Delivery problems are returned but never
// change the outcome of the run.
func (n *Notifier) NotifyRun(ctx context.Context, r *models.PurgeReport, runErr error) error {
	if n.cfg.URL == "" {
		return nil
	}
	body, err := json.Marshal(NewPayload(r, runErr, time.Now()))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	return n.send(ctx, body)
}

func (n *Notifier) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}

	n.logger.Debug("webhook delivered",
		zap.String("event", EventRunFinished),
		zap.Int("status_code", resp.StatusCode),
	)
	return nil
}
