// Package notify sends publication events to the external webhook.
//
// Delivery is best effort: one POST per event, success only on HTTP 200,
// no retry and no queueing.  Each attempt is also published to the broker
// for auditing when a publisher is configured.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/importfull/inventory-api/internal/config"
	"github.com/importfull/inventory-api/internal/metrics"
	"github.com/importfull/inventory-api/internal/queue"
)

// Event types understood by the webhook receiver.
const (
	EventPublish = "publish"
	EventPause   = "pause"
	EventUpdate  = "update"
)

const rateBurst = 5

// auditTimeout bounds the broker publish that follows each webhook call.
const auditTimeout = 3 * time.Second

// Payload is the JSON body of a webhook call.
type Payload struct {
	EventType string `json:"event_type"`
	ItemID    int64  `json:"item_id"`
	Secret    string `json:"secret"`
}

// EventPublisher records webhook attempts on the message broker.
type EventPublisher interface {
	PublishCatalogEvent(ctx context.Context, ev queue.CatalogEvent) error
}

// Dispatcher posts events to the configured webhook URL.
type Dispatcher struct {
	url       string
	secret    string
	client    *http.Client
	limiter   *rate.Limiter
	publisher EventPublisher
	audit     time.Duration
	log       *zap.Logger
}

// NewDispatcher builds a dispatcher.  publisher may be nil.
func NewDispatcher(cfg config.WebhookConfig, publisher EventPublisher, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	return &Dispatcher{
		url:       cfg.URL,
		secret:    cfg.Secret,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, rateBurst),
		publisher: publisher,
		audit:     auditTimeout,
		log:       log.Named("webhook"),
	}
}

// Notify sends one event and reports whether the receiver answered 200.
// Failures are logged, never returned.
func (d *Dispatcher) Notify(ctx context.Context, productID int64, eventType string) bool {
	err := d.send(ctx, productID, eventType)
	delivered := err == nil

	result := "delivered"
	if !delivered {
		result = "failed"
		d.log.Warn("webhook not delivered",
			zap.Int64("item_id", productID), zap.String("event_type", eventType), zap.Error(err))
	} else {
		d.log.Info("webhook delivered", zap.Int64("item_id", productID), zap.String("event_type", eventType))
	}
	metrics.WebhookDeliveries.WithLabelValues(eventType, result).Inc()

	if d.publisher != nil {
		ev := queue.CatalogEvent{
			ProductID: productID,
			EventType: eventType,
			Delivered: delivered,
			SentAt:    time.Now().UTC().Format(time.RFC3339),
		}
		// Audit only; a broker outage must not change the outcome.
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.audit)
		_ = d.publisher.PublishCatalogEvent(actx, ev)
		cancel()
	}
	return delivered
}

func (d *Dispatcher) send(ctx context.Context, productID int64, eventType string) error {
	if d.url == "" {
		return fmt.Errorf("webhook url is not configured")
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(Payload{EventType: eventType, ItemID: productID, Secret: d.secret})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
