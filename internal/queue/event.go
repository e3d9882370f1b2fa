// Package queue defines message payloads exchanged over the message broker.
package queue

// CatalogEventsQueue is the durable queue catalog events are published to.
const CatalogEventsQueue = "catalog.events"

// CatalogEvent is published after every outbound publication webhook.  It
// records what was attempted and whether the receiver accepted it, so
// downstream consumers can audit deliveries without the webhook target.
type CatalogEvent struct {
	ProductID int64  `json:"product_id"`
	EventType string `json:"event_type"` // publish | pause | update
	Delivered bool   `json:"delivered"`
	SentAt    string `json:"sent_at"` // RFC 3339, UTC
}
