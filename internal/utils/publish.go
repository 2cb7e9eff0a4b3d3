package utils

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const WashEventsChannel = "wash_events"

// WashEventPayload — событие для notification-сервиса (канал wash_events).
type WashEventPayload struct {
	UserID    string            `json:"user_id"`
	Role      string            `json:"role"`
	EventType string            `json:"event_type"`
	ExtraData map[string]string `json:"extra_data,omitempty"`
}

// EventBus публикует доменные события в Redis pub/sub.
type EventBus struct {
	rdb *redis.Client
}

func NewEventBus(rdb *redis.Client) *EventBus {
	return &EventBus{rdb: rdb}
}

func (b *EventBus) PublishWashEvent(ctx context.Context, customerID, eventType string, extra map[string]string) error {
	payload := WashEventPayload{
		UserID:    customerID,
		Role:      "client",
		EventType: eventType,
		ExtraData: extra,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, WashEventsChannel, data).Err()
}
