package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nimasrn/lead-crm/internal/model"
	"github.com/nimasrn/lead-crm/pkg/logger"
	"github.com/nimasrn/lead-crm/pkg/redis"
)

type PublisherConfig struct {
	Stream string
	// MaxLen caps the stream (approximately). Zero keeps every entry.
	MaxLen int64
}

func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		Stream: "crm:lead-events",
		MaxLen: 10000,
	}
}

// Publisher appends lead lifecycle events to a redis stream.
type Publisher struct {
	adapter redis.RedisAdapter
	config  PublisherConfig
}

// Record is one stream entry read back from the event stream.
type Record struct {
	ID    string
	Event model.LeadEvent
}

func NewPublisher(adapter redis.RedisAdapter, config PublisherConfig) (*Publisher, error) {
	if config.Stream == "" {
		return nil, fmt.Errorf("event stream name is required")
	}
	return &Publisher{
		adapter: adapter,
		config:  config,
	}, nil
}

// Publish adds the event to the stream
func (p *Publisher) Publish(ctx context.Context, event model.LeadEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	values := map[string]interface{}{
		"type":        string(event.Type),
		"lead_id":     event.LeadID,
		"occurred_at": event.OccurredAt.Format(time.RFC3339Nano),
		"payload":     string(payload),
	}

	id, err := p.adapter.XAdd(ctx, p.config.Stream, p.config.MaxLen, values)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	logger.Debug("[events] published", "id", id, "type", event.Type, "lead_id", event.LeadID)
	return nil
}

// Events reads entries between start and stop ("-" and "+" for the whole stream).
func (p *Publisher) Events(ctx context.Context, start, stop string) ([]Record, error) {
	msgs, err := p.adapter.XRange(ctx, p.config.Stream, start, stop)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	records := make([]Record, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["payload"].(string)
		if !ok {
			logger.Warn("[events] entry without payload", "id", msg.ID)
			continue
		}
		var ev model.LeadEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			logger.Warn("[events] unreadable entry", "id", msg.ID, "error", err)
			continue
		}
		records = append(records, Record{ID: msg.ID, Event: ev})
	}
	return records, nil
}

func (p *Publisher) Len(ctx context.Context) (int64, error) {
	return p.adapter.XLen(ctx, p.config.Stream)
}
