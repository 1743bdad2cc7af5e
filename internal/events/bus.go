package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	dbgen "github.com/noah-isme/pricing-engine/internal/db/gen"
)

// EventStore defines the persistence operations required by the event bus.
type EventStore interface {
	InsertDomainEvent(ctx context.Context, arg dbgen.InsertDomainEventParams) (dbgen.DomainEvent, error)
}

// Notifier reacts to emitted events (cache invalidation, background tasks).
type Notifier interface {
	Notify(ctx context.Context, event dbgen.DomainEvent) error
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(ctx context.Context, event dbgen.DomainEvent) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, event dbgen.DomainEvent) error {
	return f(ctx, event)
}

// Bus persists domain events and fans them out to downstream handlers.
type Bus struct {
	Store     EventStore
	Notifiers []Notifier
}

// Emit records the event and dispatches it to all configured handlers.
// Notifier failures are joined into the returned error after the event has
// been persisted, so callers may treat them as non-fatal.
func (b *Bus) Emit(ctx context.Context, topic, aggregateID string, payload any) (dbgen.DomainEvent, error) {
	if b == nil || b.Store == nil {
		return dbgen.DomainEvent{}, errors.New("events: store not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return dbgen.DomainEvent{}, errors.New("events: topic is required")
	}
	if strings.TrimSpace(aggregateID) == "" {
		return dbgen.DomainEvent{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return dbgen.DomainEvent{}, fmt.Errorf("events: encode payload: %w", err)
	}
	ev, err := b.Store.InsertDomainEvent(ctx, dbgen.InsertDomainEventParams{
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     encoded,
	})
	if err != nil {
		return dbgen.DomainEvent{}, fmt.Errorf("events: persist event: %w", err)
	}
	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if notifyErr := notifier.Notify(ctx, ev); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", notifyErr))
		}
	}
	return ev, joined
}

// Publish emits the event and logs failures instead of returning them. Write
// paths use it once their own change is committed.
func (b *Bus) Publish(ctx context.Context, logger zerolog.Logger, topic, aggregateID string, payload any) {
	if b == nil {
		return
	}
	if _, err := b.Emit(ctx, topic, aggregateID, payload); err != nil {
		logger.Warn().Err(err).Str("topic", topic).Str("aggregate_id", aggregateID).Msg("emit domain event")
	}
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	switch v := payload.(type) {
	case []byte:
		return rawJSON(v)
	case json.RawMessage:
		return rawJSON(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return []byte("{}"), nil
		}
		return rawJSON([]byte(v))
	default:
		return json.Marshal(v)
	}
}

func rawJSON(v []byte) ([]byte, error) {
	if len(v) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(v) {
		return nil, errors.New("payload is not valid json")
	}
	return append([]byte(nil), v...), nil
}

// Decode unmarshals the event payload into dst.
func Decode(event dbgen.DomainEvent, dst any) error {
	if len(event.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(event.Payload, dst)
}
