package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	dbgen "github.com/noah-isme/pricing-engine/internal/db/gen"
	"github.com/noah-isme/pricing-engine/internal/events"
)

// Task types consumed by the worker.
const (
	TypeRulesChanged = "pricing:rules_changed"
	TypeBaseChanged  = "pricing:base_changed"
)

const (
	defaultQueue    = "pricing"
	defaultMaxRetry = 5
	defaultTimeout  = 30 * time.Second
)

// TypeForTopic maps a domain event topic onto the task that reacts to it.
// Topics without background work map to "".
func TypeForTopic(topic string) string {
	switch topic {
	case events.TopicProfileRulesChanged, events.TopicProfileDeleted:
		return TypeRulesChanged
	case events.TopicBasePriceUpdated:
		return TypeBaseChanged
	default:
		return ""
	}
}

// Enqueuer is the subset of *asynq.Client used to publish tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier forwards domain events to the task queue. It satisfies
// events.Notifier.
type Notifier struct {
	Client   Enqueuer
	Queue    string
	MaxRetry int
}

// Notify enqueues the task for ev. Events are enqueued at most once per id.
func (n Notifier) Notify(ctx context.Context, ev dbgen.DomainEvent) error {
	if n.Client == nil {
		return nil
	}
	typ := TypeForTopic(ev.Topic)
	if typ == "" {
		return nil
	}
	queue := n.Queue
	if queue == "" {
		queue = defaultQueue
	}
	retry := n.MaxRetry
	if retry <= 0 {
		retry = defaultMaxRetry
	}
	opts := []asynq.Option{asynq.Queue(queue), asynq.MaxRetry(retry), asynq.Timeout(defaultTimeout)}
	if ev.ID.Valid {
		opts = append(opts, asynq.TaskID(uuid.UUID(ev.ID.Bytes).String()))
	}
	_, err := n.Client.EnqueueContext(ctx, asynq.NewTask(typ, ev.Payload), opts...)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue %s: %w", typ, err)
	}
	return nil
}
