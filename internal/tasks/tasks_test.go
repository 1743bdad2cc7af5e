package tasks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-engine/internal/cache"
	dbgen "github.com/noah-isme/pricing-engine/internal/db/gen"
	"github.com/noah-isme/pricing-engine/internal/events"
	"github.com/noah-isme/pricing-engine/internal/repo"
	"github.com/noah-isme/pricing-engine/internal/tasks"
)

type recordingClient struct {
	tasks []*asynq.Task
	err   error
}

func (c *recordingClient) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func TestNotifierEnqueuesRelevantTopics(t *testing.T) {
	ctx := context.Background()
	client := &recordingClient{}
	store := repo.NewMemory()
	bus := &events.Bus{Store: store, Notifiers: []events.Notifier{tasks.Notifier{Client: client, Queue: "pricing"}}}

	_, err := bus.Emit(ctx, events.TopicProfileRulesChanged, "P1", events.RulesChanged{ProfileID: "P1", Version: 3})
	require.NoError(t, err)
	_, err = bus.Emit(ctx, events.TopicSpecialChanged, "C1", events.ClientChanged{ClientID: "C1"})
	require.NoError(t, err)
	_, err = bus.Emit(ctx, events.TopicBasePriceUpdated, "A100", events.BasePriceChanged{Codes: []string{"A100"}})
	require.NoError(t, err)

	require.Len(t, client.tasks, 2)
	require.Equal(t, tasks.TypeRulesChanged, client.tasks[0].Type())
	require.JSONEq(t, `{"profileId":"P1","version":3,"upserted":0,"deleted":0}`, string(client.tasks[0].Payload()))
	require.Equal(t, tasks.TypeBaseChanged, client.tasks[1].Type())
}

func TestNotifierIgnoresDuplicateTaskID(t *testing.T) {
	ev := dbgen.DomainEvent{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, Topic: events.TopicProfileDeleted, Payload: []byte(`{}`)}

	err := tasks.Notifier{Client: &recordingClient{err: asynq.ErrTaskIDConflict}}.Notify(context.Background(), ev)
	require.NoError(t, err)

	err = tasks.Notifier{Client: &recordingClient{err: errors.New("redis down")}}.Notify(context.Background(), ev)
	require.ErrorContains(t, err, "redis down")

	require.NoError(t, tasks.Notifier{}.Notify(context.Background(), ev), "nil client is a no-op")
}

func newCache(t *testing.T) (*miniredis.Miniredis, *cache.JSON) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, cache.NewJSON(client, time.Minute)
}

func TestProcessorDropsRuleVersions(t *testing.T) {
	ctx := context.Background()
	mr, c := newCache(t)
	require.NoError(t, c.SetJSON(ctx, cache.KeyProfileRules("P1", 1), []string{}))
	require.NoError(t, c.SetJSON(ctx, cache.KeyProfileRules("P1", 2), []string{}))
	require.NoError(t, c.SetJSON(ctx, cache.KeyProfileRules("P10", 1), []string{}))

	p := tasks.Processor{Cache: c, Logger: zerolog.Nop()}
	err := p.HandleRulesChanged(ctx, asynq.NewTask(tasks.TypeRulesChanged, []byte(`{"profileId":"P1","version":3}`)))
	require.NoError(t, err)

	require.False(t, mr.Exists(cache.KeyProfileRules("P1", 1)))
	require.False(t, mr.Exists(cache.KeyProfileRules("P1", 2)))
	require.True(t, mr.Exists(cache.KeyProfileRules("P10", 1)))

	err = p.HandleRulesChanged(ctx, asynq.NewTask(tasks.TypeRulesChanged, []byte(`not json`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessorDropsArticleList(t *testing.T) {
	ctx := context.Background()
	mr, c := newCache(t)
	require.NoError(t, c.SetJSON(ctx, cache.KeyArticleList(), []string{"A100"}))
	require.NoError(t, c.SetJSON(ctx, cache.KeyArticle("A100"), map[string]string{"code": "A100"}))

	p := tasks.Processor{Cache: c, Logger: zerolog.Nop()}
	require.NoError(t, p.HandleBaseChanged(ctx, asynq.NewTask(tasks.TypeBaseChanged, []byte(`{"codes":["A100"]}`))))
	require.False(t, mr.Exists(cache.KeyArticleList()))
	require.True(t, mr.Exists(cache.KeyArticle("A100")), "the writer already refreshed the article entry")
}

func TestTypeForTopic(t *testing.T) {
	require.Equal(t, tasks.TypeRulesChanged, tasks.TypeForTopic(events.TopicProfileDeleted))
	require.Equal(t, tasks.TypeBaseChanged, tasks.TypeForTopic(events.TopicBasePriceUpdated))
	require.Empty(t, tasks.TypeForTopic(events.TopicAssignmentChanged))
}
