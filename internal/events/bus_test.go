package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	dbgen "github.com/noah-isme/pricing-engine/internal/db/gen"
	"github.com/noah-isme/pricing-engine/internal/events"
	"github.com/noah-isme/pricing-engine/internal/repo"
)

type captureNotifier struct {
	events []dbgen.DomainEvent
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event dbgen.DomainEvent) error {
	c.events = append(c.events, event)
	return c.err
}

func TestEmitPersistsEvent(t *testing.T) {
	store := repo.NewMemory()
	notifier := &captureNotifier{}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	event, err := bus.Emit(context.Background(), events.TopicProfileRulesChanged, "P1", events.RulesChanged{ProfileID: "P1", Version: 3, Upserted: 2})
	require.NoError(t, err)
	require.True(t, event.ID.Valid)
	require.Equal(t, "P1", event.AggregateID)
	require.JSONEq(t, `{"profileId":"P1","version":3,"upserted":2,"deleted":0}`, string(event.Payload))
	require.Len(t, store.Events(), 1)
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)

	var decoded events.RulesChanged
	require.NoError(t, events.Decode(event, &decoded))
	require.EqualValues(t, 3, decoded.Version)
}

func TestEmitValidatesInput(t *testing.T) {
	bus := events.Bus{Store: repo.NewMemory()}
	_, err := bus.Emit(context.Background(), " ", "P1", nil)
	require.ErrorContains(t, err, "topic is required")
	_, err = bus.Emit(context.Background(), events.TopicProfileDeleted, "", nil)
	require.ErrorContains(t, err, "aggregate id is required")
	_, err = bus.Emit(context.Background(), events.TopicProfileDeleted, "P1", "{not json")
	require.ErrorContains(t, err, "encode payload")

	var nilBus *events.Bus
	_, err = nilBus.Emit(context.Background(), events.TopicProfileDeleted, "P1", nil)
	require.Error(t, err)
}

func TestEmitJoinsNotifierErrorsAfterPersisting(t *testing.T) {
	store := repo.NewMemory()
	failing := &captureNotifier{err: errors.New("boom")}
	ok := &captureNotifier{}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{failing, nil, ok}}

	_, err := bus.Emit(context.Background(), events.TopicSpecialChanged, "C1", []byte(`{"clientId":"C1"}`))
	require.ErrorContains(t, err, "boom")
	require.Len(t, store.Events(), 1)
	require.Len(t, ok.events, 1)
}

func TestDefaultTopicsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, topic := range events.DefaultTopics() {
		require.False(t, seen[topic], topic)
		seen[topic] = true
	}
	require.Len(t, seen, 5)
}
