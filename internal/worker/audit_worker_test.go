package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/console-access/internal/events"
	"github.com/spec-kit/console-access/internal/service"
)

func TestAuditWorkerWritesQueuedEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	w := NewAuditWorker(service.NewAuditService(nil, zap.New(core)), 8, zap.NewNop())
	w.Subscribe(dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		ID:      "evt-1",
		Type:    events.EventRolePermissionsSynced,
		Subject: "user",
		Payload: events.RolePermissionsSyncedPayload{Current: []string{"root"}, Added: []string{"root"}},
	}))
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{ID: "evt-2", Type: events.EventSignedOut, Subject: "u-1"}))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "RolePermissionsSynced", entries[0].Message)
	assert.Equal(t, "evt-1", entries[0].ContextMap()["event_id"])
	assert.Equal(t, string(events.EventSignedOut), entries[1].Message)
}

func TestAuditWorkerRejectsWhenFull(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	w := NewAuditWorker(service.NewAuditService(nil, zap.NewNop()), 1, zap.NewNop())
	w.Subscribe(dispatcher)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventSignedIn}))
	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventSignedIn})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestAuditWorkerIgnoresUnauditedEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	w := NewAuditWorker(service.NewAuditService(nil, zap.NewNop()), 1, zap.NewNop())
	w.Subscribe(dispatcher)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventType("unrelated")}))
	assert.Empty(t, w.queue)
}
