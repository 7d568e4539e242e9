package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/console-access/internal/events"
)

type actorKey struct{}

// WithActor attaches the acting session to ctx so emitted events can name it.
func WithActor(ctx context.Context, actor events.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor attached by WithActor.
func ActorFromContext(ctx context.Context) (events.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(events.Actor)
	return actor, ok
}

func actorFromContext(ctx context.Context) events.Actor {
	actor, _ := ActorFromContext(ctx)
	return actor
}

// publish delivers event to its subscribers. Subscriber failures are logged
// and never fail the operation that emitted the event.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
