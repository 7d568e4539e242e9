package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/console-access/internal/events"
)

// AuditService writes an audit trail of sign-ins and permission changes.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// AuditedEvents lists the event types written to the audit trail.
var AuditedEvents = []events.EventType{
	events.EventRolePermissionsSynced,
	events.EventUserRolesSynced,
	events.EventSignedIn,
	events.EventSignedOut,
}

// RegisterHandlers subscribes Handle to every audited event, so entries are
// written synchronously with the operation that published them.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range AuditedEvents {
		a.dispatcher.Subscribe(eventType, a.Handle)
	}
}

// Handle writes one audit entry.
func (a *AuditService) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventRolePermissionsSynced:
		return a.handleRolePermissionsSynced(ctx, event)
	case events.EventUserRolesSynced:
		return a.handleUserRolesSynced(ctx, event)
	case events.EventSignedIn, events.EventSignedOut:
		return a.handleSession(ctx, event)
	}
	return nil
}

func (a *AuditService) handleRolePermissionsSynced(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.RolePermissionsSyncedPayload)
	a.logger.Info("RolePermissionsSynced",
		append(a.common(event),
			zap.Strings("added", payload.Added),
			zap.Strings("removed", payload.Removed),
			zap.Int("total", len(payload.Current)),
		)...)
	return nil
}

func (a *AuditService) handleUserRolesSynced(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.UserRolesSyncedPayload)
	a.logger.Info("UserRolesSynced",
		append(a.common(event),
			zap.Any("added", payload.Added),
			zap.Any("removed", payload.Removed),
			zap.Any("current", payload.Current),
		)...)
	return nil
}

func (a *AuditService) handleSession(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), a.common(event)...)
	return nil
}

func (a *AuditService) common(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event", string(event.Type)),
		zap.String("subject", event.Subject),
		zap.String("actor_user_id", event.Actor.UserID),
		zap.String("actor_session_id", event.Actor.SessionID),
		zap.Time("at", event.Timestamp),
	}
}
