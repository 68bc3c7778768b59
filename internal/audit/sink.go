package audit

import (
	"context"
	"strconv"

	"github.com/nerrad567/rfsocket-core/internal/events"
)

// Entity types recorded in audit_logs.entity_type.
const (
	EntitySocket = "socket"
	EntitySystem = "system"
)

// EventSink writes every event to the audit repository.
type EventSink struct {
	repo Repository
}

// NewEventSink creates an events.Sink backed by repo.
func NewEventSink(repo Repository) *EventSink {
	return &EventSink{repo: repo}
}

// Handle implements events.Sink. The row is written even when ctx is
// already cancelled.
func (s *EventSink) Handle(ctx context.Context, e events.Event) error {
	return s.repo.Create(context.WithoutCancel(ctx), FromEvent(e))
}

// FromEvent maps an event to an audit entry. The entry's ID is left empty
// for the repository to assign.
func FromEvent(e events.Event) *AuditLog {
	log := &AuditLog{
		EventID:    e.ID,
		Action:     string(e.Type),
		EntityType: EntitySystem,
		Actor:      e.Actor,
		CreatedAt:  e.Timestamp,
	}

	details := map[string]any{}
	if e.SocketID != nil {
		log.EntityType = EntitySocket
		log.EntityID = strconv.Itoa(*e.SocketID)
	}
	if e.SocketName != "" {
		details["socket_name"] = e.SocketName
	}
	if c := e.Command; c != nil {
		success := c.Success
		log.Success = &success
		details["action"] = string(c.Action)
		details["code"] = c.Code
		details["bits"] = c.Bits
		details["repeat"] = c.Repeat
		details["duration_ms"] = c.DurationMS
		if c.Error != "" {
			details["error"] = c.Error
		}
	}
	if len(details) > 0 {
		log.Details = details
	}
	return log
}
