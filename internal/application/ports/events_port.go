package ports

import (
	"context"
	"time"
)

// Tipos de evento de dominio publicados tras un commit.
const (
	EventOperationSubmitted = "operation.submitted"
	EventOperationApproved  = "operation.approved"
	EventOperationRejected  = "operation.rejected"
	EventStockChanged       = "stock.changed"
	EventNeedDecided        = "need.decided"
)

// DomainEvent evento publicado después de confirmar una transacción.
type DomainEvent struct {
	ID         string         `json:"event_id"`
	Type       string         `json:"event_type"`
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	ActorID    int64          `json:"actor_id"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// EventPublisher puerto de salida hacia el bus de eventos.
// La publicación es best-effort: un error nunca revierte la operación ya confirmada.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// NoopPublisher descarta los eventos (sin brokers configurados).
type NoopPublisher struct{}

// Publish implementa EventPublisher.
func (NoopPublisher) Publish(context.Context, DomainEvent) error { return nil }
