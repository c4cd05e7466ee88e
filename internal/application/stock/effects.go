package stock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/medstock-api/internal/application/ports"
	"github.com/jhoicas/medstock-api/pkg/logger"
)

// Effects agrupa los efectos posteriores al commit: evento de dominio e invalidación
// de la cache del tablero. Ninguno de los dos revierte la operación si falla.
type Effects struct {
	events ports.EventPublisher
	cache  ports.SummaryCache
	log    *logger.Logger
}

// NewEffects construye los efectos; publisher y cache pueden ser nil.
func NewEffects(events ports.EventPublisher, cache ports.SummaryCache, log *logger.Logger) *Effects {
	if events == nil {
		events = ports.NoopPublisher{}
	}
	if cache == nil {
		cache = ports.NoopSummaryCache{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Effects{events: events, cache: cache, log: log}
}

// Publish envía el evento y registra el fallo en el log.
func (f *Effects) Publish(ctx context.Context, event ports.DomainEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := f.events.Publish(ctx, event); err != nil {
		f.log.Warn().Err(err).
			Str("event_type", event.Type).
			Str("entity_type", event.EntityType).
			Int64("entity_id", event.EntityID).
			Msg("no se pudo publicar el evento")
	}
}

// InvalidateSummary descarta el resumen cacheado del tablero.
func (f *Effects) InvalidateSummary(ctx context.Context) {
	if err := f.cache.Invalidate(ctx); err != nil {
		f.log.Warn().Err(err).Msg("no se pudo invalidar la cache del tablero")
	}
}

// StockChanged publica stock.changed para los productos afectados e invalida el tablero.
func (f *Effects) StockChanged(ctx context.Context, actorID int64, entityType string, entityID int64, productIDs []int64) {
	f.InvalidateSummary(ctx)
	if len(productIDs) == 0 {
		return
	}
	f.Publish(ctx, ports.DomainEvent{
		Type:       ports.EventStockChanged,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Data:       map[string]any{"product_ids": productIDs},
	})
}
