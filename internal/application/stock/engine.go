// Package stock contiene el motor de mutación de stock y los casos de uso que lo invocan
// (recepciones, salidas e inventarios). Todo cambio de Product.Quantity pasa por aquí.
package stock

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/medstock-api/internal/application/ports"
	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

// Tipos de mutación (etiqueta kind de la métrica).
const (
	KindReceipt  = "receipt"
	KindStockOut = "stockout"
	KindVariance = "adjustment"
)

// AdjustmentMeta datos del movimiento de ajuste que deja un inventario.
type AdjustmentMeta struct {
	Reference string
	Notes     string
	At        time.Time
	ActorID   int64
}

// Engine aplica deltas de cantidad sobre los repositorios de la transacción del llamador.
// Nunca abre su propia transacción: el registro que justifica el cambio y el cambio se
// confirman juntos.
type Engine struct {
	metrics ports.MetricsRecorder
	tracer  trace.Tracer
}

// NewEngine construye el motor. metrics puede ser nil.
func NewEngine(metrics ports.MetricsRecorder) *Engine {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &Engine{metrics: metrics, tracer: otel.Tracer("medstock/stock")}
}

// ApplyReceipt suma qty (> 0) a la cantidad del producto. Devuelve la nueva cantidad.
func (e *Engine) ApplyReceipt(ctx context.Context, repos repository.TxRepos, productID int64, qty int) (int, error) {
	ctx, span := e.tracer.Start(ctx, "stock.ApplyReceipt", trace.WithAttributes(
		attribute.Int64("product_id", productID), attribute.Int("quantity", qty)))
	defer span.End()

	if qty <= 0 {
		return 0, domain.FieldError("quantity", "debe ser mayor que 0")
	}
	newQty, err := repos.Products.AdjustQuantity(ctx, productID, qty)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("recepción producto %d: %w", productID, err)
	}
	e.metrics.StockMutation(KindReceipt)
	return newQty, nil
}

// ApplyStockOut resta qty (> 0). No hay piso: la cantidad puede quedar negativa.
func (e *Engine) ApplyStockOut(ctx context.Context, repos repository.TxRepos, productID int64, qty int) (int, error) {
	ctx, span := e.tracer.Start(ctx, "stock.ApplyStockOut", trace.WithAttributes(
		attribute.Int64("product_id", productID), attribute.Int("quantity", qty)))
	defer span.End()

	if qty <= 0 {
		return 0, domain.FieldError("quantity", "debe ser mayor que 0")
	}
	newQty, err := repos.Products.AdjustQuantity(ctx, productID, -qty)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("salida producto %d: %w", productID, err)
	}
	e.metrics.StockMutation(KindStockOut)
	return newQty, nil
}

// ApplyInventoryVariance lleva la cantidad a counted y deja un movimiento adjustment con |variance|.
// Si counted == theoretical no hace nada y devuelve (nil, nil).
// El llamador debe haber bloqueado el producto (GetForUpdate) para leer theoretical.
func (e *Engine) ApplyInventoryVariance(
	ctx context.Context,
	repos repository.TxRepos,
	productID int64,
	counted, theoretical int,
	meta AdjustmentMeta,
) (*entity.StockMovement, error) {
	variance := entity.ComputeVariance(counted, theoretical)
	if variance == 0 {
		return nil, nil
	}
	ctx, span := e.tracer.Start(ctx, "stock.ApplyInventoryVariance", trace.WithAttributes(
		attribute.Int64("product_id", productID), attribute.Int("variance", variance)))
	defer span.End()

	if err := repos.Products.SetQuantity(ctx, productID, counted); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ajuste producto %d: %w", productID, err)
	}
	qty := variance
	if qty < 0 {
		qty = -qty
	}
	mov := &entity.StockMovement{
		ProductID:    productID,
		Type:         entity.MovementTypeAdjustment,
		Quantity:     qty,
		MovementDate: meta.At,
		Reference:    meta.Reference,
		Notes:        meta.Notes,
		CreatedBy:    meta.ActorID,
		CreatedAt:    meta.At,
	}
	if err := repos.Movements.Create(ctx, mov); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("movimiento de ajuste: %w", err)
	}
	e.metrics.StockMutation(KindVariance)
	return mov, nil
}
