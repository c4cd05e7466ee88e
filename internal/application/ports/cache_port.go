package ports

import (
	"context"

	"github.com/jhoicas/medstock-api/internal/application/dto"
)

// SummaryCache cache del resumen del tablero.
// Get devuelve (nil, nil) si no hay entrada.
type SummaryCache interface {
	Get(ctx context.Context) (*dto.DashboardSummary, error)
	Set(ctx context.Context, summary *dto.DashboardSummary) error
	Invalidate(ctx context.Context) error
}

// NoopSummaryCache no cachea nada.
type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(context.Context) (*dto.DashboardSummary, error) { return nil, nil }
func (NoopSummaryCache) Set(context.Context, *dto.DashboardSummary) error  { return nil }
func (NoopSummaryCache) Invalidate(context.Context) error                   { return nil }
