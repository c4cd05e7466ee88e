// Package dashboard calcula el resumen del tablero principal.
package dashboard

import (
	"context"
	"time"

	"github.com/jhoicas/medstock-api/internal/application/dto"
	"github.com/jhoicas/medstock-api/internal/application/ports"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
	"github.com/jhoicas/medstock-api/pkg/logger"
)

// UseCase resumen con cache (Redis en producción). La cache se invalida tras cada mutación de stock
// o decisión; un fallo de cache nunca impide responder.
type UseCase struct {
	products   repository.ProductRepository
	operations repository.PendingOperationRepository
	needs      repository.NeedRepository
	vehicles   repository.VehicleRepository
	cache      ports.SummaryCache
	log        *logger.Logger
	now        func() time.Time
}

// NewUseCase construye el caso de uso. cache puede ser nil.
func NewUseCase(
	repos repository.TxRepos,
	cache ports.SummaryCache,
	log *logger.Logger,
) *UseCase {
	if cache == nil {
		cache = ports.NoopSummaryCache{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		products:   repos.Products,
		operations: repos.Operations,
		needs:      repos.Needs,
		vehicles:   repos.Vehicles,
		cache:      cache,
		log:        log.Component("dashboard"),
		now:        time.Now,
	}
}

// Summary devuelve el resumen cacheado o lo recalcula.
func (uc *UseCase) Summary(ctx context.Context) (*dto.DashboardSummary, error) {
	if cached, err := uc.cache.Get(ctx); err != nil {
		uc.log.Warn().Err(err).Msg("cache del tablero no disponible")
	} else if cached != nil {
		return cached, nil
	}

	total, err := uc.products.Count(ctx)
	if err != nil {
		return nil, err
	}
	critical, err := uc.products.ListCritical(ctx)
	if err != nil {
		return nil, err
	}
	pendingOps, err := uc.operations.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	pendingNeeds, err := uc.needs.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := uc.vehicles.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	summary := &dto.DashboardSummary{
		TotalProducts:     total,
		CriticalProducts:  len(critical),
		PendingOperations: pendingOps,
		PendingNeeds:      pendingNeeds,
		VehiclesByStatus:  byStatus,
		GeneratedAt:       uc.now().UTC(),
	}
	if err := uc.cache.Set(ctx, summary); err != nil {
		uc.log.Warn().Err(err).Msg("no se pudo guardar el resumen en cache")
	}
	return summary, nil
}
