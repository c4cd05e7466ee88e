package dashboard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medstock-api/internal/application/dashboard"
	"github.com/jhoicas/medstock-api/internal/application/dto"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/infrastructure/memory"
)

type fakeCache struct {
	stored  *dto.DashboardSummary
	getErr  error
	sets    int
	cleared int
}

func (c *fakeCache) Get(context.Context) (*dto.DashboardSummary, error) { return c.stored, c.getErr }
func (c *fakeCache) Set(_ context.Context, s *dto.DashboardSummary) error {
	c.sets++
	c.stored = s
	return nil
}
func (c *fakeCache) Invalidate(context.Context) error {
	c.cleared++
	c.stored = nil
	return nil
}

func seed(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	repos := store.Repos()
	now := time.Now().UTC()
	for i, name := range []string{"Gants", "Masques", "Seringues"} {
		p := &entity.Product{Name: name, CriticalLevel: 5, CreatedAt: now, UpdatedAt: now}
		require.NoError(t, repos.Products.Create(ctx, p))
		_, err := repos.Products.AdjustQuantity(ctx, p.ID, i*5)
		require.NoError(t, err)
	}
	require.NoError(t, repos.Operations.Create(ctx, &entity.PendingOperation{
		Type: entity.OperationStockOut, Data: []byte(`{}`), Status: entity.RequestStatusPending, UserID: 3, CreatedAt: now,
	}))
	require.NoError(t, repos.Vehicles.Create(ctx, &entity.Vehicle{Plate: "AA-1", Status: entity.VehicleStatusPending, CreatedAt: now}))
	require.NoError(t, repos.Vehicles.Create(ctx, &entity.Vehicle{Plate: "AA-2", Status: entity.VehicleStatusAssigned, CreatedAt: now}))
}

func TestSummary_CalculaYCachea(t *testing.T) {
	store := memory.NewStore()
	seed(t, store)
	cache := &fakeCache{}
	uc := dashboard.NewUseCase(store.Repos(), cache, nil)

	s, err := uc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s.TotalProducts)
	assert.Equal(t, 2, s.CriticalProducts, "0 y 5 están en o bajo el nivel crítico")
	assert.Equal(t, 1, s.PendingOperations)
	assert.Equal(t, 0, s.PendingNeeds)
	assert.Equal(t, 1, s.VehiclesByStatus[entity.VehicleStatusAssigned])
	assert.Equal(t, 1, cache.sets)

	again, err := uc.Summary(context.Background())
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Equal(t, 1, cache.sets, "un acierto de cache no recalcula")
}

func TestSummary_FalloDeCacheNoImpideResponder(t *testing.T) {
	store := memory.NewStore()
	seed(t, store)
	uc := dashboard.NewUseCase(store.Repos(), &fakeCache{getErr: errors.New("redis caído")}, nil)

	s, err := uc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s.TotalProducts)
}
