package stock

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/medstock-api/internal/application/dto"
	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

// InventoryService registra conteos físicos y ajusta el stock a lo contado.
type InventoryService struct {
	tx          repository.TxRunner
	inventories repository.InventoryRepository
	engine      *Engine
	effects     *Effects
	now         func() time.Time
}

// NewInventoryService construye el servicio.
func NewInventoryService(
	tx repository.TxRunner,
	inventories repository.InventoryRepository,
	engine *Engine,
	effects *Effects,
) *InventoryService {
	return &InventoryService{tx: tx, inventories: inventories, engine: engine, effects: effects, now: time.Now}
}

// ValidateInventory comprueba líneas: al menos una, producto válido, cantidad >= 0 y sin repetidos.
func ValidateInventory(in dto.CreateInventoryRequest) error {
	v := domain.NewValidationError()
	if len(in.Items) == 0 {
		v.Add("items", "al menos una línea")
	}
	seen := make(map[int64]bool, len(in.Items))
	for i, it := range in.Items {
		prefix := "items." + strconv.Itoa(i)
		if it.ProductID <= 0 {
			v.Add(prefix+".product_id", "requerido")
		} else if seen[it.ProductID] {
			v.Add(prefix+".product_id", "producto repetido en el conteo")
		}
		seen[it.ProductID] = true
		if it.CountedQty < 0 {
			v.Add(prefix+".counted_qty", "no puede ser negativo")
		}
	}
	return v.OrNil()
}

// Create camino directo de un inventario.
func (s *InventoryService) Create(ctx context.Context, actor entity.Actor, in dto.CreateInventoryRequest) (*entity.Inventory, error) {
	if !actor.Can(entity.CapInventoriesCreate) {
		return nil, domain.ErrForbidden
	}
	if err := ValidateInventory(in); err != nil {
		return nil, err
	}
	origin := entity.Origin{RequestedBy: actor.UserID, ApprovedBy: actor.UserID, At: s.now().UTC()}

	var inv *entity.Inventory
	err := s.tx.Run(ctx, func(repos repository.TxRepos) error {
		created, err := s.CreateInTx(ctx, repos, in, origin)
		inv = created
		return err
	})
	if err != nil {
		return nil, err
	}
	var changed []int64
	for _, it := range inv.Items {
		if it.Variance != 0 {
			changed = append(changed, it.ProductID)
		}
	}
	s.effects.StockChanged(ctx, actor.UserID, "inventory", inv.ID, changed)
	return inv, nil
}

// CreateInTx crea el inventario; por cada línea bloquea el producto, fotografía la cantidad
// teórica y, si hay diferencia, lleva el stock a lo contado.
func (s *InventoryService) CreateInTx(
	ctx context.Context,
	repos repository.TxRepos,
	in dto.CreateInventoryRequest,
	origin entity.Origin,
) (*entity.Inventory, error) {
	countedAt := in.CountedAt.OrNow(origin.At)
	label := strings.TrimSpace(in.Label)
	if label == "" {
		label = "Inventaire du " + countedAt.Format(entity.DateLayout)
	}
	inv := &entity.Inventory{
		Label:     label,
		CountedAt: countedAt,
		Notes:     in.Notes,
		CreatedBy: origin.RequestedBy,
		CreatedAt: origin.At,
	}
	if err := repos.Inventories.Create(ctx, inv); err != nil {
		return nil, err
	}
	reference := "INV-" + strconv.FormatInt(inv.ID, 10)

	for i, line := range in.Items {
		product, err := repos.Products.GetForUpdate(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("items.%d: %w", i, err)
		}
		item := &entity.InventoryItem{
			InventoryID:    inv.ID,
			ProductID:      product.ID,
			ProductName:    product.Name,
			TheoreticalQty: product.Quantity,
			CountedQty:     line.CountedQty,
			Variance:       entity.ComputeVariance(line.CountedQty, product.Quantity),
		}
		if err := repos.Inventories.CreateItem(ctx, item); err != nil {
			return nil, err
		}
		if _, err := s.engine.ApplyInventoryVariance(ctx, repos, product.ID, line.CountedQty, product.Quantity, AdjustmentMeta{
			Reference: reference,
			Notes:     label,
			At:        countedAt,
			ActorID:   origin.RequestedBy,
		}); err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, *item)
	}
	return inv, nil
}

// Get devuelve el inventario con sus líneas.
func (s *InventoryService) Get(ctx context.Context, id int64) (*entity.Inventory, error) {
	return s.inventories.GetByID(ctx, id)
}

// List lista inventarios.
func (s *InventoryService) List(ctx context.Context, page repository.Page) ([]*entity.Inventory, error) {
	return s.inventories.List(ctx, page.Normalize())
}
