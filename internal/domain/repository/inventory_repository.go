package repository

import (
	"context"

	"github.com/jhoicas/medstock-api/internal/domain/entity"
)

// InventoryRepository define el puerto de persistencia para conteos físicos.
type InventoryRepository interface {
	Create(ctx context.Context, inventory *entity.Inventory) error
	CreateItem(ctx context.Context, item *entity.InventoryItem) error
	GetByID(ctx context.Context, id int64) (*entity.Inventory, error)
	List(ctx context.Context, page Page) ([]*entity.Inventory, error)
}
