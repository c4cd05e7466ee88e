package repository

import (
	"context"

	"github.com/jhoicas/medstock-api/internal/domain/entity"
)

// ReceiptRepository define el puerto de persistencia para recepciones y sus líneas.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.Receipt) error
	CreateItem(ctx context.Context, item *entity.ReceiptItem) error
	// GetByID devuelve la recepción con sus líneas.
	GetByID(ctx context.Context, id int64) (*entity.Receipt, error)
	GetByRef(ctx context.Context, ref string) (*entity.Receipt, error)
	List(ctx context.Context, page Page) ([]*entity.Receipt, error)
}
