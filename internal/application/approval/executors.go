package approval

import (
	"context"
	"fmt"

	"github.com/jhoicas/medstock-api/internal/application/stock"
	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

// ExecResult qué creó un ejecutor y qué productos tocó.
type ExecResult struct {
	EntityType string
	EntityID   int64
	ProductIDs []int64
}

// Executor ejecuta el efecto real de una operación aprobada dentro de la transacción de la aprobación.
type Executor func(ctx context.Context, repos repository.TxRepos, payload entity.OperationPayload, origin entity.Origin) (ExecResult, error)

// Executors registro de ejecutores por tipo de operación.
type Executors map[entity.OperationType]Executor

// ReceiptCreator lo implementa stock.ReceiptService.
type ReceiptCreator interface {
	CreateInTx(ctx context.Context, repos repository.TxRepos, in entity.ReceiptPayload, origin entity.Origin) (*entity.Receipt, error)
}

// StockOutCreator lo implementa stock.StockOutService.
type StockOutCreator interface {
	CreateInTx(ctx context.Context, repos repository.TxRepos, in entity.StockOutPayload, origin entity.Origin) (*entity.StockMovement, error)
}

// VehicleCreator lo implementa usecase.VehicleUseCase.
type VehicleCreator interface {
	CreateInTx(ctx context.Context, repos repository.TxRepos, in entity.VehiclePayload, origin entity.Origin) (*entity.Vehicle, error)
}

// NewExecutors registra los ejecutores de receipt, stockout y vehicle.
// Son las mismas funciones que usan los caminos directos.
func NewExecutors(receipts ReceiptCreator, stockouts StockOutCreator, vehicles VehicleCreator) Executors {
	return Executors{
		entity.OperationReceipt: func(ctx context.Context, repos repository.TxRepos, payload entity.OperationPayload, origin entity.Origin) (ExecResult, error) {
			in, ok := payload.(entity.ReceiptPayload)
			if !ok {
				return ExecResult{}, payloadMismatch(entity.OperationReceipt, payload)
			}
			r, err := receipts.CreateInTx(ctx, repos, in, origin)
			if err != nil {
				return ExecResult{}, err
			}
			return ExecResult{EntityType: "receipt", EntityID: r.ID, ProductIDs: stock.ReceiptProductIDs(r)}, nil
		},
		entity.OperationStockOut: func(ctx context.Context, repos repository.TxRepos, payload entity.OperationPayload, origin entity.Origin) (ExecResult, error) {
			in, ok := payload.(entity.StockOutPayload)
			if !ok {
				return ExecResult{}, payloadMismatch(entity.OperationStockOut, payload)
			}
			m, err := stockouts.CreateInTx(ctx, repos, in, origin)
			if err != nil {
				return ExecResult{}, err
			}
			return ExecResult{EntityType: "stock_movement", EntityID: m.ID, ProductIDs: []int64{m.ProductID}}, nil
		},
		entity.OperationVehicle: func(ctx context.Context, repos repository.TxRepos, payload entity.OperationPayload, origin entity.Origin) (ExecResult, error) {
			in, ok := payload.(entity.VehiclePayload)
			if !ok {
				return ExecResult{}, payloadMismatch(entity.OperationVehicle, payload)
			}
			v, err := vehicles.CreateInTx(ctx, repos, in, origin)
			if err != nil {
				return ExecResult{}, err
			}
			return ExecResult{EntityType: "vehicle", EntityID: v.ID}, nil
		},
	}
}

func payloadMismatch(t entity.OperationType, payload entity.OperationPayload) error {
	return fmt.Errorf("%w: payload %T para tipo %s", domain.ErrUnsupportedOperation, payload, t)
}
