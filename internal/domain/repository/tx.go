package repository

import "context"

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Products    ProductRepository
	Movements   StockMovementRepository
	Receipts    ReceiptRepository
	Inventories InventoryRepository
	Vehicles    VehicleRepository
	Operations  PendingOperationRepository
	Needs       NeedRepository
}

// TxRunner ejecuta fn dentro de una transacción de BD; Commit si fn devuelve nil, Rollback si no.
// Es el único mecanismo de control de concurrencia del motor de stock y del flujo de aprobación.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
}
