// Package memory implementa los puertos de persistencia en memoria (APP_STORAGE=memory).
// Una transacción toma el candado del Store completo y restaura una copia si falla,
// así que las transacciones quedan serializadas.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

type tables struct {
	seq            int64
	products       map[int64]entity.Product
	movements      map[int64]entity.StockMovement
	receipts       map[int64]entity.Receipt
	receiptItems   map[int64]entity.ReceiptItem
	inventories    map[int64]entity.Inventory
	inventoryItems map[int64]entity.InventoryItem
	vehicles       map[int64]entity.Vehicle
	assignments    map[int64]entity.VehicleAssignment
	maintenance    map[int64]entity.Maintenance
	operations     map[int64]entity.PendingOperation
	needs          map[int64]entity.Need
	users          map[int64]entity.User
}

func newTables() *tables {
	return &tables{
		products:       map[int64]entity.Product{},
		movements:      map[int64]entity.StockMovement{},
		receipts:       map[int64]entity.Receipt{},
		receiptItems:   map[int64]entity.ReceiptItem{},
		inventories:    map[int64]entity.Inventory{},
		inventoryItems: map[int64]entity.InventoryItem{},
		vehicles:       map[int64]entity.Vehicle{},
		assignments:    map[int64]entity.VehicleAssignment{},
		maintenance:    map[int64]entity.Maintenance{},
		operations:     map[int64]entity.PendingOperation{},
		needs:          map[int64]entity.Need{},
		users:          map[int64]entity.User{},
	}
}

// clone copia superficial de cada tabla; los valores son structs y los slices
// internos nunca se modifican en sitio.
func (t *tables) clone() *tables {
	return &tables{
		seq:            t.seq,
		products:       maps.Clone(t.products),
		movements:      maps.Clone(t.movements),
		receipts:       maps.Clone(t.receipts),
		receiptItems:   maps.Clone(t.receiptItems),
		inventories:    maps.Clone(t.inventories),
		inventoryItems: maps.Clone(t.inventoryItems),
		vehicles:       maps.Clone(t.vehicles),
		assignments:    maps.Clone(t.assignments),
		maintenance:    maps.Clone(t.maintenance),
		operations:     maps.Clone(t.operations),
		needs:          maps.Clone(t.needs),
		users:          maps.Clone(t.users),
	}
}

func (t *tables) nextID() int64 {
	t.seq++
	return t.seq
}

// Store base de datos en memoria.
type Store struct {
	mu sync.Mutex
	t  *tables
}

// NewStore crea un Store vacío.
func NewStore() *Store {
	return &Store{t: newTables()}
}

// handle acceso a las tablas; dentro de una tx el candado ya está tomado.
type handle struct {
	s    *Store
	inTx bool
}

func (h handle) read(fn func(t *tables) error) error {
	if !h.inTx {
		h.s.mu.Lock()
		defer h.s.mu.Unlock()
	}
	return fn(h.s.t)
}

// Repos repositorios fuera de transacción.
func (s *Store) Repos() repository.TxRepos {
	return s.repos(handle{s: s})
}

// Users repositorio de usuarios.
func (s *Store) Users() repository.UserRepository {
	return &UserRepository{h: handle{s: s}}
}

func (s *Store) repos(h handle) repository.TxRepos {
	return repository.TxRepos{
		Products:    &ProductRepository{h: h},
		Movements:   &StockMovementRepository{h: h},
		Receipts:    &ReceiptRepository{h: h},
		Inventories: &InventoryRepository{h: h},
		Vehicles:    &VehicleRepository{h: h},
		Operations:  &PendingOperationRepository{h: h},
		Needs:       &NeedRepository{h: h},
	}
}

// TxRunner implementa repository.TxRunner sobre el Store.
type TxRunner struct {
	s *Store
}

var _ repository.TxRunner = (*TxRunner)(nil)

// NewTxRunner construye el runner.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run ejecuta fn con el Store bloqueado; si fn falla se restaura la copia previa.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	snapshot := r.s.t.clone()
	if err := fn(r.s.repos(handle{s: r.s, inTx: true})); err != nil {
		r.s.t = snapshot
		return err
	}
	return nil
}

func paginate[T any](items []T, p repository.Page) []T {
	p = p.Normalize()
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

// newestFirst ordena por id descendente (equivalente a created_at DESC).
func newestFirst[T any](items []T, id func(T) int64) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) > id(items[j]) })
}
