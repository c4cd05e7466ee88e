package stock_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medstock-api/internal/application/dto"
	"github.com/jhoicas/medstock-api/internal/application/ports"
	"github.com/jhoicas/medstock-api/internal/application/stock"
	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
	"github.com/jhoicas/medstock-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type countingMetrics struct {
	mu        sync.Mutex
	mutations map[string]int
}

func (m *countingMetrics) StockMutation(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutations == nil {
		m.mutations = map[string]int{}
	}
	m.mutations[kind]++
}

func (m *countingMetrics) Decision(string, string) {}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e ports.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	store     *memory.Store
	repos     repository.TxRepos
	tx        *memory.TxRunner
	metrics   *countingMetrics
	events    *recordingPublisher
	receipts  *stock.ReceiptService
	stockouts *stock.StockOutService
	counts    *stock.InventoryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		store:   store,
		repos:   store.Repos(),
		tx:      memory.NewTxRunner(store),
		metrics: &countingMetrics{},
		events:  &recordingPublisher{},
	}
	engine := stock.NewEngine(f.metrics)
	effects := stock.NewEffects(f.events, nil, nil)
	f.receipts = stock.NewReceiptService(f.tx, f.repos.Receipts, engine, effects, nil)
	f.stockouts = stock.NewStockOutService(f.tx, f.repos.Movements, engine, effects)
	f.counts = stock.NewInventoryService(f.tx, f.repos.Inventories, engine, effects)
	return f
}

func (f *fixture) product(t *testing.T, name string, qty int) *entity.Product {
	t.Helper()
	p := &entity.Product{Name: name, Price: decimal.NewFromInt(10), CriticalLevel: 2}
	require.NoError(t, f.repos.Products.Create(context.Background(), p))
	if qty != 0 {
		require.NoError(t, f.repos.Products.SetQuantity(context.Background(), p.ID, qty))
	}
	return p
}

func (f *fixture) quantity(t *testing.T, id int64) int {
	t.Helper()
	p, err := f.repos.Products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

func manager() entity.Actor {
	return entity.Actor{UserID: 2, Role: entity.RoleManager, Permissions: entity.DefaultPermissions(entity.RoleManager)}
}

func ptr[T any](v T) *T { return &v }

// ──────────────────────────────────────────────────────────────────────────────
// Motor de stock
// ──────────────────────────────────────────────────────────────────────────────

func TestEngine_RecepcionSumaExactamenteLaCantidad(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gants nitrile", 4)

	_, err := f.receipts.Create(context.Background(), manager(), entity.ReceiptPayload{
		Supplier: "Medisup",
		Items: []entity.ReceiptLinePayload{
			{ProductID: &p.ID, Quantity: 3, UnitPrice: decimal.NewFromInt(2)},
			{ProductID: &p.ID, Quantity: 7, UnitPrice: decimal.NewFromInt(2)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 14, f.quantity(t, p.ID))
	assert.Equal(t, 2, f.metrics.mutations[stock.KindReceipt])
}

func TestEngine_SalidaPermiteStockNegativo(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Compresses", 2)

	_, err := f.stockouts.Create(context.Background(), manager(), entity.StockOutPayload{ProductID: p.ID, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, -3, f.quantity(t, p.ID))
}

func TestEngine_CantidadNoPositivaRechazada(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Seringues", 10)
	engine := stock.NewEngine(nil)

	err := f.tx.Run(context.Background(), func(repos repository.TxRepos) error {
		_, err := engine.ApplyReceipt(context.Background(), repos, p.ID, 0)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = f.tx.Run(context.Background(), func(repos repository.TxRepos) error {
		_, err := engine.ApplyStockOut(context.Background(), repos, p.ID, -1)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 10, f.quantity(t, p.ID))
}

func TestEngine_ProductoInexistenteNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.stockouts.Create(context.Background(), manager(), entity.StockOutPayload{ProductID: 999, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_VarianzaCeroNoCreaMovimiento(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Masques", 12)

	inv, err := f.counts.Create(context.Background(), manager(), dto.CreateInventoryRequest{
		Items: []dto.InventoryCountLine{{ProductID: p.ID, CountedQty: 12}},
	})
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 0, inv.Items[0].Variance)
	assert.Equal(t, 12, f.quantity(t, p.ID))

	movs, err := f.repos.Movements.List(context.Background(), repository.MovementFilter{ProductID: p.ID})
	require.NoError(t, err)
	assert.Empty(t, movs)
	assert.Zero(t, f.metrics.mutations[stock.KindVariance])
}

func TestEngine_VarianzaCreaUnAjusteConValorAbsoluto(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Bandes", 20)

	inv, err := f.counts.Create(context.Background(), manager(), dto.CreateInventoryRequest{
		Label: "Comptage mensuel",
		Items: []dto.InventoryCountLine{{ProductID: p.ID, CountedQty: 14}},
	})
	require.NoError(t, err)
	assert.Equal(t, 20, inv.Items[0].TheoreticalQty)
	assert.Equal(t, -6, inv.Items[0].Variance)
	assert.Equal(t, 14, f.quantity(t, p.ID))

	movs, err := f.repos.Movements.List(context.Background(), repository.MovementFilter{ProductID: p.ID})
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementTypeAdjustment, movs[0].Type)
	assert.Equal(t, 6, movs[0].Quantity)
	assert.Equal(t, "INV-"+strconv.FormatInt(inv.ID, 10), movs[0].Reference)
}

// ──────────────────────────────────────────────────────────────────────────────
// Recepciones
// ──────────────────────────────────────────────────────────────────────────────

func TestReceipt_RefDuplicadaConflict(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gants", 0)
	in := entity.ReceiptPayload{
		Ref:      ptr("BR-001"),
		Supplier: "Medisup",
		Items:    []entity.ReceiptLinePayload{{ProductID: &p.ID, Quantity: 5}},
	}

	_, err := f.receipts.Create(context.Background(), manager(), in)
	require.NoError(t, err)

	_, err = f.receipts.Create(context.Background(), manager(), in)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 5, f.quantity(t, p.ID), "la segunda recepción no debe tocar el stock")
}

func TestReceipt_ResuelveProductoPorNombreOCrea(t *testing.T) {
	f := newFixture(t)
	existing := f.product(t, "Sérum physiologique", 1)

	rec, err := f.receipts.Create(context.Background(), manager(), entity.ReceiptPayload{
		Supplier: "Pharmacie centrale",
		Items: []entity.ReceiptLinePayload{
			// "e" + acento combinado: debe coincidir con la forma NFC guardada.
			{ProductName: "  Se\u0301rum physiologique ", Quantity: 4},
			{ProductName: "Pansement stérile", ProductRef: ptr("PS-10"), Category: "Soins", Quantity: 9, UnitPrice: decimal.NewFromFloat(1.5)},
		},
	})
	require.NoError(t, err)
	require.Len(t, rec.Items, 2)
	assert.Equal(t, existing.ID, rec.Items[0].ProductID)
	assert.Equal(t, 5, f.quantity(t, existing.ID))

	created, err := f.repos.Products.GetByRef(context.Background(), "PS-10")
	require.NoError(t, err)
	assert.Equal(t, "Pansement stérile", created.Name)
	assert.Equal(t, 9, created.Quantity)
	assert.Equal(t, entity.ReceiptStatusApproved, rec.Status)
	require.NotNil(t, rec.ApprovedBy)
	assert.Equal(t, manager().UserID, *rec.ApprovedBy)
}

// lockingProducts registra el orden de bloqueo y búsqueda por nombre.
type lockingProducts struct {
	repository.ProductRepository
	mu    *sync.Mutex
	calls *[]string
}

func (p lockingProducts) LockName(ctx context.Context, name string) error {
	p.mu.Lock()
	*p.calls = append(*p.calls, "lock:"+name)
	p.mu.Unlock()
	return p.ProductRepository.LockName(ctx, name)
}

func (p lockingProducts) GetByName(ctx context.Context, name string) (*entity.Product, error) {
	p.mu.Lock()
	*p.calls = append(*p.calls, "get:"+name)
	p.mu.Unlock()
	return p.ProductRepository.GetByName(ctx, name)
}

type lockingTx struct {
	inner *memory.TxRunner
	mu    sync.Mutex
	calls []string
}

func (l *lockingTx) Run(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	return l.inner.Run(ctx, func(repos repository.TxRepos) error {
		repos.Products = lockingProducts{ProductRepository: repos.Products, mu: &l.mu, calls: &l.calls}
		return fn(repos)
	})
}

func TestReceipt_BloqueaElNombreAntesDeBuscarOCrear(t *testing.T) {
	f := newFixture(t)
	tx := &lockingTx{inner: f.tx}
	receipts := stock.NewReceiptService(tx, f.repos.Receipts, stock.NewEngine(nil), stock.NewEffects(nil, nil, nil), nil)

	_, err := receipts.Create(context.Background(), manager(), entity.ReceiptPayload{
		Supplier: "Pharmacie centrale",
		Items:    []entity.ReceiptLinePayload{{ProductName: " Compresses ", Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"lock:Compresses", "get:Compresses"}, tx.calls)
}

func TestReceipt_RecepcionesConcurrentesCreanUnSoloProducto(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.receipts.Create(context.Background(), manager(), entity.ReceiptPayload{
				Supplier: "Pharmacie centrale",
				Items:    []entity.ReceiptLinePayload{{ProductName: "Masque FFP2", Quantity: 2}},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	products, err := f.repos.Products.List(context.Background(), repository.ProductFilter{Search: "Masque FFP2"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 16, products[0].Quantity)
}

func TestReceipt_RefDeProductoNuevoYaUsadaConflictYRollback(t *testing.T) {
	f := newFixture(t)
	taken := &entity.Product{Name: "Autre", Ref: ptr("X-1")}
	require.NoError(t, f.repos.Products.Create(context.Background(), taken))
	p := f.product(t, "Gants", 0)

	_, err := f.receipts.Create(context.Background(), manager(), entity.ReceiptPayload{
		Supplier: "Medisup",
		Items: []entity.ReceiptLinePayload{
			{ProductID: &p.ID, Quantity: 3},
			{ProductName: "Nouveau", ProductRef: ptr("X-1"), Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 0, f.quantity(t, p.ID), "la primera línea debe revertirse")

	list, err := f.receipts.List(context.Background(), repository.Page{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReceipt_ValidacionAntesDeLaTransaccion(t *testing.T) {
	f := newFixture(t)

	_, err := f.receipts.Create(context.Background(), manager(), entity.ReceiptPayload{
		Items: []entity.ReceiptLinePayload{{Quantity: 0}},
	})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "supplier")
	assert.Contains(t, verr.Fields, "items.0.quantity")
	assert.Contains(t, verr.Fields, "items.0.product_id")
}

func TestReceipt_SinPermisoForbidden(t *testing.T) {
	f := newFixture(t)
	user := entity.Actor{UserID: 3, Role: entity.RoleUser, Permissions: entity.DefaultPermissions(entity.RoleUser)}

	_, err := f.receipts.Create(context.Background(), user, entity.ReceiptPayload{Supplier: "x"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestReceipt_PublicaStockChanged(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gants", 0)

	_, err := f.receipts.Create(context.Background(), manager(), entity.ReceiptPayload{
		Supplier: "Medisup",
		Items:    []entity.ReceiptLinePayload{{ProductID: &p.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, ports.EventStockChanged, f.events.events[0].Type)
	assert.Equal(t, []int64{p.ID}, f.events.events[0].Data["product_ids"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Salidas
// ──────────────────────────────────────────────────────────────────────────────

func TestStockOut_EstadoSegunTipoDeSalida(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Attelles", 10)
	date := entity.Date{Time: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)}

	definitive, err := f.stockouts.Create(context.Background(), manager(), entity.StockOutPayload{ProductID: p.ID, Quantity: 1, MovementDate: date})
	require.NoError(t, err)
	assert.Equal(t, entity.ExitTypeDefinitive, definitive.ExitType)
	require.NotNil(t, definitive.Status)
	assert.Equal(t, entity.MovementStatusCompleted, *definitive.Status)
	assert.True(t, definitive.MovementDate.Equal(date.Time))

	provisional, err := f.stockouts.Create(context.Background(), manager(), entity.StockOutPayload{
		ProductID: p.ID, Quantity: 2, ExitType: entity.ExitTypeProvisional, Destination: "Ambulance 3",
	})
	require.NoError(t, err)
	assert.Nil(t, provisional.Status)
	assert.Equal(t, 7, f.quantity(t, p.ID))

	list, err := f.stockouts.List(context.Background(), repository.MovementFilter{ProductID: p.ID})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

// ──────────────────────────────────────────────────────────────────────────────
// Inventarios
// ──────────────────────────────────────────────────────────────────────────────

func TestInventory_LineasInvalidas(t *testing.T) {
	err := stock.ValidateInventory(dto.CreateInventoryRequest{
		Items: []dto.InventoryCountLine{
			{ProductID: 1, CountedQty: 1},
			{ProductID: 1, CountedQty: -2},
		},
	})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "items.1.product_id")
	assert.Contains(t, verr.Fields, "items.1.counted_qty")

	assert.ErrorIs(t, stock.ValidateInventory(dto.CreateInventoryRequest{}), domain.ErrInvalidInput)
}

func TestInventory_ProductoInexistenteRevierteTodo(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gants", 5)

	_, err := f.counts.Create(context.Background(), manager(), dto.CreateInventoryRequest{
		Items: []dto.InventoryCountLine{{ProductID: p.ID, CountedQty: 1}, {ProductID: 4242, CountedQty: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 5, f.quantity(t, p.ID))
}
