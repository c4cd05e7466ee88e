package approval_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medstock-api/internal/application/approval"
	"github.com/jhoicas/medstock-api/internal/application/dto"
	"github.com/jhoicas/medstock-api/internal/application/stock"
	"github.com/jhoicas/medstock-api/internal/application/usecase"
	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
	"github.com/jhoicas/medstock-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type decisionMetrics struct {
	mu        sync.Mutex
	decisions []string
}

func (m *decisionMetrics) StockMutation(string) {}

func (m *decisionMetrics) Decision(opType, decision string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, opType+":"+decision)
}

type fixture struct {
	repos    repository.TxRepos
	tx       *memory.TxRunner
	metrics  *decisionMetrics
	workflow *approval.Workflow
	needs    *approval.NeedService
	receipts *stock.ReceiptService
	stockout *stock.StockOutService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{repos: store.Repos(), tx: memory.NewTxRunner(store), metrics: &decisionMetrics{}}
	engine := stock.NewEngine(nil)
	effects := stock.NewEffects(nil, nil, nil)
	f.receipts = stock.NewReceiptService(f.tx, f.repos.Receipts, engine, effects, nil)
	f.stockout = stock.NewStockOutService(f.tx, f.repos.Movements, engine, effects)
	vehicles := usecase.NewVehicleUseCase(f.tx, f.repos.Vehicles)
	executors := approval.NewExecutors(f.receipts, f.stockout, vehicles)
	f.workflow = approval.NewWorkflow(f.tx, f.repos.Operations, executors, effects, f.metrics, nil)
	f.needs = approval.NewNeedService(f.tx, f.repos.Needs, f.repos.Products, effects, f.metrics, nil)
	return f
}

func (f *fixture) product(t *testing.T, name string, qty int) *entity.Product {
	t.Helper()
	p := &entity.Product{Name: name, Price: decimal.NewFromInt(3)}
	require.NoError(t, f.repos.Products.Create(context.Background(), p))
	require.NoError(t, f.repos.Products.SetQuantity(context.Background(), p.ID, qty))
	return p
}

func (f *fixture) quantity(t *testing.T, id int64) int {
	t.Helper()
	p, err := f.repos.Products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

func (f *fixture) submit(t *testing.T, opType entity.OperationType, payload any) *entity.PendingOperation {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	op, err := f.workflow.Submit(context.Background(), requester, opType, raw)
	require.NoError(t, err)
	return op
}

var (
	admin     = entity.Actor{UserID: 1, Role: entity.RoleAdmin, Permissions: entity.DefaultPermissions(entity.RoleAdmin)}
	requester = entity.Actor{UserID: 5, Role: entity.RoleUser, Permissions: entity.DefaultPermissions(entity.RoleUser)}
	manager   = entity.Actor{UserID: 2, Role: entity.RoleManager, Permissions: entity.DefaultPermissions(entity.RoleManager)}
)

// ──────────────────────────────────────────────────────────────────────────────
// Submit
// ──────────────────────────────────────────────────────────────────────────────

func TestSubmit_SinEfectosSobreElStock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gants", 20)

	op := f.submit(t, entity.OperationStockOut, map[string]any{"product_id": p.ID, "quantity": 5})
	assert.Equal(t, entity.RequestStatusPending, op.Status)
	assert.Equal(t, requester.UserID, op.UserID)
	assert.Equal(t, 20, f.quantity(t, p.ID))
}

func TestSubmit_TipoDesconocido(t *testing.T) {
	f := newFixture(t)

	_, err := f.workflow.Submit(context.Background(), requester, "transfer", json.RawMessage(`{"x":1}`))
	assert.ErrorIs(t, err, domain.ErrUnsupportedOperation)
}

func TestSubmit_PayloadMalformadoNoSePersiste(t *testing.T) {
	f := newFixture(t)

	_, err := f.workflow.Submit(context.Background(), requester, entity.OperationStockOut, json.RawMessage(`{"product_id":"siete"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.workflow.Submit(context.Background(), requester, entity.OperationStockOut, json.RawMessage(`{"product_id":7}`))
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "quantity")

	n, err := f.repos.Operations.CountPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ──────────────────────────────────────────────────────────────────────────────
// Approve / Reject
// ──────────────────────────────────────────────────────────────────────────────

// Producto a 20, se aprueba una salida de 5: queda a 15 con un único movimiento stockout.
func TestApprove_SalidaDescuentaYCreaUnMovimiento(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gants", 20)
	op := f.submit(t, entity.OperationStockOut, entity.StockOutPayload{ProductID: p.ID, Quantity: 5})

	approved, err := f.workflow.Approve(context.Background(), admin, op.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, admin.UserID, *approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, 15, f.quantity(t, p.ID))

	movs, err := f.repos.Movements.List(context.Background(), repository.MovementFilter{ProductID: p.ID})
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementTypeStockOut, movs[0].Type)
	assert.Equal(t, 5, movs[0].Quantity)
	assert.Equal(t, requester.UserID, movs[0].CreatedBy)
	assert.Equal(t, []string{"stockout:approved"}, f.metrics.decisions)
}

func TestApprove_DosVecesSegundaInvalidState(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gants", 20)
	op := f.submit(t, entity.OperationStockOut, entity.StockOutPayload{ProductID: p.ID, Quantity: 5})

	_, err := f.workflow.Approve(context.Background(), admin, op.ID)
	require.NoError(t, err)

	_, err = f.workflow.Approve(context.Background(), admin, op.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 15, f.quantity(t, p.ID), "el efecto se aplica una sola vez")
}

func TestApprove_Inexistente(t *testing.T) {
	f := newFixture(t)

	_, err := f.workflow.Approve(context.Background(), admin, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.workflow.Reject(context.Background(), admin, 404, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApprove_SoloConPermisoDeAprobacion(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gants", 20)
	op := f.submit(t, entity.OperationStockOut, entity.StockOutPayload{ProductID: p.ID, Quantity: 5})

	_, err := f.workflow.Approve(context.Background(), manager, op.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.workflow.Reject(context.Background(), requester, op.ID, "non")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, 20, f.quantity(t, p.ID))
}

func TestApprove_GestionnaireConPermisoExplicitoRechazado(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gants", 20)
	op := f.submit(t, entity.OperationStockOut, entity.StockOutPayload{ProductID: p.ID, Quantity: 5})
	elevated := entity.Actor{
		UserID:      2,
		Role:        entity.RoleManager,
		Permissions: append(entity.DefaultPermissions(entity.RoleManager), entity.CapOperationsApprove),
	}

	_, err := f.workflow.Approve(context.Background(), elevated, op.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.workflow.Reject(context.Background(), elevated, op.ID, "non")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.workflow.List(context.Background(), elevated, repository.RequestFilter{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	need, err := f.needs.Create(context.Background(), requester, dto.CreateNeedRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.needs.Approve(context.Background(), elevated, need.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := f.workflow.Get(context.Background(), admin, op.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPending, got.Status)
	assert.Equal(t, 20, f.quantity(t, p.ID))
}

func TestApproveReject_ConcurrentesSoloUnoGana(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		p := f.product(t, "Gants", 20)
		op := f.submit(t, entity.OperationStockOut, entity.StockOutPayload{ProductID: p.ID, Quantity: 5})

		var wg sync.WaitGroup
		errs := make([]error, 3)
		wg.Add(3)
		go func() { defer wg.Done(); _, errs[0] = f.workflow.Approve(context.Background(), admin, op.ID) }()
		go func() { defer wg.Done(); _, errs[1] = f.workflow.Reject(context.Background(), admin, op.ID, "doublon") }()
		go func() { defer wg.Done(); _, errs[2] = f.workflow.Approve(context.Background(), admin, op.ID) }()
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrInvalidState)
		}
		require.Equal(t, 1, succeeded)

		final, err := f.repos.Operations.GetByID(context.Background(), op.ID)
		require.NoError(t, err)
		if final.Status == entity.RequestStatusApproved {
			assert.Equal(t, 15, f.quantity(t, p.ID))
		} else {
			assert.Equal(t, entity.RequestStatusRejected, final.Status)
			assert.Equal(t, 20, f.quantity(t, p.ID))
		}
	}
}

// Rechazo con motivo: se guarda el motivo y el producto no cambia.
func TestReject_GuardaMotivoYNoTocaElStock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gants", 20)
	op := f.submit(t, entity.OperationStockOut, entity.StockOutPayload{ProductID: p.ID, Quantity: 5})

	rejected, err := f.workflow.Reject(context.Background(), admin, op.ID, "insufficient justification")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "insufficient justification", *rejected.RejectionReason)
	assert.Equal(t, 20, f.quantity(t, p.ID))

	_, err = f.workflow.Approve(context.Background(), admin, op.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestReject_MotivoVacioUsaElGenerico(t *testing.T) {
	f := newFixture(t)
	op := f.submit(t, entity.OperationVehicle, entity.VehiclePayload{Plate: "AB-123-CD"})

	rejected, err := f.workflow.Reject(context.Background(), admin, op.ID, "   ")
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultRejectionReason, *rejected.RejectionReason)
}

func TestApprove_FalloDelEjecutorDejaPendiente(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gants", 20)
	_, err := f.receipts.Create(context.Background(), manager, entity.ReceiptPayload{
		Ref: ptr("BR-9"), Supplier: "Medisup",
		Items: []entity.ReceiptLinePayload{{ProductID: &p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	op := f.submit(t, entity.OperationReceipt, entity.ReceiptPayload{
		Ref: ptr("BR-9"), Supplier: "Medisup",
		Items: []entity.ReceiptLinePayload{{ProductID: &p.ID, Quantity: 10}},
	})
	_, err = f.workflow.Approve(context.Background(), admin, op.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	stored, err := f.repos.Operations.GetByID(context.Background(), op.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPending, stored.Status)
	assert.Nil(t, stored.ApprovedBy)
	assert.Equal(t, 21, f.quantity(t, p.ID))
}

func TestApprove_TipoSinEjecutorUnsupported(t *testing.T) {
	f := newFixture(t)
	op := &entity.PendingOperation{Type: "transfer", Data: json.RawMessage(`{"a":1}`), UserID: 5, Status: entity.RequestStatusPending}
	require.NoError(t, f.repos.Operations.Create(context.Background(), op))

	_, err := f.workflow.Approve(context.Background(), admin, op.ID)
	assert.ErrorIs(t, err, domain.ErrUnsupportedOperation)

	stored, err := f.repos.Operations.GetByID(context.Background(), op.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPending, stored.Status)
}

func TestApprove_VehiculoSiempreNacePendiente(t *testing.T) {
	f := newFixture(t)
	op := f.submit(t, entity.OperationVehicle, entity.VehiclePayload{Plate: " ab-123-cd ", Brand: "Renault", Status: "assigned"})

	_, err := f.workflow.Approve(context.Background(), admin, op.ID)
	require.NoError(t, err)

	v, err := f.repos.Vehicles.GetByPlate(context.Background(), "AB-123-CD")
	require.NoError(t, err)
	assert.Equal(t, entity.VehicleStatusPending, v.Status)
}

// Mismo payload por el camino directo y por aprobación: mismo efecto en el stock.
func TestCaminoDirectoYAprobacionEquivalentes(t *testing.T) {
	receipt := func(ids ...int64) entity.ReceiptPayload {
		in := entity.ReceiptPayload{Supplier: "Medisup"}
		for i, id := range ids {
			in.Items = append(in.Items, entity.ReceiptLinePayload{ProductID: &id, Quantity: 3 + i})
		}
		in.Items = append(in.Items, entity.ReceiptLinePayload{ProductName: "Nouveau produit", Quantity: 4})
		return in
	}

	direct := newFixture(t)
	d1, d2 := direct.product(t, "A", 10), direct.product(t, "B", 0)
	_, err := direct.receipts.Create(context.Background(), manager, receipt(d1.ID, d2.ID))
	require.NoError(t, err)
	_, err = direct.stockout.Create(context.Background(), manager, entity.StockOutPayload{ProductID: d1.ID, Quantity: 6})
	require.NoError(t, err)

	viaApproval := newFixture(t)
	a1, a2 := viaApproval.product(t, "A", 10), viaApproval.product(t, "B", 0)
	opR := viaApproval.submit(t, entity.OperationReceipt, receipt(a1.ID, a2.ID))
	opS := viaApproval.submit(t, entity.OperationStockOut, entity.StockOutPayload{ProductID: a1.ID, Quantity: 6})
	_, err = viaApproval.workflow.Approve(context.Background(), admin, opR.ID)
	require.NoError(t, err)
	_, err = viaApproval.workflow.Approve(context.Background(), admin, opS.ID)
	require.NoError(t, err)

	snapshot := func(f *fixture) map[string]int {
		list, err := f.repos.Products.List(context.Background(), repository.ProductFilter{})
		require.NoError(t, err)
		out := map[string]int{}
		for _, p := range list {
			out[p.Name] = p.Quantity
		}
		return out
	}
	assert.Equal(t, snapshot(direct), snapshot(viaApproval))
	assert.Equal(t, map[string]int{"A": 7, "B": 4, "Nouveau produit": 4}, snapshot(direct))
}

// ──────────────────────────────────────────────────────────────────────────────
// Lectura
// ──────────────────────────────────────────────────────────────────────────────

func TestGetYListado_Visibilidad(t *testing.T) {
	f := newFixture(t)
	op := f.submit(t, entity.OperationVehicle, entity.VehiclePayload{Plate: "ZZ-1"})
	other := entity.Actor{UserID: 77, Role: entity.RoleUser, Permissions: entity.DefaultPermissions(entity.RoleUser)}

	_, err := f.workflow.Get(context.Background(), requester, op.ID)
	assert.NoError(t, err)
	_, err = f.workflow.Get(context.Background(), admin, op.ID)
	assert.NoError(t, err)
	_, err = f.workflow.Get(context.Background(), other, op.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.workflow.List(context.Background(), requester, repository.RequestFilter{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	pending, err := f.workflow.List(context.Background(), admin, repository.RequestFilter{Status: entity.RequestStatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	mine, err := f.workflow.Mine(context.Background(), other, repository.RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, mine)
}

// ──────────────────────────────────────────────────────────────────────────────
// Necesidades
// ──────────────────────────────────────────────────────────────────────────────

func TestNeeds_AprobarSoloRegistraLaDecision(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gants", 3)

	need, err := f.needs.Create(context.Background(), requester, dto.CreateNeedRequest{ProductID: p.ID, Quantity: 50, Reason: "Rupture"})
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPending, need.Status)

	decided, err := f.needs.Approve(context.Background(), admin, need.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusApproved, decided.Status)
	assert.Equal(t, 3, f.quantity(t, p.ID))

	_, err = f.needs.Reject(context.Background(), admin, need.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestNeeds_ValidacionYVisibilidad(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gants", 3)

	_, err := f.needs.Create(context.Background(), requester, dto.CreateNeedRequest{ProductID: p.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.needs.Create(context.Background(), requester, dto.CreateNeedRequest{ProductID: 999, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.needs.Create(context.Background(), requester, dto.CreateNeedRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.needs.Create(context.Background(), manager, dto.CreateNeedRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	own, err := f.needs.List(context.Background(), requester, repository.RequestFilter{})
	require.NoError(t, err)
	assert.Len(t, own, 1)
	all, err := f.needs.List(context.Background(), admin, repository.RequestFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	rejected, err := f.needs.Reject(context.Background(), admin, own[0].ID, "")
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultRejectionReason, *rejected.RejectionReason)
}

func ptr[T any](v T) *T { return &v }
