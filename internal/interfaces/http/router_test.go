package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/medstock-api/internal/application/approval"
	"github.com/jhoicas/medstock-api/internal/application/auth"
	"github.com/jhoicas/medstock-api/internal/application/dashboard"
	"github.com/jhoicas/medstock-api/internal/application/stock"
	"github.com/jhoicas/medstock-api/internal/application/usecase"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/infrastructure/memory"
	"github.com/jhoicas/medstock-api/internal/infrastructure/metrics"
	"github.com/jhoicas/medstock-api/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/medstock-api/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Aplicación completa sobre el almacenamiento en memoria
// ──────────────────────────────────────────────────────────────────────────────

const testPassword = "motdepasse-123"

type testServer struct {
	app   *fiber.App
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repos()
	tx := memory.NewTxRunner(store)
	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(reg)

	engine := stock.NewEngine(recorder)
	effects := stock.NewEffects(nil, nil, nil)
	receipts := stock.NewReceiptService(tx, repos.Receipts, engine, effects, pdf.NewMarotoPDFGenerator("MedStock"))
	stockouts := stock.NewStockOutService(tx, repos.Movements, engine, effects)
	inventories := stock.NewInventoryService(tx, repos.Inventories, engine, effects)
	vehicles := usecase.NewVehicleUseCase(tx, repos.Vehicles)
	workflow := approval.NewWorkflow(tx, repos.Operations, approval.NewExecutors(receipts, stockouts, vehicles), effects, recorder, nil)
	authUC := auth.NewAuthUseCase(store.Users(), auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer})

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:      authUC,
		UserUC:      usecase.NewUserUseCase(store.Users(), nil, "", nil),
		ProductUC:   usecase.NewProductUseCase(repos.Products),
		VehicleUC:   vehicles,
		Receipts:    receipts,
		StockOuts:   stockouts,
		Inventories: inventories,
		Workflow:    workflow,
		Needs:       approval.NewNeedService(tx, repos.Needs, repos.Products, effects, recorder, nil),
		DashboardUC: dashboard.NewUseCase(repos, nil, nil),
		Metrics:     recorder,
		Gatherer:    reg,
		JWTSecret:   testJWTSecret,
		ServiceName: "medstock-test",
	})
	return &testServer{app: app, store: store}
}

// login crea un usuario activo con el rol dado y devuelve su cabecera Authorization.
func (s *testServer) login(t *testing.T, email string, role entity.Role) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, s.store.Users().Create(context.Background(), &entity.User{
		Name: email, Email: email, PasswordHash: string(hash), Role: role,
		Status: entity.UserStatusActive, CreatedAt: now, UpdatedAt: now,
	}))

	resp := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Token string `json:"token"`
	}
	decode(t, resp, &out)
	require.NotEmpty(t, out.Token)
	return "Bearer " + out.Token
}

func (s *testServer) do(t *testing.T, method, path, authHeader string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// ──────────────────────────────────────────────────────────────────────────────
// Rutas técnicas
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_SaludYMetricas(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/health", "", nil)
	var health map[string]string
	decode(t, resp, &health)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "medstock-test", health["service"])

	resp = s.do(t, http.MethodGet, "/metrics", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "medstock_http_requests_total")
	assert.Contains(t, string(body), `route="/health"`)
}

func TestRouter_LoginIncorrecto_Retorna401(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "admin@medstock.test", entity.RoleAdmin)

	resp := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@medstock.test", "password": "mauvais"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujo de aprobación
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_RecepcionPendienteSeAplicaAlAprobar(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@medstock.test", entity.RoleAdmin)
	user := s.login(t, "agent@medstock.test", entity.RoleUser)

	payload := map[string]any{
		"type": "receipt",
		"data": map[string]any{
			"supplier": "Pharma Nord",
			"items":    []map[string]any{{"product_name": "Compresses stériles", "quantity": 12, "unit_price": "1.50"}},
		},
	}
	resp := s.do(t, http.MethodPost, "/api/operations", user, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var submitted struct {
		OperationID int64  `json:"operation_id"`
		Status      string `json:"status"`
	}
	decode(t, resp, &submitted)
	assert.Equal(t, entity.RequestStatusPending, submitted.Status)

	// Enviar no toca el stock.
	resp = s.do(t, http.MethodGet, "/api/products?search=Compresses", admin, nil)
	var before struct {
		Items []map[string]any `json:"items"`
	}
	decode(t, resp, &before)
	assert.Empty(t, before.Items)

	approvePath := "/api/operations/" + itoa(submitted.OperationID) + "/approve"

	resp = s.do(t, http.MethodPost, approvePath, user, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "un Utilisateur no aprueba")

	resp = s.do(t, http.MethodPost, approvePath, admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var approved struct {
		Status string `json:"status"`
	}
	decode(t, resp, &approved)
	assert.Equal(t, entity.RequestStatusApproved, approved.Status)

	resp = s.do(t, http.MethodGet, "/api/products?search=Compresses", admin, nil)
	var after struct {
		Items []struct {
			Name     string `json:"name"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
	}
	decode(t, resp, &after)
	require.Len(t, after.Items, 1)
	assert.Equal(t, 12, after.Items[0].Quantity)

	// Una segunda decisión no se aplica.
	resp = s.do(t, http.MethodPost, approvePath, admin, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "INVALID_STATE")
}

func TestRouter_RechazoSinCuerpoUsaMotivoPorDefecto(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@medstock.test", entity.RoleAdmin)
	user := s.login(t, "agent@medstock.test", entity.RoleUser)

	resp := s.do(t, http.MethodPost, "/api/operations", user, map[string]any{
		"type": "vehicle",
		"data": map[string]any{"plate": "ab-123-cd", "brand": "Renault"},
	})
	var submitted struct {
		OperationID int64 `json:"operation_id"`
	}
	decode(t, resp, &submitted)

	resp = s.do(t, http.MethodPost, "/api/operations/"+itoa(submitted.OperationID)+"/reject", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, http.MethodGet, "/api/operations/mine", user, nil)
	var mine []struct {
		Status          string  `json:"status"`
		RejectionReason *string `json:"rejection_reason"`
	}
	decode(t, resp, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, entity.RequestStatusRejected, mine[0].Status)
	require.NotNil(t, mine[0].RejectionReason)
	assert.Equal(t, entity.DefaultRejectionReason, *mine[0].RejectionReason)

	resp = s.do(t, http.MethodGet, "/api/vehicles", admin, nil)
	var vehicles []map[string]any
	decode(t, resp, &vehicles)
	assert.Empty(t, vehicles, "un rechazo no crea el vehículo")
}

func TestRouter_TipoDeOperacionNoSoportado_Retorna422(t *testing.T) {
	s := newTestServer(t)
	user := s.login(t, "agent@medstock.test", entity.RoleUser)

	resp := s.do(t, http.MethodPost, "/api/operations", user, map[string]any{"type": "transfer", "data": map[string]any{}})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "UNSUPPORTED_OPERATION")
}

// ──────────────────────────────────────────────────────────────────────────────
// Rutas directas y errores
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_ValidacionDevuelveCampos(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@medstock.test", entity.RoleAdmin)

	resp := s.do(t, http.MethodPost, "/api/products", admin, map[string]any{"name": "  ", "critical_level": -1})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var out struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	}
	decode(t, resp, &out)
	assert.Equal(t, "VALIDATION", out.Code)
	assert.Contains(t, out.Fields, "name")
	assert.Contains(t, out.Fields, "critical_level")
}

func TestRouter_RecepcionDirectaYComprobantePDF(t *testing.T) {
	s := newTestServer(t)
	manager := s.login(t, "gestion@medstock.test", entity.RoleManager)

	resp := s.do(t, http.MethodPost, "/api/products", manager, map[string]any{"name": "Gants nitrile", "critical_level": 5})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var product struct {
		ID int64 `json:"id"`
	}
	decode(t, resp, &product)

	resp = s.do(t, http.MethodPost, "/api/receipts", manager, map[string]any{
		"supplier": "Médical Sud",
		"items":    []map[string]any{{"product_id": product.ID, "quantity": 20, "unit_price": "0.35"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID int64 `json:"id"`
	}
	decode(t, resp, &created)
	require.NotZero(t, created.ID)

	resp = s.do(t, http.MethodPost, "/api/stockouts", manager, map[string]any{"product_id": product.ID, "quantity": 4})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, http.MethodGet, "/api/products/"+itoa(product.ID), manager, nil)
	var got struct {
		Quantity int `json:"quantity"`
	}
	decode(t, resp, &got)
	assert.Equal(t, 16, got.Quantity)

	resp = s.do(t, http.MethodGet, "/api/receipts/"+itoa(created.ID)+"/pdf", manager, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	doc, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestRouter_RecursoInexistente_Retorna404(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@medstock.test", entity.RoleAdmin)

	resp := s.do(t, http.MethodGet, "/api/products/999", admin, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "NOT_FOUND")
}

func TestRouter_IDNoNumerico_Retorna400(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@medstock.test", entity.RoleAdmin)

	resp := s.do(t, http.MethodGet, "/api/vehicles/abc", admin, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_UsuariosSoloParaAdministrador(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@medstock.test", entity.RoleAdmin)
	manager := s.login(t, "gestion@medstock.test", entity.RoleManager)

	resp := s.do(t, http.MethodGet, "/api/users", manager, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/users", admin, nil)
	var list struct {
		Items []map[string]any `json:"items"`
	}
	decode(t, resp, &list)
	assert.Len(t, list.Items, 2)

	resp = s.do(t, http.MethodGet, "/api/me", manager, nil)
	var me struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	decode(t, resp, &me)
	assert.Equal(t, "gestion@medstock.test", me.Email)
	assert.Equal(t, string(entity.RoleManager), me.Role)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
